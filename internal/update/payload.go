package update

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Player states as reported by the game server.
const (
	StateActive   = "ACTIVE"
	StateBankrupt = "BANKRUPT"
)

// PlayerSnapshot is a player as embedded in update payloads. Monetary
// values decode straight into decimals so they never pass through a
// binary float.
type PlayerSnapshot struct {
	ID            int64           `json:"id"`
	Username      string          `json:"username,omitempty"`
	Index         int             `json:"index"`
	State         string          `json:"state"`
	Turn          bool            `json:"turn"`
	Host          bool            `json:"host,omitempty"`
	Cash          decimal.Decimal `json:"cash"`
	PaidRents     []RentEntry     `json:"paidRents,omitempty"`
	ReceivedRents []RentEntry     `json:"receivedRents,omitempty"`
}

// LandSnapshot is a land as embedded in update payloads. Players holds
// the per-player ownership entries for the land.
type LandSnapshot struct {
	ID      int64             `json:"id"`
	Name    string            `json:"name"`
	Players []PlayerLandEntry `json:"players,omitempty"`
}

// PlayerLandEntry records one player's stake in one land.
type PlayerLandEntry struct {
	PlayerID  int64           `json:"playerId"`
	Ownership decimal.Decimal `json:"ownership"`
	BuyAmount decimal.Decimal `json:"buyAmount"`
}

// RentEntry is one atomic rent obligation between two players over one
// land. IDs are globally unique within a game; the engine applies each
// id at most once per side.
type RentEntry struct {
	ID             int64           `json:"id"`
	LandID         int64           `json:"landId"`
	SourcePlayerID int64           `json:"sourcePlayerId,omitempty"`
	TargetPlayerID int64           `json:"targetPlayerId,omitempty"`
	RentAmount     decimal.Decimal `json:"rentAmount"`
}

// GamePayload is the CREATE/RESET payload: full game snapshot.
type GamePayload struct {
	Game    GameInfo         `json:"game"`
	Players []PlayerSnapshot `json:"players"`
	Lands   []LandSnapshot   `json:"lands"`
}

// GameInfo carries the game-level fields the reducer cares about.
type GameInfo struct {
	Code string `json:"code"`
}

// InvestPayload is the INVEST payload: the invested land (with its
// PlayerLand entries) and the players affected by the purchase.
type InvestPayload struct {
	Land    LandSnapshot     `json:"land"`
	Players []PlayerSnapshot `json:"players"`
}

// BankruptcyPayload is the BANKRUPTCY payload: lands and players that
// changed when the turn player went bankrupt.
type BankruptcyPayload struct {
	Lands   []LandSnapshot   `json:"lands"`
	Players []PlayerSnapshot `json:"players"`
}

// SkipPayload is the SKIP payload. RemainingSkipsCount distinguishes a
// key that is entirely absent (skips disabled, no-op) from a present
// null (treated as zero).
type SkipPayload struct {
	Player              PlayerSnapshot
	RemainingSkipsCount int
	HasRemainingSkips   bool
}

// GamePayload decodes a CREATE/RESET payload.
func (r Record) GamePayload() (GamePayload, error) {
	var p GamePayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return GamePayload{}, fmt.Errorf("%s payload: %w", r.Type, err)
	}
	return p, nil
}

// PlayerPayload decodes a JOIN/WIN payload (a single player snapshot).
func (r Record) PlayerPayload() (PlayerSnapshot, error) {
	var p PlayerSnapshot
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return PlayerSnapshot{}, fmt.Errorf("%s payload: %w", r.Type, err)
	}
	return p, nil
}

// KickPayload decodes a KICK payload (the kicked player's id).
func (r Record) KickPayload() (int64, error) {
	var id int64
	if err := json.Unmarshal(r.Payload, &id); err != nil {
		return 0, fmt.Errorf("KICK payload: %w", err)
	}
	return id, nil
}

// InvestPayload decodes an INVEST payload.
func (r Record) InvestPayload() (InvestPayload, error) {
	var p InvestPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return InvestPayload{}, fmt.Errorf("INVEST payload: %w", err)
	}
	return p, nil
}

// RentPayload decodes a RENT payload (every player touched by the rent).
func (r Record) RentPayload() ([]PlayerSnapshot, error) {
	var p []PlayerSnapshot
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return nil, fmt.Errorf("RENT payload: %w", err)
	}
	return p, nil
}

// BankruptcyPayload decodes a BANKRUPTCY payload.
func (r Record) BankruptcyPayload() (BankruptcyPayload, error) {
	var p BankruptcyPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return BankruptcyPayload{}, fmt.Errorf("BANKRUPTCY payload: %w", err)
	}
	return p, nil
}

// SkipPayload decodes a SKIP payload, preserving whether the
// remaining-skip counter key was present at all.
func (r Record) SkipPayload() (SkipPayload, error) {
	var p SkipPayload
	if err := json.Unmarshal(r.Payload, &p.Player); err != nil {
		return SkipPayload{}, fmt.Errorf("SKIP payload: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Payload, &fields); err != nil {
		return SkipPayload{}, fmt.Errorf("SKIP payload: %w", err)
	}
	raw, ok := fields["remainingSkipsCount"]
	if !ok {
		return p, nil
	}
	p.HasRemainingSkips = true
	var count *int
	if err := json.Unmarshal(raw, &count); err != nil {
		return SkipPayload{}, fmt.Errorf("SKIP remainingSkipsCount: %w", err)
	}
	if count != nil {
		p.RemainingSkipsCount = *count
	}
	return p, nil
}
