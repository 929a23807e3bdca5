package game

import (
	"strategists.ai/internal/money"
	"strategists.ai/internal/update"
)

// State accumulates one game log into per-player feature rows. It is
// single-threaded and lives for exactly one log's reduction; events
// must be applied strictly in the order received.
type State struct {
	exportTimestamp int64

	gameCode string // first non-empty value wins, immutable after
	lands    []Land // first non-empty set wins, immutable after

	rows  map[int64]*Row
	order []int64 // player insertion order; kicked ids drop out

	// Rent-ledger ids already folded per player, per side. Cleared only
	// when the player's row is removed or re-created.
	paidRentIDs     map[int64]map[int64]struct{}
	receivedRentIDs map[int64]map[int64]struct{}

	bankrupted    map[int64]struct{} // cardinality doubles as next order
	skipBankrupts bool               // sticky once set
}

// NewState creates an empty accumulator. exportTimestamp may be zero
// for inference; training finalization requires it.
func NewState(exportTimestamp int64) *State {
	return &State{
		exportTimestamp: exportTimestamp,
		rows:            make(map[int64]*Row),
		paidRentIDs:     make(map[int64]map[int64]struct{}),
		receivedRentIDs: make(map[int64]map[int64]struct{}),
		bankrupted:      make(map[int64]struct{}),
	}
}

// GameCode returns the game code captured from the first CREATE/RESET.
func (s *State) GameCode() string { return s.gameCode }

// Lands returns the game's land list in index order.
func (s *State) Lands() []Land { return s.lands }

// Apply folds one update record into the accumulator. Records whose
// type the reducer does not track are ignored.
func (s *State) Apply(rec update.Record) error {
	switch rec.Type {
	case update.TypeCreate, update.TypeReset:
		return s.applyCreate(rec)
	case update.TypeJoin:
		return s.applyJoin(rec)
	case update.TypeKick:
		return s.applyKick(rec)
	case update.TypeInvest:
		return s.applyInvest(rec)
	case update.TypeRent:
		return s.applyRent(rec)
	case update.TypeBankruptcy:
		return s.applyBankruptcy(rec)
	case update.TypeWin:
		return s.applyWin(rec)
	case update.TypeSkip:
		return s.applySkip(rec)
	default:
		return nil
	}
}

// addPlayer creates (or re-creates, zeroed) the player's row and fresh
// rent dedup sets. A re-created row keeps its original position.
func (s *State) addPlayer(p update.PlayerSnapshot) {
	if _, ok := s.rows[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.rows[p.ID] = newRow(p, s.gameCode, s.exportTimestamp, len(s.lands))
	s.paidRentIDs[p.ID] = make(map[int64]struct{})
	s.receivedRentIDs[p.ID] = make(map[int64]struct{})
}

func (s *State) applyCreate(rec update.Record) error {
	p, err := rec.GamePayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	if s.gameCode == "" {
		s.gameCode = p.Game.Code
	}
	if len(s.lands) == 0 {
		for _, l := range p.Lands {
			s.lands = append(s.lands, Land{ID: l.ID, Name: l.Name})
		}
		// Rows created while the land list was still empty have no
		// cells; grow them so later events and flattening can index
		// every land.
		for _, row := range s.rows {
			for len(row.Lands) < len(s.lands) {
				row.Lands = append(row.Lands, LandCell{})
			}
		}
	}
	for _, player := range p.Players {
		s.addPlayer(player)
	}
	return nil
}

func (s *State) applyJoin(rec update.Record) error {
	if len(s.rows) == 0 {
		return consistency(rec.GameStep, RuleJoinBeforeCreate)
	}
	p, err := rec.PlayerPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	s.addPlayer(p)
	return nil
}

func (s *State) applyKick(rec update.Record) error {
	id, err := rec.KickPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	if _, ok := s.rows[id]; !ok {
		return consistency(rec.GameStep, RuleKickUnknownPlayer)
	}
	delete(s.rows, id)
	delete(s.paidRentIDs, id)
	delete(s.receivedRentIDs, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *State) applyInvest(rec update.Record) error {
	p, err := rec.InvestPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	turn, ok := singleTurnPlayer(p.Players)
	if !ok {
		return consistency(rec.GameStep, RuleSingleTurnPlayer)
	}

	var entry update.PlayerLandEntry
	entries := 0
	for _, pl := range p.Land.Players {
		if pl.PlayerID == turn.ID {
			entry = pl
			entries++
		}
	}
	if entries != 1 {
		return consistency(rec.GameStep, RuleSinglePlayerLand)
	}

	row, ok := s.rows[turn.ID]
	if !ok {
		return consistency(rec.GameStep, RuleUnknownPlayer)
	}
	landIdx := s.landIndex(p.Land.ID)
	if landIdx < 0 {
		return consistency(rec.GameStep, RuleUnknownLand)
	}

	row.Lands[landIdx].Ownership = money.Round2(entry.Ownership)
	row.Lands[landIdx].DebitInvest = money.Round2(entry.BuyAmount)
	row.recomputeInvest()
	return nil
}

func (s *State) applyRent(rec update.Record) error {
	players, err := rec.RentPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	source, ok := singleTurnPlayer(players)
	if !ok {
		return consistency(rec.GameStep, RuleSingleTurnPlayer)
	}

	targets := make([]update.PlayerSnapshot, 0, len(players)-1)
	targetIDs := make(map[int64]struct{})
	for _, p := range players {
		if p.ID != source.ID {
			targets = append(targets, p)
			targetIDs[p.ID] = struct{}{}
		}
	}
	if len(targets) == 0 {
		return consistency(rec.GameStep, RuleTargetRequired)
	}
	if 1+len(targets) != len(players) {
		return consistency(rec.GameStep, RulePlayerTotals)
	}

	// The rent-implied land is looked up by the source player's board
	// index, not by an explicit land id on the payload.
	if source.Index < 0 || source.Index >= len(s.lands) {
		return consistency(rec.GameStep, RuleLandIndexRange)
	}
	landIdx := source.Index
	land := s.lands[landIdx]

	sourceRow, ok := s.rows[source.ID]
	if !ok {
		return consistency(rec.GameStep, RuleUnknownPlayer)
	}
	for _, rent := range source.PaidRents {
		if rent.LandID != land.ID {
			continue
		}
		if _, ok := targetIDs[rent.TargetPlayerID]; !ok {
			continue
		}
		if _, seen := s.paidRentIDs[source.ID][rent.ID]; seen {
			continue
		}
		sourceRow.applyPaidRent(landIdx, rent.RentAmount)
		s.paidRentIDs[source.ID][rent.ID] = struct{}{}
	}

	for _, target := range targets {
		targetRow, ok := s.rows[target.ID]
		if !ok {
			return consistency(rec.GameStep, RuleUnknownPlayer)
		}
		for _, rent := range target.ReceivedRents {
			if rent.LandID != land.ID {
				continue
			}
			if rent.SourcePlayerID != source.ID {
				continue
			}
			if _, seen := s.receivedRentIDs[target.ID][rent.ID]; seen {
				continue
			}
			targetRow.applyReceivedRent(landIdx, rent.RentAmount)
			s.receivedRentIDs[target.ID][rent.ID] = struct{}{}
		}
	}
	return nil
}

func (s *State) applyBankruptcy(rec update.Record) error {
	p, err := rec.BankruptcyPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	turn, ok := singleTurnPlayer(p.Players)
	if !ok {
		return consistency(rec.GameStep, RuleSingleTurnPlayer)
	}
	if _, done := s.bankrupted[turn.ID]; done {
		return consistency(rec.GameStep, RuleAlreadyBankrupt)
	}
	if turn.State != update.StateBankrupt {
		return consistency(rec.GameStep, RuleNotBankruptState)
	}
	row, ok := s.rows[turn.ID]
	if !ok {
		return consistency(rec.GameStep, RuleUnknownPlayer)
	}
	s.bankrupted[turn.ID] = struct{}{}
	row.BankruptcyOrder = len(s.bankrupted)
	row.State = turn.State
	return nil
}

func (s *State) applyWin(rec update.Record) error {
	p, err := rec.PlayerPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	if p.State != update.StateActive {
		return consistency(rec.GameStep, RuleWinnerNotActive)
	}
	row, ok := s.rows[p.ID]
	if !ok {
		return consistency(rec.GameStep, RuleUnknownPlayer)
	}
	row.BankruptcyOrder = len(s.bankrupted) + 1
	row.State = p.State
	return nil
}

func (s *State) applySkip(rec update.Record) error {
	p, err := rec.SkipPayload()
	if err != nil {
		return consistency(rec.GameStep, err.Error())
	}
	// Skips disabled for the game: the counter key is absent entirely.
	if !p.HasRemainingSkips {
		return nil
	}
	if !s.skipBankrupts && p.RemainingSkipsCount <= 0 {
		s.skipBankrupts = true
	}
	return nil
}

func (s *State) landIndex(landID int64) int {
	for i, l := range s.lands {
		if l.ID == landID {
			return i
		}
	}
	return -1
}

func singleTurnPlayer(players []update.PlayerSnapshot) (update.PlayerSnapshot, bool) {
	var turn update.PlayerSnapshot
	count := 0
	for _, p := range players {
		if p.Turn {
			turn = p
			count++
		}
	}
	return turn, count == 1
}
