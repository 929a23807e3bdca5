// Package update decodes the game server's update feed: one JSON record
// per line, each carrying a game step, an update type, and a payload
// whose shape depends on the type. Decoding is purely structural; the
// aggregation engine owns all semantic validation.
package update

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Update types consumed by the aggregation engine. The feed carries
// more (TURN, MOVE, TREND, PING, ...); those decode fine and are
// ignored downstream.
const (
	TypeCreate     = "CREATE"
	TypeReset      = "RESET"
	TypeJoin       = "JOIN"
	TypeKick       = "KICK"
	TypeInvest     = "INVEST"
	TypeRent       = "RENT"
	TypeBankruptcy = "BANKRUPTCY"
	TypeWin        = "WIN"
	TypeSkip       = "SKIP"
)

// Record is one update envelope as emitted by the game server.
type Record struct {
	GameCode string          `json:"gameCode,omitempty"`
	GameStep int             `json:"gameStep"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

// DecodeError reports a malformed line in an update log.
type DecodeError struct {
	Line int // 1-based position among non-blank lines
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("update log line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeLines splits raw log text into non-blank lines and decodes each
// independently. Blank input yields an empty slice.
func DecodeLines(text []byte) ([]Record, error) {
	var records []Record
	n := 0
	for _, line := range bytes.Split(text, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		n++
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, &DecodeError{Line: n, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}
