package game

import (
	"sort"

	"strategists.ai/internal/update"
)

// Mode selects the finalization contract: training demands a complete,
// decided game; inference accepts a game still in progress.
type Mode int

const (
	ModeTraining Mode = iota
	ModeInference
)

// Result is the finalized output of one log's reduction.
type Result struct {
	GameCode string
	Lands    []Land
	Rows     []*Row
}

// Finalize collects the accumulated rows, sorts them by bankruptcy
// order (unset sorting last), and applies the mode's validation.
func (s *State) Finalize(mode Mode) (Result, error) {
	rows := make([]*Row, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, s.rows[id])
	}
	total := len(rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return sortOrder(rows[i], total) < sortOrder(rows[j], total)
	})

	res := Result{GameCode: s.gameCode, Lands: s.lands}
	switch mode {
	case ModeInference:
		active := rows[:0:0]
		for _, row := range rows {
			if row.State == update.StateActive {
				active = append(active, row)
			}
		}
		if len(active) <= 1 {
			return Result{}, &InferenceDataInvalidError{Clause: "more than 1 active player required"}
		}
		// All remaining players are considered tied for best remaining
		// placement; this is a deliberate approximation.
		for _, row := range active {
			row.BankruptcyOrder = total
		}
		res.Rows = active
		return res, nil

	default:
		if err := s.validateTraining(rows); err != nil {
			return Result{}, err
		}
		res.Rows = rows
		return res, nil
	}
}

func (s *State) validateTraining(rows []*Row) error {
	if s.exportTimestamp == 0 {
		return &TrainingDataInvalidError{Clause: "export timestamp must be provided"}
	}
	if len(rows) <= 1 {
		return &TrainingDataInvalidError{Clause: "more than 1 player required"}
	}
	if s.skipBankrupts {
		return &TrainingDataInvalidError{Clause: "all players must have more than 0 remaining skips"}
	}

	active, bankrupt := 0, 0
	for _, row := range rows {
		switch row.State {
		case update.StateActive:
			active++
		case update.StateBankrupt:
			bankrupt++
		}
	}
	if active != 1 {
		return &TrainingDataInvalidError{Clause: "only 1 active player should remain"}
	}
	if bankrupt != len(rows)-1 {
		return &TrainingDataInvalidError{Clause: "apart from 1 active player, all other players should be bankrupt"}
	}
	if active+bankrupt != len(rows) {
		return &TrainingDataInvalidError{Clause: "active & bankrupt players should add up to total players"}
	}
	for i, row := range rows {
		if row.BankruptcyOrder != i+1 {
			return &TrainingDataInvalidError{Clause: "inconsistent bankruptcy order"}
		}
	}
	return nil
}

func sortOrder(r *Row, total int) int {
	if r.BankruptcyOrder == 0 {
		return total
	}
	return r.BankruptcyOrder
}

// Aggregate folds a full log into finalized rows: fresh state, strict
// input-order application, then mode-specific finalization. The export
// timestamp may be zero for inference.
func Aggregate(records []update.Record, mode Mode, exportTimestamp int64) (Result, error) {
	s := NewState(exportTimestamp)
	for _, rec := range records {
		if err := s.Apply(rec); err != nil {
			return Result{}, err
		}
	}
	return s.Finalize(mode)
}
