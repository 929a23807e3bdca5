// Package feature flattens finalized player rows into the tabular
// matrix consumed by the dataset assembler and the model-serving
// boundary. Column naming follows the section.field convention, with
// per-land columns named section.subsection.<land-name>.
package feature

import (
	"strconv"

	"strategists.ai/internal/sim/game"
)

// Columns always present, before and between the per-land groups.
const (
	ColExportTimestamp = "game.export.timestamp"
	ColGameCode        = "game.code"
	ColBankruptcyOrder = "game.bankruptcy-order"
	ColPlayerID        = "player.id"
	ColPlayerBaseCash  = "player.base-cash"
	ColPlayerState     = "player.state"
	ColPlayerUsername  = "player.username" // legacy archives only
)

// Matrix is a column-ordered table of flattened rows.
type Matrix struct {
	Columns []string
	Rows    [][]string
}

// Columns returns the full column list for the given land set, in the
// order rows are flattened.
func Columns(lands []game.Land) []string {
	cols := make([]string, 0, 20+4*len(lands))
	cols = append(cols,
		ColExportTimestamp,
		ColGameCode,
		ColBankruptcyOrder,
		ColPlayerID,
		ColPlayerBaseCash,
		ColPlayerState,
		"ownership.total",
		"ownership.count",
	)
	for _, l := range lands {
		cols = append(cols, "ownership."+l.Name)
	}
	cols = append(cols,
		"debit.total",
		"debit.count",
		"debit.invest.total",
		"debit.invest.count",
	)
	for _, l := range lands {
		cols = append(cols, "debit.invest."+l.Name)
	}
	cols = append(cols, "debit.rent.total", "debit.rent.count")
	for _, l := range lands {
		cols = append(cols, "debit.rent."+l.Name)
	}
	cols = append(cols,
		"credit.total",
		"credit.count",
		"credit.rent.total",
		"credit.rent.count",
	)
	for _, l := range lands {
		cols = append(cols, "credit.rent."+l.Name)
	}
	return cols
}

// Flatten renders one row in Columns order. An unset export timestamp
// or bankruptcy order renders as an empty cell.
func Flatten(row *game.Row, lands []game.Land) []string {
	vals := make([]string, 0, 20+4*len(lands))
	ts := ""
	if row.ExportTimestamp != 0 {
		ts = strconv.FormatInt(row.ExportTimestamp, 10)
	}
	order := ""
	if row.BankruptcyOrder != 0 {
		order = strconv.Itoa(row.BankruptcyOrder)
	}
	vals = append(vals,
		ts,
		row.GameCode,
		order,
		strconv.FormatInt(row.PlayerID, 10),
		row.BaseCash.String(),
		row.State,
		row.OwnershipTotal.String(),
		strconv.Itoa(row.OwnershipCount),
	)
	for i := range lands {
		vals = append(vals, row.Lands[i].Ownership.String())
	}
	vals = append(vals,
		row.DebitTotal.String(),
		strconv.Itoa(row.DebitCount),
		row.DebitInvestTotal.String(),
		strconv.Itoa(row.DebitInvestCount),
	)
	for i := range lands {
		vals = append(vals, row.Lands[i].DebitInvest.String())
	}
	vals = append(vals, row.DebitRentTotal.String(), strconv.Itoa(row.DebitRentCount))
	for i := range lands {
		vals = append(vals, row.Lands[i].DebitRent.String())
	}
	vals = append(vals,
		row.CreditTotal.String(),
		strconv.Itoa(row.CreditCount),
		row.CreditRentTotal.String(),
		strconv.Itoa(row.CreditRentCount),
	)
	for i := range lands {
		vals = append(vals, row.Lands[i].CreditRent.String())
	}
	return vals
}

// FromResult flattens a whole finalized result.
func FromResult(res game.Result) Matrix {
	m := Matrix{Columns: Columns(res.Lands)}
	for _, row := range res.Rows {
		m.Rows = append(m.Rows, Flatten(row, res.Lands))
	}
	return m
}

// ColumnIndex returns the position of name in cols, or -1.
func ColumnIndex(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Drop returns a copy of m without the named columns. Unknown names are
// ignored.
func Drop(m Matrix, names ...string) Matrix {
	dropped := make(map[string]bool, len(names))
	for _, n := range names {
		dropped[n] = true
	}
	keep := make([]int, 0, len(m.Columns))
	out := Matrix{}
	for i, c := range m.Columns {
		if !dropped[c] {
			keep = append(keep, i)
			out.Columns = append(out.Columns, c)
		}
	}
	for _, row := range m.Rows {
		vals := make([]string, 0, len(keep))
		for _, i := range keep {
			vals = append(vals, row[i])
		}
		out.Rows = append(out.Rows, vals)
	}
	return out
}
