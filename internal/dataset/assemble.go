// Package dataset merges finalized rows from many independent game logs
// and legacy tabular archives into one training matrix.
package dataset

import (
	"strings"

	"strategists.ai/internal/sim/feature"
)

// TrainingDropColumns are removed from the assembled matrix before it
// is handed to training: the export timestamp and bankruptcy order are
// dropped alongside inference, the username column exists only in
// legacy archives.
var TrainingDropColumns = []string{
	feature.ColExportTimestamp,
	feature.ColBankruptcyOrder,
	feature.ColPlayerUsername,
}

// Assembler accumulates matrices produced by independent log
// reductions. Matrices are aligned by column name; columns unseen so
// far extend the schema and earlier rows read as empty there.
type Assembler struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

func NewAssembler() *Assembler {
	return &Assembler{index: make(map[string]int)}
}

// Add appends every row of m, aligned to the assembler's schema.
func (a *Assembler) Add(m feature.Matrix) {
	for _, c := range m.Columns {
		if _, ok := a.index[c]; !ok {
			a.index[c] = len(a.columns)
			a.columns = append(a.columns, c)
		}
	}
	for i := range a.rows {
		for len(a.rows[i]) < len(a.columns) {
			a.rows[i] = append(a.rows[i], "")
		}
	}
	for _, row := range m.Rows {
		vals := make([]string, len(a.columns))
		for i, c := range m.Columns {
			vals[a.index[c]] = row[i]
		}
		a.rows = append(a.rows, vals)
	}
}

// RowCount reports the rows accumulated so far.
func (a *Assembler) RowCount() int { return len(a.rows) }

// Build deduplicates rows identical on every column except the export
// timestamp (the most recently added duplicate wins) and drops the
// training-irrelevant columns. It reports how many duplicates were
// removed.
func (a *Assembler) Build() (feature.Matrix, int) {
	tsIdx := feature.ColumnIndex(a.columns, feature.ColExportTimestamp)

	seen := make(map[string]bool, len(a.rows))
	keep := make([]bool, len(a.rows))
	kept := 0
	for i := len(a.rows) - 1; i >= 0; i-- {
		key := dedupeKey(a.rows[i], tsIdx)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep[i] = true
		kept++
	}

	m := feature.Matrix{Columns: a.columns, Rows: make([][]string, 0, kept)}
	for i, row := range a.rows {
		if keep[i] {
			m.Rows = append(m.Rows, row)
		}
	}
	dropped := len(a.rows) - kept
	return feature.Drop(m, TrainingDropColumns...), dropped
}

func dedupeKey(row []string, tsIdx int) string {
	var b strings.Builder
	for i, v := range row {
		if i == tsIdx {
			continue
		}
		b.WriteString(v)
		b.WriteByte('\x1f')
	}
	return b.String()
}
