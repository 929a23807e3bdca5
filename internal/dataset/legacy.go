package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"strategists.ai/internal/sim/feature"
)

// ReadLegacyCSV loads one pre-tabulated archive file. The header row is
// the column list; numeric cells are normalized to their canonical
// decimal rendering so legacy rows deduplicate against freshly reduced
// ones regardless of the archive's float formatting.
func ReadLegacyCSV(path string) (feature.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return feature.Matrix{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return feature.Matrix{}, fmt.Errorf("legacy csv %s: %w", path, err)
	}
	if len(all) == 0 {
		return feature.Matrix{}, fmt.Errorf("legacy csv %s: missing header", path)
	}

	m := feature.Matrix{Columns: all[0]}
	for _, rec := range all[1:] {
		row := make([]string, len(rec))
		for i, cell := range rec {
			row[i] = normalizeCell(cell)
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// WriteCSV writes a matrix with its header row, creating parent
// directories as needed.
func WriteCSV(m feature.Matrix, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(m.Columns); err != nil {
		_ = f.Close()
		return err
	}
	for _, row := range m.Rows {
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func normalizeCell(cell string) string {
	if cell == "" {
		return cell
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return cell
	}
	return d.String()
}
