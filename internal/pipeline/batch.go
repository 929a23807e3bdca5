package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"strategists.ai/internal/dataset"
	persistlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/sim/feature"
	"strategists.ai/internal/sim/game"
	"strategists.ai/internal/update"
)

// ErrNoInputFiles means neither history files nor legacy archives
// yielded a single usable row source.
var ErrNoInputFiles = errors.New("no history or legacy archive files found")

// FileResult is one history file's reduction outcome.
type FileResult struct {
	Path            string
	GameCode        string
	ExportTimestamp int64
	Rows            int
	Err             error

	matrix feature.Matrix
}

// BatchResult is the assembled training output of one pipeline run.
type BatchResult struct {
	Matrix      feature.Matrix
	Files       []FileResult
	LegacyFiles int
	Duplicates  int
}

// Run reduces every history file for the configured game map across a
// worker pool, merges legacy archives, and assembles the deduplicated
// training matrix. Per-file failures are recorded and skipped; Run only
// errors when no input file could contribute at all.
func Run(ctx context.Context, cfg Config, logger *log.Logger) (BatchResult, error) {
	paths, err := persistlog.ListHistoryFiles(cfg.HistoryDir, cfg.GameMapID)
	if err != nil {
		return BatchResult{}, err
	}

	results := reduceAll(ctx, paths, cfg.Workers)

	asm := dataset.NewAssembler()

	// Legacy archives first: on duplicates the freshly reduced rows win.
	legacyPaths, err := listLegacyFiles(cfg.LegacyDir, cfg.GameMapID)
	if err != nil {
		return BatchResult{}, err
	}
	legacy := 0
	for _, path := range legacyPaths {
		m, err := dataset.ReadLegacyCSV(path)
		if err != nil {
			logger.Printf("ignoring legacy archive %s: %v", path, err)
			continue
		}
		asm.Add(m)
		legacy++
	}

	out := BatchResult{Files: results, LegacyFiles: legacy}
	ok := 0
	for i, res := range results {
		if res.Err != nil {
			logger.Printf("ignoring history file %s: %v", res.Path, res.Err)
			continue
		}
		asm.Add(res.matrix)
		results[i].matrix = feature.Matrix{}
		ok++
	}

	if ok+legacy == 0 {
		return out, ErrNoInputFiles
	}

	out.Matrix, out.Duplicates = asm.Build()
	if out.Duplicates > 0 {
		logger.Printf("identified %d duplicate rows", out.Duplicates)
	}
	return out, nil
}

// reduceAll fans history files out to workers. Each file is reduced
// with its own game state; results come back in input order.
func reduceAll(ctx context.Context, paths []string, workers int) []FileResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]FileResult, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = reduceOne(paths[i])
			}
		}()
	}
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(paths); j++ {
				results[j] = FileResult{Path: paths[j], Err: ctx.Err()}
			}
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func reduceOne(path string) FileResult {
	res := FileResult{Path: path}

	ts, err := persistlog.ExportTimestamp(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.ExportTimestamp = ts

	text, err := persistlog.ReadHistory(path)
	if err != nil {
		res.Err = err
		return res
	}
	records, err := update.DecodeLines(text)
	if err != nil {
		res.Err = err
		return res
	}

	reduced, err := game.Aggregate(records, game.ModeTraining, ts)
	if err != nil {
		res.Err = err
		return res
	}
	res.GameCode = reduced.GameCode
	res.Rows = len(reduced.Rows)
	res.matrix = feature.FromResult(reduced)
	return res
}

func listLegacyFiles(dir, mapID string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if mapID != "" && !strings.HasPrefix(name, mapID) {
			continue
		}
		if strings.HasSuffix(name, ".csv") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
