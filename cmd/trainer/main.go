// trainer runs the full training pipeline for one game map: every
// history file is reduced to feature rows, legacy archives are merged,
// and the deduplicated dataset is written out (and optionally mirrored
// to the object store).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"strategists.ai/internal/dataset"
	"strategists.ai/internal/persistence/indexdb"
	"strategists.ai/internal/persistence/r2s3"
	"strategists.ai/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/pipeline.yaml", "pipeline config path")
		mapID      = flag.String("map", "", "game map id override")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[trainer] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := pipeline.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *mapID != "" {
		cfg.GameMapID = *mapID
		cfg.DatasetPath = ""
		cfg.Normalize()
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger.Fatalf skips deferred closes, so the pipeline runs inside
	// run(), whose deferred index Close drains every queued record
	// before the process exits on failure.
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, cfg pipeline.Config, logger *log.Logger) error {
	var idx *indexdb.SQLiteIndex
	if cfg.IndexDBPath != "" {
		var err error
		idx, err = indexdb.OpenSQLite(cfg.IndexDBPath)
		if err != nil {
			return fmt.Errorf("open index db: %w", err)
		}
		defer idx.Close()
	}

	res, err := pipeline.Run(ctx, cfg, logger)
	recordFiles(idx, res)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoInputFiles) {
			return fmt.Errorf("map=%s: %w", cfg.GameMapID, err)
		}
		return fmt.Errorf("pipeline: %w", err)
	}

	if err := dataset.WriteCSV(res.Matrix, cfg.DatasetPath); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	logger.Printf("dataset map=%s path=%s files=%d legacy=%d rows=%d duplicates=%d",
		cfg.GameMapID, cfg.DatasetPath, len(res.Files), res.LegacyFiles, len(res.Matrix.Rows), res.Duplicates)

	if idx != nil {
		idx.RecordDataset(indexdb.DatasetRow{
			MapID:      cfg.GameMapID,
			Path:       cfg.DatasetPath,
			Files:      len(res.Files) + res.LegacyFiles,
			Rows:       len(res.Matrix.Rows),
			Duplicates: res.Duplicates,
		})
	}

	if cfg.ObjectStore.Enabled {
		if err := uploadDataset(ctx, cfg, logger); err != nil {
			return fmt.Errorf("upload dataset: %w", err)
		}
	}
	return nil
}

func recordFiles(idx *indexdb.SQLiteIndex, res pipeline.BatchResult) {
	if idx == nil {
		return
	}
	for _, fr := range res.Files {
		row := indexdb.HistoryFileRow{
			Path:            fr.Path,
			GameCode:        fr.GameCode,
			ExportTimestamp: fr.ExportTimestamp,
			Rows:            fr.Rows,
			Status:          indexdb.StatusOK,
		}
		if fr.Err != nil {
			row.Status = indexdb.StatusFailed
			row.Error = fr.Err.Error()
		}
		idx.RecordHistoryFile(row)
	}
}

func uploadDataset(ctx context.Context, cfg pipeline.Config, logger *log.Logger) error {
	o := cfg.ObjectStore
	client, err := r2s3.New(o.Endpoint, o.Bucket, o.AccessKeyID, o.SecretAccessKey)
	if err != nil {
		return err
	}
	key := path.Join(o.Prefix, "datasets", cfg.GameMapID+".csv")
	if err := client.PutFile(ctx, key, cfg.DatasetPath); err != nil {
		return err
	}
	logger.Printf("uploaded dataset key=%s", key)
	return nil
}
