// mirror uploads history files and datasets to the S3-compatible
// object store configured in pipeline.yaml, and can fetch objects back
// for local reprocessing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	persistlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/persistence/r2s3"
	"strategists.ai/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/pipeline.yaml", "pipeline config path")
		fetchKey   = flag.String("fetch", "", "object key to download instead of mirroring")
		fetchDest  = flag.String("dest", "", "local path for -fetch")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[mirror] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := pipeline.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	o := cfg.ObjectStore
	if !o.Enabled {
		logger.Fatalf("object_store is not enabled in %s", *configPath)
	}
	client, err := r2s3.New(o.Endpoint, o.Bucket, o.AccessKeyID, o.SecretAccessKey)
	if err != nil {
		logger.Fatalf("object store client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *fetchKey != "" {
		if *fetchDest == "" {
			fmt.Fprintln(os.Stderr, "missing -dest")
			os.Exit(2)
		}
		if err := client.GetFile(ctx, *fetchKey, *fetchDest); err != nil {
			logger.Fatalf("fetch %s: %v", *fetchKey, err)
		}
		logger.Printf("fetched key=%s dest=%s", *fetchKey, *fetchDest)
		return
	}

	paths, err := persistlog.ListHistoryFiles(cfg.HistoryDir, cfg.GameMapID)
	if err != nil {
		logger.Fatalf("list history files: %v", err)
	}
	m := r2s3.NewMirror(client, cfg.HistoryDir, path.Join(o.Prefix, "history"), o.UploadWorkers, logger)
	for _, p := range paths {
		m.Enqueue(p)
	}
	if _, err := os.Stat(cfg.DatasetPath); err == nil {
		dm := r2s3.NewMirror(client, ".", o.Prefix, 1, logger)
		dm.Enqueue(cfg.DatasetPath)
		dm.Close()
	}
	m.Close()

	stats := m.Stats()
	logger.Printf("mirrored history files=%d uploaded=%d failed=%d dropped=%d",
		len(paths), stats.UploadSuccessTotal, stats.UploadFailTotal, stats.DroppedTotal)
}
