// collector tails a game server's websocket update feed and appends
// the raw update lines to a history file named after the game map and
// the session start time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"strategists.ai/internal/collector"
	persistlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/pipeline.yaml", "pipeline config path")
		feedURL    = flag.String("url", "ws://localhost:8090/api/updates", "game server update feed ws url")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[collector] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := pipeline.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	name := fmt.Sprintf("%s-live-%d.jsonl.zst", cfg.GameMapID, time.Now().Unix())
	writer, err := persistlog.NewHistoryWriter(filepath.Join(cfg.HistoryDir, name))
	if err != nil {
		logger.Fatalf("open history file: %v", err)
	}
	logger.Printf("appending to %s", writer.Path())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := collector.New(*feedURL, writer, logger)
	runErr := c.Run(ctx)

	// Close before reporting: the zstd encoder only finishes its frame
	// on Close, so exiting early would truncate the captured session.
	if err := writer.Close(); err != nil {
		logger.Printf("close history file: %v", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Fatalf("collector: %v", runErr)
	}
}
