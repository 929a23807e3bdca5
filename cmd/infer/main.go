// infer reduces an in-progress game's history in inference mode and
// asks the predictions service for each active player's win
// probability.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	persistlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/pipeline"
	"strategists.ai/internal/serving"
	"strategists.ai/internal/sim/feature"
	"strategists.ai/internal/sim/game"
	"strategists.ai/internal/update"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/pipeline.yaml", "pipeline config path")
		input      = flag.String("input", "", "history file of the in-progress game")
		servingURL = flag.String("serving_url", "", "predictions service base url override")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[infer] ", log.LstdFlags|log.Lmicroseconds)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing -input")
		os.Exit(2)
	}
	cfg, err := pipeline.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	baseURL := cfg.Serving.BaseURL
	if *servingURL != "" {
		baseURL = *servingURL
	}
	scorer, err := serving.NewHTTPScorer(baseURL)
	if err != nil {
		logger.Fatalf("serving: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	text, err := persistlog.ReadHistory(*input)
	if err != nil {
		logger.Fatalf("read history: %v", err)
	}
	records, err := update.DecodeLines(text)
	if err != nil {
		logger.Fatalf("decode: %v", err)
	}
	res, err := game.Aggregate(records, game.ModeInference, 0)
	if err != nil {
		logger.Fatalf("aggregate: %v", err)
	}
	m := feature.FromResult(res)

	scores, err := scorer.Score(ctx, cfg.GameMapID, m)
	if err != nil {
		logger.Fatalf("score: %v", err)
	}
	for _, s := range scores {
		fmt.Printf("game=%s player=%d win_probability=%.4f\n", s.GameCode, s.PlayerID, s.WinProbability)
	}
}
