// aggregate reduces one game history file to feature rows and prints
// (or writes) them as CSV. Useful for inspecting a single log without
// running the whole training pipeline.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"strategists.ai/internal/dataset"
	persistlog "strategists.ai/internal/persistence/log"
	"strategists.ai/internal/sim/feature"
	"strategists.ai/internal/sim/game"
	"strategists.ai/internal/update"
)

func main() {
	var (
		input = flag.String("input", "", "history file (.jsonl or .jsonl.zst)")
		mode  = flag.String("mode", "training", "finalization mode: training or inference")
		out   = flag.String("out", "", "output csv path (default: stdout)")
		ts    = flag.Int64("export_ts", 0, "export timestamp override (default: from file name)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[aggregate] ", log.LstdFlags|log.Lmicroseconds)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "missing -input")
		os.Exit(2)
	}
	var fmode game.Mode
	switch *mode {
	case "training":
		fmode = game.ModeTraining
	case "inference":
		fmode = game.ModeInference
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q\n", *mode)
		os.Exit(2)
	}

	exportTS := *ts
	if exportTS == 0 && fmode == game.ModeTraining {
		v, err := persistlog.ExportTimestamp(*input)
		if err != nil {
			logger.Fatalf("export timestamp: %v", err)
		}
		exportTS = v
	}

	text, err := persistlog.ReadHistory(*input)
	if err != nil {
		logger.Fatalf("read history: %v", err)
	}
	records, err := update.DecodeLines(text)
	if err != nil {
		logger.Fatalf("decode: %v", err)
	}
	res, err := game.Aggregate(records, fmode, exportTS)
	if err != nil {
		logger.Fatalf("aggregate: %v", err)
	}
	m := feature.FromResult(res)
	logger.Printf("game=%s lands=%d rows=%d", res.GameCode, len(res.Lands), len(m.Rows))

	if *out != "" {
		if err := dataset.WriteCSV(m, *out); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
		return
	}
	w := csv.NewWriter(os.Stdout)
	if err := w.Write(m.Columns); err != nil {
		logger.Fatalf("write csv: %v", err)
	}
	for _, row := range m.Rows {
		if err := w.Write(row); err != nil {
			logger.Fatalf("write csv: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Fatalf("write csv: %v", err)
	}
}
