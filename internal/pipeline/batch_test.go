package pipeline

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"strategists.ai/internal/sim/feature"
)

const goodGameLog = `{"gameCode":"G1","gameStep":1,"type":"CREATE","payload":{"game":{"code":"G1"},"players":[{"id":1,"index":0,"state":"ACTIVE","cash":1000},{"id":2,"index":1,"state":"ACTIVE","cash":1000}],"lands":[{"id":11,"name":"mumbai"},{"id":12,"name":"delhi"}]}}
{"gameCode":"G1","gameStep":2,"type":"BANKRUPTCY","payload":{"lands":[],"players":[{"id":2,"index":1,"state":"BANKRUPT","turn":true}]}}
{"gameCode":"G1","gameStep":3,"type":"WIN","payload":{"id":1,"index":0,"state":"ACTIVE"}}
`

// CREATE never arrives, so the JOIN violates a consistency rule.
const badGameLog = `{"gameCode":"G2","gameStep":1,"type":"JOIN","payload":{"id":1,"index":0,"state":"ACTIVE","cash":1000}}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRun_SkipsFailingLogs(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(historyDir, "india-G1-1700000000.jsonl"), goodGameLog)
	writeFile(t, filepath.Join(historyDir, "india-G2-1700000001.jsonl"), badGameLog)

	cfg := Config{GameMapID: "india", HistoryDir: historyDir, Workers: 2}
	cfg.Normalize()

	logger := log.New(io.Discard, "", 0)
	res, err := Run(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Files) != 2 {
		t.Fatalf("files=%d", len(res.Files))
	}
	if res.Files[0].Err != nil {
		t.Fatalf("good log failed: %v", res.Files[0].Err)
	}
	if res.Files[0].GameCode != "G1" || res.Files[0].Rows != 2 {
		t.Fatalf("good log result: %+v", res.Files[0])
	}
	if res.Files[1].Err == nil {
		t.Fatalf("bad log did not fail")
	}

	if len(res.Matrix.Rows) != 2 {
		t.Fatalf("matrix rows=%d", len(res.Matrix.Rows))
	}
	// Training matrices carry neither the timestamp nor the order.
	if feature.ColumnIndex(res.Matrix.Columns, feature.ColExportTimestamp) != -1 {
		t.Fatalf("timestamp column survived: %v", res.Matrix.Columns)
	}
}

func TestRun_MergesLegacyArchives(t *testing.T) {
	dir := t.TempDir()
	historyDir := filepath.Join(dir, "history")
	legacyDir := filepath.Join(dir, "legacy")
	for _, d := range []string{historyDir, legacyDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	writeFile(t, filepath.Join(historyDir, "india-G1-1700000000.jsonl"), goodGameLog)
	writeFile(t, filepath.Join(legacyDir, "india-archive.csv"),
		"game.code,player.id,player.username,player.state\nOLD,9,carol,ACTIVE\n")

	cfg := Config{GameMapID: "india", HistoryDir: historyDir, LegacyDir: legacyDir, Workers: 1}
	cfg.Normalize()

	logger := log.New(io.Discard, "", 0)
	res, err := Run(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.LegacyFiles != 1 {
		t.Fatalf("legacy files=%d", res.LegacyFiles)
	}
	if len(res.Matrix.Rows) != 3 {
		t.Fatalf("matrix rows=%d want 2 fresh + 1 legacy", len(res.Matrix.Rows))
	}
	if feature.ColumnIndex(res.Matrix.Columns, feature.ColPlayerUsername) != -1 {
		t.Fatalf("username column survived: %v", res.Matrix.Columns)
	}
}

func TestRun_NoInputFiles(t *testing.T) {
	historyDir := t.TempDir()
	cfg := Config{GameMapID: "india", HistoryDir: historyDir, Workers: 1}
	cfg.Normalize()

	_, err := Run(context.Background(), cfg, log.New(io.Discard, "", 0))
	if err != ErrNoInputFiles {
		t.Fatalf("err=%v want ErrNoInputFiles", err)
	}
}
