package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHistoryWriter_RoundTrip(t *testing.T) {
	for _, name := range []string{"india-G1-100.jsonl", "india-G1-100.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := NewHistoryWriter(path)
			if err != nil {
				t.Fatalf("NewHistoryWriter: %v", err)
			}
			if err := w.Write(map[string]any{"gameStep": 1, "type": "CREATE"}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.WriteRaw([]byte(`{"gameStep":2,"type":"TURN"}`)); err != nil {
				t.Fatalf("WriteRaw: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			text, err := ReadHistory(path)
			if err != nil {
				t.Fatalf("ReadHistory: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(string(text)), "\n")
			if len(lines) != 2 {
				t.Fatalf("lines=%d: %q", len(lines), text)
			}
			if !strings.Contains(lines[0], `"CREATE"`) || !strings.Contains(lines[1], `"TURN"`) {
				t.Fatalf("content: %q", text)
			}
		})
	}
}

func TestListHistoryFiles_FiltersByMapAndSuffix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"india-G1-100.jsonl",
		"india-G2-200.jsonl.zst",
		"europe-G3-300.jsonl",
		"india-notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	paths, err := ListHistoryFiles(dir, "india")
	if err != nil {
		t.Fatalf("ListHistoryFiles: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths=%v", paths)
	}
	if filepath.Base(paths[0]) != "india-G1-100.jsonl" || filepath.Base(paths[1]) != "india-G2-200.jsonl.zst" {
		t.Fatalf("paths=%v", paths)
	}
}

func TestExportTimestamp(t *testing.T) {
	ts, err := ExportTimestamp("/data/history/india-G1-1700000000.jsonl.zst")
	if err != nil {
		t.Fatalf("ExportTimestamp: %v", err)
	}
	if ts != 1700000000 {
		t.Fatalf("ts=%d", ts)
	}

	if _, err := ExportTimestamp("nodigits.jsonl"); err == nil {
		t.Fatalf("expected error for missing suffix")
	}
}
