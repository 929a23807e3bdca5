// Package log reads and writes game history files: newline-delimited
// JSON update records, optionally zstd-compressed. File names carry the
// game map id and the export timestamp:
// <map-id>-<game-code>-<unix-ts>.jsonl[.zst].
package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// HistoryWriter appends update records to one game's history file.
// Safe for concurrent use.
type HistoryWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewHistoryWriter opens (creating directories as needed) a history
// file for appending. A .zst suffix selects compressed output.
func NewHistoryWriter(path string) (*HistoryWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	hw := &HistoryWriter{path: path, f: f}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		hw.enc = enc
		hw.w = bufio.NewWriterSize(enc, 128*1024)
	} else {
		hw.w = bufio.NewWriterSize(f, 128*1024)
	}
	return hw, nil
}

// Path returns the file being written.
func (h *HistoryWriter) Path() string { return h.path }

// Write appends one record as a JSON line and flushes.
func (h *HistoryWriter) Write(v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := h.w.Write(b); err != nil {
		return err
	}
	if err := h.w.WriteByte('\n'); err != nil {
		return err
	}
	return h.w.Flush()
}

// WriteRaw appends an already-encoded JSON line.
func (h *HistoryWriter) WriteRaw(line []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.w.Write(line); err != nil {
		return err
	}
	if err := h.w.WriteByte('\n'); err != nil {
		return err
	}
	return h.w.Flush()
}

func (h *HistoryWriter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.w != nil {
		_ = h.w.Flush()
	}
	if h.enc != nil {
		err = h.enc.Close()
		h.enc = nil
	}
	if h.f != nil {
		if cerr := h.f.Close(); err == nil {
			err = cerr
		}
		h.f = nil
	}
	h.w = nil
	return err
}

// ReadHistory returns the raw text of a history file, decompressing
// .zst files transparently.
func ReadHistory(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(dec)
}

// ListHistoryFiles returns the history files in dir for the given game
// map id, sorted by name. A blank mapID matches everything.
func ListHistoryFiles(dir, mapID string) ([]string, error) {
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
		if strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".jsonl.zst") {
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

// ExportTimestamp extracts the trailing unix timestamp from a history
// file name.
func ExportTimestamp(path string) (int64, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".zst")
	base = strings.TrimSuffix(base, ".jsonl")
	i := strings.LastIndexByte(base, '-')
	if i < 0 || i == len(base)-1 {
		return 0, fmt.Errorf("history file %s: no export timestamp suffix", path)
	}
	ts, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("history file %s: export timestamp: %w", path, err)
	}
	return ts, nil
}
