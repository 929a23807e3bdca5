// Package indexdb keeps a secondary SQLite index of processed history
// files and assembled datasets. Writes go through a single writer
// goroutine; the JSONL history files remain the source of truth.
package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// History file statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// HistoryFileRow records one log's reduction outcome.
type HistoryFileRow struct {
	Path            string
	GameCode        string
	ExportTimestamp int64
	Rows            int
	Status          string
	Error           string
}

// DatasetRow records one assembled training dataset.
type DatasetRow struct {
	MapID      string
	Path       string
	Files      int
	Rows       int
	Duplicates int
}

type reqKind int

const (
	reqHistory reqKind = iota + 1
	reqDataset
	reqSync
)

type req struct {
	kind    reqKind
	history HistoryFileRow
	dataset DatasetRow
	done    chan struct{}
}

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability
	// for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history_files (
			path TEXT PRIMARY KEY,
			game_code TEXT NOT NULL,
			export_timestamp INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_status ON history_files(status);`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			map_id TEXT NOT NULL,
			path TEXT NOT NULL,
			files INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			duplicates INTEGER NOT NULL,
			built_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_map ON datasets(map_id, built_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordHistoryFile queues one log outcome for indexing.
func (s *SQLiteIndex) RecordHistoryFile(row HistoryFileRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqHistory, history: row}:
	default:
		// Drop if the indexer falls behind; the pipeline result is
		// still the caller's to act on.
	}
}

// RecordDataset queues one dataset build record.
func (s *SQLiteIndex) RecordDataset(row DatasetRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqDataset, dataset: row}:
	default:
	}
}

// Sync blocks until every previously queued write has been applied.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

// HistoryFileCount reports indexed files with the given status; a blank
// status counts everything.
func (s *SQLiteIndex) HistoryFileCount(ctx context.Context, status string) (int, error) {
	var n int
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_files`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_files WHERE status=?`, status).Scan(&n)
	}
	return n, err
}

// LatestDataset returns the most recent dataset record for a map id.
func (s *SQLiteIndex) LatestDataset(ctx context.Context, mapID string) (DatasetRow, error) {
	var row DatasetRow
	err := s.db.QueryRowContext(ctx,
		`SELECT map_id, path, files, rows, duplicates FROM datasets WHERE map_id=? ORDER BY id DESC LIMIT 1`,
		mapID,
	).Scan(&row.MapID, &row.Path, &row.Files, &row.Rows, &row.Duplicates)
	return row, err
}

func (s *SQLiteIndex) loop() {
	insertHistory, _ := s.db.Prepare(`INSERT OR REPLACE INTO history_files
		(path, game_code, export_timestamp, rows, status, error, recorded_at)
		VALUES(?,?,?,?,?,?,?)`)
	insertDataset, _ := s.db.Prepare(`INSERT INTO datasets
		(map_id, path, files, rows, duplicates, built_at)
		VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertHistory != nil {
			_ = insertHistory.Close()
		}
		if insertDataset != nil {
			_ = insertDataset.Close()
		}
	}()

	for r := range s.ch {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		switch r.kind {
		case reqHistory:
			if insertHistory == nil {
				continue
			}
			h := r.history
			_, _ = insertHistory.Exec(h.Path, h.GameCode, h.ExportTimestamp, h.Rows, h.Status, h.Error, now)

		case reqDataset:
			if insertDataset == nil {
				continue
			}
			d := r.dataset
			_, _ = insertDataset.Exec(d.MapID, d.Path, d.Files, d.Rows, d.Duplicates, now)

		case reqSync:
			close(r.done)
		}
	}
}
