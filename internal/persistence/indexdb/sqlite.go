package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of the move log. Writes are queued and
// applied by one goroutine; when the queue is full they are dropped.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropMoves  atomic.Uint64
	dropSolves atomic.Uint64
}

type reqKind int

const (
	reqMove reqKind = iota + 1
	reqSolve
	reqFlush
)

type req struct {
	kind reqKind

	move  game.MoveLogEntry
	solve game.SolveRecord
	done  chan struct{}
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
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS moves (
			seq INTEGER PRIMARY KEY,
			ts TEXT NOT NULL,
			session TEXT NOT NULL,
			op TEXT NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			won INTEGER NOT NULL,
			state TEXT,
			level INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_session_seq ON moves(session, seq);`,
		`CREATE TABLE IF NOT EXISTS solves (
			seq INTEGER PRIMARY KEY,
			ts TEXT NOT NULL,
			session TEXT NOT NULL,
			level INTEGER NOT NULL,
			level_name TEXT NOT NULL,
			catalog_digest TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_solves_level ON solves(level);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
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

// WriteMove implements game.MoveSink.
func (s *SQLiteIndex) WriteMove(e game.MoveLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqMove, move: e}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropMoves.Add(1)
	}
	return nil
}

// RecordSolve implements game.SolveSink.
func (s *SQLiteIndex) RecordSolve(r game.SolveRecord) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqSolve, solve: r}:
	default:
		s.dropSolves.Add(1)
	}
	return nil
}

// Flush blocks until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropMovesTotal uint64 `json:"drop_moves_total"`
	DropSolveTotal uint64 `json:"drop_solves_total"`
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropMovesTotal: s.dropMoves.Load(),
		DropSolveTotal: s.dropSolves.Load(),
	}
}

// UpsertCatalog stores the level catalog and the applied tuning as canonical JSON.
func (s *SQLiteIndex) UpsertCatalog(cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(cat.Definitions()); len(b) > 0 {
		rows = append(rows, kv{name: "levels", digest: cat.Digest, json: b})
	}
	if b, _ := json.Marshal(tune); len(b) > 0 {
		rows = append(rows, kv{name: "tuning", digest: sha256Hex(b), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Seq is unique across runs; an existing row is never rewritten.
	insertMove, _ := s.db.Prepare(`INSERT OR IGNORE INTO moves(seq,ts,session,op,ok,code,won,state,level,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertSolve, _ := s.db.Prepare(`INSERT OR IGNORE INTO solves(seq,ts,session,level,level_name,catalog_digest) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertMove != nil {
			_ = insertMove.Close()
		}
		if insertSolve != nil {
			_ = insertSolve.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqMove:
			m := r.move
			raw, _ := json.Marshal(m)
			if insertMove != nil {
				if _, err := tx.Stmt(insertMove).Exec(
					int64(m.Seq),
					m.Time.UTC().Format(time.RFC3339Nano),
					m.Session,
					string(m.Op),
					boolInt(m.OK),
					m.Code,
					boolInt(m.Won),
					m.State,
					m.Level,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		case reqSolve:
			so := r.solve
			if insertSolve != nil {
				if _, err := tx.Stmt(insertSolve).Exec(
					int64(so.Seq),
					so.Time.UTC().Format(time.RFC3339Nano),
					so.Session,
					so.Level,
					so.LevelName,
					so.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
