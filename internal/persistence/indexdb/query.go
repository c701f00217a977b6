package indexdb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

type LevelSolves struct {
	Level     int    `json:"level"`
	LevelName string `json:"level_name"`
	Solves    int    `json:"solves"`
	Sessions  int    `json:"sessions"`
}

// SolvesByLevel aggregates the solves table for the status endpoint.
func (s *SQLiteIndex) SolvesByLevel(ctx context.Context) ([]LevelSolves, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, MAX(level_name), COUNT(*), COUNT(DISTINCT session)
		FROM solves GROUP BY level ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LevelSolves
	for rows.Next() {
		var ls LevelSolves
		if err := rows.Scan(&ls.Level, &ls.LevelName, &ls.Solves, &ls.Sessions); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// MoveCount returns the number of indexed moves, optionally for one session.
func (s *SQLiteIndex) MoveCount(ctx context.Context, session string) (int, error) {
	var n int
	var err error
	if session == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moves`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moves WHERE session = ?`, session).Scan(&n)
	}
	return n, err
}

// MaxSeq returns the highest indexed move seq, or 0 for an empty index.
func (s *SQLiteIndex) MaxSeq(ctx context.Context) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM moves`).Scan(&n)
	return uint64(n), err
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
