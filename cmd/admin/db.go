package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd runs read-only queries against the move index written by the server.
func dbCmd(out io.Writer, args []string) int {
	fs := flag.NewFlagSet("db", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/moves.sqlite)")
	session := fs.String("session", "", "session filter (moves)")
	limit := fs.Int("limit", 20, "result limit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	q := "solves"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "moves.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return 1
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return 1
	}
	defer db.Close()

	var rows []map[string]any
	switch q {
	case "solves":
		rows, err = queryRows(db, `SELECT seq, ts, session, level, level_name FROM solves ORDER BY seq DESC LIMIT ?`, *limit)
	case "moves":
		if *session != "" {
			rows, err = queryRows(db, `SELECT seq, ts, session, op, ok, code, won, state, level FROM moves WHERE session = ? ORDER BY seq DESC LIMIT ?`, *session, *limit)
		} else {
			rows, err = queryRows(db, `SELECT seq, ts, session, op, ok, code, won, state, level FROM moves ORDER BY seq DESC LIMIT ?`, *limit)
		}
	case "errors":
		rows, err = queryRows(db, `SELECT code, COUNT(*) AS n FROM moves WHERE ok = 0 GROUP BY code ORDER BY n DESC LIMIT ?`, *limit)
	case "catalogs":
		rows, err = queryRows(db, `SELECT name, digest, updated_at FROM catalogs ORDER BY name`)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(solves|moves|errors|catalogs)")
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		return 1
	}
	enc := json.NewEncoder(out)
	for _, r := range rows {
		_ = enc.Encode(r)
	}
	return 0
}

func queryRows(db *sql.DB, query string, args ...any) ([]map[string]any, error) {
	rs, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rs.Err()
}
