package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxxle.ai/internal/sim/game"
)

// hourFile is one open <prefix>-<hour>.jsonl.zst file. Runs that reopen an
// hour append a new zstd frame; readers decode the frames back to back.
type hourFile struct {
	hour  string
	path  string
	file  *os.File
	zw    *zstd.Encoder
	enc   *json.Encoder
	lines int
}

func openHourFile(path, hour string) (*hourFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &hourFile{hour: hour, path: path, file: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// append writes v as one line and ends the zstd block so a reader of the
// live file sees it.
func (h *hourFile) append(v any) error {
	if err := h.enc.Encode(v); err != nil {
		return err
	}
	h.lines++
	return h.zw.Flush()
}

func (h *hourFile) close() error {
	zerr := h.zw.Close()
	ferr := h.file.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under dir. The hour comes from the UTC clock.
type JSONLZstdWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	cur *hourFile
}

func NewJSONLZstdWriter(dir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if w.cur == nil || w.cur.hour != hour {
		if err := w.switchTo(hour); err != nil {
			return fmt.Errorf("%s log: %w", w.prefix, err)
		}
	}
	return w.cur.append(v)
}

// Current reports the open file and how many lines this writer put in it.
// The path is empty until the first Write.
func (w *JSONLZstdWriter) Current() (path string, lines int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return "", 0
	}
	return w.cur.path, w.cur.lines
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

func (w *JSONLZstdWriter) switchTo(hour string) error {
	if w.cur != nil {
		old := w.cur
		w.cur = nil
		if err := old.close(); err != nil {
			return err
		}
	}
	name := fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour)
	h, err := openHourFile(filepath.Join(w.dir, name), hour)
	if err != nil {
		return err
	}
	w.cur = h
	return nil
}

// MoveLogger writes one JSONL entry per applied request under moves/, and
// solve records under solves/. It implements game.MoveSink and game.SolveSink.
type MoveLogger struct {
	moves  *JSONLZstdWriter
	solves *JSONLZstdWriter
}

func NewMoveLogger(dataDir string) *MoveLogger {
	return &MoveLogger{
		moves:  NewJSONLZstdWriter(filepath.Join(dataDir, "moves"), "moves"),
		solves: NewJSONLZstdWriter(filepath.Join(dataDir, "solves"), "solves"),
	}
}

func (l *MoveLogger) WriteMove(e game.MoveLogEntry) error  { return l.moves.Write(e) }
func (l *MoveLogger) RecordSolve(r game.SolveRecord) error { return l.solves.Write(r) }

func (l *MoveLogger) Close() error {
	err1 := l.moves.Close()
	err2 := l.solves.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
