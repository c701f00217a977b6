package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"voxxle.ai/internal/sim/game"
)

// ListFiles returns dir's <prefix>-*.jsonl.zst files in write order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ScanFile calls fn for every line of a JSONL zstd file.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadMoves loads every move entry under dataDir/moves, ordered by Seq.
// A missing moves directory yields no entries.
func ReadMoves(dataDir string) ([]game.MoveLogEntry, error) {
	files, err := ListFiles(filepath.Join(dataDir, "moves"), "moves")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []game.MoveLogEntry
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error {
			var e game.MoveLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// LastSeq returns the highest Seq logged under dataDir/moves, or 0 when
// nothing has been logged. Files are scanned newest first and the first one
// holding an entry decides.
func LastSeq(dataDir string) (uint64, error) {
	files, err := ListFiles(filepath.Join(dataDir, "moves"), "moves")
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		var last uint64
		err := ScanFile(files[i], func(line []byte) error {
			var e struct {
				Seq uint64 `json:"seq"`
			}
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(files[i]), err)
			}
			last = max(last, e.Seq)
			return nil
		})
		if err != nil {
			return 0, err
		}
		if last > 0 {
			return last, nil
		}
	}
	return 0, nil
}
