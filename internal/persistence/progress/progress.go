// Package progress persists level unlock/solve flags as a zstd-compressed file:
// one JSON header line followed by the JSON status body.
package progress

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxxle.ai/internal/sim/catalogs"
)

const Version = 1

type Header struct {
	Version       int       `json:"version"`
	CatalogDigest string    `json:"catalog_digest"`
	SavedAt       time.Time `json:"saved_at"`
}

type FileV1 struct {
	Header Header                 `json:"header"`
	Levels []catalogs.LevelStatus `json:"levels"`
}

// ErrDigestMismatch is returned by Restore when the file was written for a different catalog.
var ErrDigestMismatch = errors.New("progress: catalog digest mismatch")

func Write(path string, f FileV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, f); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, f FileV1) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)

	hb, _ := json.Marshal(f.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(f.Levels); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return out.Sync()
}

func Read(path string) (FileV1, error) {
	var f FileV1
	in, err := os.Open(path)
	if err != nil {
		return f, err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return f, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return f, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &f.Header); err != nil {
		return f, fmt.Errorf("decode header: %w", err)
	}
	if f.Header.Version != Version {
		return f, fmt.Errorf("progress: unsupported version %d", f.Header.Version)
	}
	if err := json.NewDecoder(br).Decode(&f.Levels); err != nil {
		return f, fmt.Errorf("decode levels: %w", err)
	}
	return f, nil
}

// Store saves catalog progress to a single file. It implements game.ProgressStore.
type Store struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewStore(path string) *Store { return &Store{path: path, now: time.Now} }

func (s *Store) Path() string { return s.path }

func (s *Store) SaveProgress(digest string, status []catalogs.LevelStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Write(s.path, FileV1{
		Header: Header{Version: Version, CatalogDigest: digest, SavedAt: s.now().UTC()},
		Levels: status,
	})
}

// Restore loads saved progress into cat. A missing file is not an error.
// Progress saved against another catalog is rejected unless force is set.
func (s *Store) Restore(cat *catalogs.Catalog, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := Read(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if f.Header.CatalogDigest != cat.Digest && !force {
		return false, fmt.Errorf("%w: file %.12s, catalog %.12s", ErrDigestMismatch, f.Header.CatalogDigest, cat.Digest)
	}
	if err := cat.Restore(f.Levels); err != nil {
		return false, err
	}
	return true, nil
}
