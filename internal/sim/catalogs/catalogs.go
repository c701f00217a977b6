package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/shapes"
)

// ErrIndexOutOfRange is returned for level (and piece) indexes outside the catalog.
var ErrIndexOutOfRange = errors.New("index out of range")

// Texture tags for piece rendering.
const (
	Red    = "red_texture"
	Orange = "orange_texture"
	Yellow = "yellow_texture"
	Pink   = "pink_texture"
	Purple = "purple_texture"
	Blue   = "blue_texture"
	Cyan   = "cyan_texture"
	Green  = "green_texture"
	White  = "white_texture"
	Gray   = "gray_texture"
)

type PieceDef struct {
	Shape   string       `json:"shape,omitempty"`
	Texture string       `json:"texture"`
	Points  []geom.Vec3i `json:"points,omitempty"`
}

type LevelDef struct {
	Name     string       `json:"name,omitempty"`
	Board    []geom.Vec3i `json:"board"`
	Pieces   []PieceDef   `json:"pieces"`
	Unlocked bool         `json:"unlocked"`
	Solved   bool         `json:"solved,omitempty"`
}

// LevelStatus is the persisted part of a level.
type LevelStatus struct {
	Level    int  `json:"level"`
	Unlocked bool `json:"unlocked"`
	Solved   bool `json:"solved"`
}

type levelState struct {
	unlocked bool
	solved   bool
}

// Catalog owns the immutable level definitions and the mutable unlock/solve flags.
// Board and piece data never change after New; only MarkSolved and Restore mutate.
type Catalog struct {
	levels  []LevelDef
	initial []levelState
	Digest  string

	mu    sync.RWMutex
	state []levelState
}

// New validates the definitions and builds a catalog. A locked level is forced unsolved.
func New(levels []LevelDef) (*Catalog, error) {
	c := &Catalog{
		levels:  make([]LevelDef, 0, len(levels)),
		initial: make([]levelState, 0, len(levels)),
	}
	for i, l := range levels {
		def, err := normalizeLevel(i, l)
		if err != nil {
			return nil, err
		}
		st := levelState{unlocked: def.Unlocked, solved: def.Unlocked && def.Solved}
		def.Solved = st.solved
		c.levels = append(c.levels, def)
		c.initial = append(c.initial, st)
	}
	c.state = append([]levelState(nil), c.initial...)

	raw, err := json.Marshal(c.levels)
	if err != nil {
		return nil, err
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

func normalizeLevel(i int, l LevelDef) (LevelDef, error) {
	if len(l.Board) == 0 {
		return l, fmt.Errorf("level %d: empty board", i)
	}
	seen := make(map[geom.Vec3i]struct{}, len(l.Board))
	for _, p := range l.Board {
		if _, dup := seen[p]; dup {
			return l, fmt.Errorf("level %d: duplicate board point %v", i, p)
		}
		seen[p] = struct{}{}
	}
	if len(l.Pieces) == 0 {
		return l, fmt.Errorf("level %d: no pieces", i)
	}
	out := LevelDef{
		Name:     l.Name,
		Board:    geom.CopyPoints(l.Board),
		Pieces:   make([]PieceDef, 0, len(l.Pieces)),
		Unlocked: l.Unlocked,
		Solved:   l.Solved,
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("Level %d", i+1)
	}
	for j, p := range l.Pieces {
		pts := geom.CopyPoints(p.Points)
		if len(pts) == 0 {
			var ok bool
			pts, ok = shapes.Lookup(p.Shape)
			if !ok {
				return l, fmt.Errorf("level %d piece %d: unknown shape %q", i, j, p.Shape)
			}
		}
		if p.Texture == "" {
			return l, fmt.Errorf("level %d piece %d: empty texture", i, j)
		}
		out.Pieces = append(out.Pieces, PieceDef{Shape: p.Shape, Texture: p.Texture, Points: pts})
	}
	return out, nil
}

// Load reads level definitions from a JSON file (an array of LevelDef).
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []LevelDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("levels.json: %w", err)
	}
	c, err := New(defs)
	if err != nil {
		return nil, fmt.Errorf("levels.json: %w", err)
	}
	return c, nil
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Load(path)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *Catalog) LevelCount() int { return len(c.levels) }

func (c *Catalog) checkIndex(i int) error {
	if i < 0 || i >= len(c.levels) {
		return fmt.Errorf("%w: level %d not in [0,%d)", ErrIndexOutOfRange, i, len(c.levels))
	}
	return nil
}

func (c *Catalog) IsUnlocked(i int) (bool, error) {
	if err := c.checkIndex(i); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state[i].unlocked, nil
}

func (c *Catalog) HasBeenSolved(i int) (bool, error) {
	if err := c.checkIndex(i); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state[i].solved, nil
}

// MarkSolved flags level i solved and unlocks the next level, if any. Idempotent.
func (c *Catalog) MarkSolved(i int) error {
	if err := c.checkIndex(i); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Solving implies the level was playable.
	c.state[i].unlocked = true
	c.state[i].solved = true
	if i+1 < len(c.state) {
		c.state[i+1].unlocked = true
	}
	return nil
}

func (c *Catalog) Name(i int) (string, error) {
	if err := c.checkIndex(i); err != nil {
		return "", err
	}
	return c.levels[i].Name, nil
}

// Board returns a copy of level i's target points.
func (c *Catalog) Board(i int) ([]geom.Vec3i, error) {
	if err := c.checkIndex(i); err != nil {
		return nil, err
	}
	return geom.CopyPoints(c.levels[i].Board), nil
}

// Pieces returns copies of level i's piece definitions.
func (c *Catalog) Pieces(i int) ([]PieceDef, error) {
	if err := c.checkIndex(i); err != nil {
		return nil, err
	}
	src := c.levels[i].Pieces
	out := make([]PieceDef, len(src))
	for j, p := range src {
		out[j] = PieceDef{Shape: p.Shape, Texture: p.Texture, Points: geom.CopyPoints(p.Points)}
	}
	return out, nil
}

// Definitions returns copies of every level definition with the initial flags.
func (c *Catalog) Definitions() []LevelDef {
	out := make([]LevelDef, len(c.levels))
	for i, l := range c.levels {
		out[i] = l
		out[i].Board = geom.CopyPoints(l.Board)
		out[i].Pieces, _ = c.Pieces(i)
	}
	return out
}

// Status is the serializable progress snapshot, one entry per level.
func (c *Catalog) Status() []LevelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]LevelStatus, len(c.state))
	for i, s := range c.state {
		out[i] = LevelStatus{Level: i, Unlocked: s.unlocked, Solved: s.solved}
	}
	return out
}

// Restore applies persisted progress. Levels unlocked by definition stay unlocked,
// a solved entry is only honored for an unlocked level, and entries for
// unknown levels are ignored.
func (c *Catalog) Restore(status []LevelStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := append([]levelState(nil), c.initial...)
	for _, s := range status {
		if s.Level < 0 || s.Level >= len(next) {
			continue
		}
		st := &next[s.Level]
		st.unlocked = st.unlocked || s.Unlocked
		st.solved = st.unlocked && (st.solved || s.Solved)
	}
	// A solved level always opens the one after it.
	for i := 0; i+1 < len(next); i++ {
		if next[i].solved {
			next[i+1].unlocked = true
		}
	}
	c.state = next
	return nil
}
