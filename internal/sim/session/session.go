// Package session implements the single-player puzzle state machine.
//
// A Session is not safe for concurrent use; the game loop owns it.
package session

import (
	"fmt"

	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/transform"
	"voxxle.ai/internal/sim/validate"
)

type State int

const (
	Idle State = iota
	LevelLoaded
	PieceGrabbed
	Solved
)

var stateNames = [...]string{"IDLE", "LEVEL_LOADED", "PIECE_GRABBED", "SOLVED"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Options struct {
	Rounding      geom.RoundingMode
	SpawnSpacing  int
	SpawnHeight   int
	StrictOverlap bool
}

func DefaultOptions() Options {
	return Options{
		Rounding:     geom.RoundHalfAwayFromZero,
		SpawnSpacing: 3,
		SpawnHeight:  3,
	}
}

// Piece is a level piece instance. Pose is the last committed pose.
type Piece struct {
	ID      string
	Shape   string
	Texture string
	Points  []geom.Vec3i
	Pose    transform.Pose
}

// Evaluation is the outcome of a validation pass over committed poses.
type Evaluation struct {
	Valid    map[string]bool `json:"valid"`
	Covered  bool            `json:"covered"`
	Won      bool            `json:"won"`
	Overlaps []geom.Vec3i    `json:"overlaps,omitempty"`
}

type Session struct {
	cat  *catalogs.Catalog
	opts Options

	state  State
	level  int
	board  validate.Board
	pieces []*Piece
	byID   map[string]*Piece

	grabbed *Piece
	grab    *transform.Grab
	last    Evaluation
}

func New(cat *catalogs.Catalog, opts Options) *Session {
	if opts.SpawnSpacing <= 0 {
		opts.SpawnSpacing = 3
	}
	return &Session{cat: cat, opts: opts, level: -1}
}

func (s *Session) State() State { return s.state }

// Level is the loaded level index, or -1 when idle.
func (s *Session) Level() int { return s.level }

func (s *Session) CatalogStatus() []catalogs.LevelStatus { return s.cat.Status() }

// LoadLevel starts (or restarts) level i. Any previous working state is discarded.
func (s *Session) LoadLevel(i int) (Snapshot, error) {
	unlocked, err := s.cat.IsUnlocked(i)
	if err != nil {
		return Snapshot{}, err
	}
	if !unlocked {
		return Snapshot{}, fmt.Errorf("%w: level %d", ErrLevelLocked, i)
	}
	board, err := s.cat.Board(i)
	if err != nil {
		return Snapshot{}, err
	}
	defs, err := s.cat.Pieces(i)
	if err != nil {
		return Snapshot{}, err
	}

	n := len(defs)
	pieces := make([]*Piece, n)
	byID := make(map[string]*Piece, n)
	for k, d := range defs {
		spawn := geom.Vec3i{
			X: -s.opts.SpawnSpacing*n/2 + s.opts.SpawnSpacing*k,
			Y: s.opts.SpawnHeight,
		}
		p := &Piece{
			ID:      fmt.Sprintf("P%d", k+1),
			Shape:   d.Shape,
			Texture: d.Texture,
			Points:  d.Points,
			Pose:    transform.At(spawn),
		}
		pieces[k] = p
		byID[p.ID] = p
	}

	s.level = i
	s.board = validate.NewBoard(board)
	s.pieces = pieces
	s.byID = byID
	s.grabbed, s.grab = nil, nil
	s.state = LevelLoaded
	if _, err := s.evaluate(); err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

func (s *Session) piece(id string) (*Piece, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: piece %q", catalogs.ErrIndexOutOfRange, id)
	}
	return p, nil
}

// Grab starts a free-form move of one piece.
func (s *Session) Grab(id string) error {
	if s.state != LevelLoaded {
		return transitionErr("grab", s.state)
	}
	p, err := s.piece(id)
	if err != nil {
		return err
	}
	s.grabbed = p
	s.grab = transform.NewGrab(p.Pose)
	s.state = PieceGrabbed
	return nil
}

// Translate accumulates a continuous offset on the grabbed piece.
func (s *Session) Translate(id string, delta geom.Vec3) error {
	if s.state != PieceGrabbed {
		return transitionErr("translate", s.state)
	}
	p, err := s.piece(id)
	if err != nil {
		return err
	}
	if p != s.grabbed {
		return fmt.Errorf("%w: translate %s while holding %s", ErrInvalidTransition, id, s.grabbed.ID)
	}
	if !delta.InBounds() || !s.grab.Live().Pos.Add(delta).InBounds() {
		return fmt.Errorf("%w: translate %s by %+v", ErrOutOfBounds, id, delta)
	}
	s.grab.Move(delta)
	return nil
}

// Release commits the grabbed piece at its snapped position and re-validates.
func (s *Session) Release() (Evaluation, error) {
	if s.state != PieceGrabbed {
		return Evaluation{}, transitionErr("release", s.state)
	}
	s.grabbed.Pose = s.grab.Bake(s.opts.Rounding)
	s.grabbed, s.grab = nil, nil
	s.state = LevelLoaded
	return s.evaluate()
}

// Cancel drops the in-progress move; the piece keeps its committed pose.
func (s *Session) Cancel() error {
	if s.state != PieceGrabbed {
		return transitionErr("cancel", s.state)
	}
	s.grabbed, s.grab = nil, nil
	s.state = LevelLoaded
	return nil
}

// Rotate applies one quarter turn chosen from the hint. While a piece is
// held only that piece may be turned, and the held offset is kept.
func (s *Session) Rotate(id string, h transform.Hint) (Evaluation, error) {
	if s.state != LevelLoaded && s.state != PieceGrabbed {
		return Evaluation{}, transitionErr("rotate", s.state)
	}
	p, err := s.piece(id)
	if err != nil {
		return Evaluation{}, err
	}
	if s.grabbed != nil && p != s.grabbed {
		return Evaluation{}, fmt.Errorf("%w: rotate %s while holding %s", ErrInvalidTransition, id, s.grabbed.ID)
	}
	turn, err := transform.TurnFor(h)
	if err != nil {
		return Evaluation{}, err
	}
	p.Pose = p.Pose.Rotate(turn)
	if s.grab != nil {
		s.grab.Anchor = p.Pose
	}
	return s.evaluate()
}

// Exit returns to level selection from any state.
func (s *Session) Exit() {
	s.state = Idle
	s.level = -1
	s.board = validate.Board{}
	s.pieces, s.byID = nil, nil
	s.grabbed, s.grab = nil, nil
	s.last = Evaluation{}
}

func (s *Session) placements() []validate.Placement {
	out := make([]validate.Placement, len(s.pieces))
	for i, p := range s.pieces {
		out[i] = validate.Placement{ID: p.ID, Points: p.Points, Pose: p.Pose}
	}
	return out
}

// evaluate validates committed poses and applies a win. A win the catalog
// refuses to record is reported as an error and leaves the session playable.
func (s *Session) evaluate() (Evaluation, error) {
	res := validate.Evaluate(s.board, s.placements(), validate.Options{
		Rounding:      s.opts.Rounding,
		StrictOverlap: s.opts.StrictOverlap,
	})
	s.last = Evaluation{Valid: res.Valid, Covered: res.Covered, Won: res.Won, Overlaps: res.Overlaps}
	if res.Won {
		if err := s.cat.MarkSolved(s.level); err != nil {
			s.last.Won = false
			return s.last, fmt.Errorf("mark level %d solved: %w", s.level, err)
		}
		s.grabbed, s.grab = nil, nil
		s.state = Solved
	}
	return s.last, nil
}
