// Package transform applies discrete rigid moves to piece poses.
//
// Rotations are quarter turns about principal axes, composed exactly as
// integer matrices. Positions are continuous while a piece is held and are
// snapped back to the lattice when it is let go. Nothing here decides whether
// a pose is legal.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"voxxle.ai/internal/sim/geom"
)

// Pose places a piece in board space: voxel' = Rot*voxel + Pos.
type Pose struct {
	Rot geom.Rot  `json:"rot"`
	Pos geom.Vec3 `json:"pos"`
}

// At returns an unrotated pose at an integer position.
func At(p geom.Vec3i) Pose { return Pose{Rot: geom.Identity, Pos: p.Float()} }

// Turn is a rotation of Quarters*90 degrees about Axis.
type Turn struct {
	Axis     geom.Axis `json:"axis"`
	Quarters int       `json:"quarters"`
}

func (t Turn) String() string {
	return fmt.Sprintf("%s%+d", t.Axis, t.Quarters*90)
}

// Rotate turns the piece about its own origin. The axis is expressed in the
// board-aligned frame, so the turn is applied after the existing rotation.
func (p Pose) Rotate(t Turn) Pose {
	p.Rot = geom.QuarterTurn(t.Axis, t.Quarters).Mul(p.Rot)
	return p
}

func (p Pose) Translate(d geom.Vec3) Pose {
	p.Pos = p.Pos.Add(d)
	return p
}

// Place maps local voxels into board space, rounding each one onto the lattice.
func (p Pose) Place(local []geom.Vec3i, mode geom.RoundingMode) []geom.Vec3i {
	out := make([]geom.Vec3i, len(local))
	for i, v := range local {
		out[i] = geom.Round(p.Rot.Apply(v).Float().Add(p.Pos), mode)
	}
	return out
}

// Snap rounds the position onto the lattice. The rotation is already discrete.
func Snap(p Pose, mode geom.RoundingMode) Pose {
	p.Pos = geom.Round(p.Pos, mode).Float()
	return p
}

// Gesture is the manipulation family a rotation request came from.
type Gesture int

const (
	SwipeUp Gesture = iota + 1
	SwipeDown
	SwipeLeft
	SwipeRight
	DoubleTap
	// Explicit carries an axis and quarter count directly.
	Explicit
)

var gestureNames = map[Gesture]string{
	SwipeUp:    "SWIPE_UP",
	SwipeDown:  "SWIPE_DOWN",
	SwipeLeft:  "SWIPE_LEFT",
	SwipeRight: "SWIPE_RIGHT",
	DoubleTap:  "DOUBLE_TAP",
	Explicit:   "EXPLICIT",
}

func (g Gesture) String() string {
	if s, ok := gestureNames[g]; ok {
		return s
	}
	return fmt.Sprintf("Gesture(%d)", int(g))
}

func ParseGesture(s string) (Gesture, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for g, name := range gestureNames {
		if name == s {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGesture, s)
}

var (
	ErrUnknownGesture = errors.New("unknown gesture")
	ErrBadTurn        = errors.New("bad explicit turn")
)

// Hint describes a rotation request. Forward is a reference point in front of
// the viewer, expressed in the piece's frame; Axis and Quarters are only read
// for Explicit.
type Hint struct {
	Gesture  Gesture   `json:"gesture"`
	Forward  geom.Vec3 `json:"forward"`
	Axis     geom.Axis `json:"axis,omitempty"`
	Quarters int       `json:"quarters,omitempty"`
}

func sign(f float64) int {
	if f > 0 {
		return 1
	}
	return -1
}

// TurnFor resolves a gesture into exactly one quarter turn.
//
// Vertical swipes turn about the horizontal axis closest to perpendicular to
// the forward direction; a double tap turns about the one closest to parallel.
// Ties between |x| and |z| resolve toward the z-driven branch.
func TurnFor(h Hint) (Turn, error) {
	f := h.Forward
	xDominant := math.Abs(f.X) > math.Abs(f.Z)
	switch h.Gesture {
	case SwipeUp:
		if xDominant {
			return Turn{Axis: geom.AxisZ, Quarters: -sign(f.X)}, nil
		}
		return Turn{Axis: geom.AxisX, Quarters: sign(f.Z)}, nil
	case SwipeDown:
		if xDominant {
			return Turn{Axis: geom.AxisZ, Quarters: sign(f.X)}, nil
		}
		return Turn{Axis: geom.AxisX, Quarters: -sign(f.Z)}, nil
	case SwipeLeft:
		return Turn{Axis: geom.AxisY, Quarters: -1}, nil
	case SwipeRight:
		return Turn{Axis: geom.AxisY, Quarters: 1}, nil
	case DoubleTap:
		if xDominant {
			return Turn{Axis: geom.AxisX, Quarters: sign(f.X)}, nil
		}
		return Turn{Axis: geom.AxisZ, Quarters: sign(f.Z)}, nil
	case Explicit:
		if h.Axis < geom.AxisX || h.Axis > geom.AxisZ {
			return Turn{}, fmt.Errorf("%w: bad axis %d", ErrBadTurn, int(h.Axis))
		}
		q := geom.NormalizeQuarters(h.Quarters)
		switch q {
		case 0:
			return Turn{}, fmt.Errorf("%w: zero rotation", ErrBadTurn)
		case 2:
			return Turn{}, fmt.Errorf("%w: half turn, send two quarter turns", ErrBadTurn)
		case 3:
			q = -1
		}
		return Turn{Axis: h.Axis, Quarters: q}, nil
	default:
		return Turn{}, fmt.Errorf("%w: %d", ErrUnknownGesture, int(h.Gesture))
	}
}

// Grab composes a free-form offset on top of the last committed pose.
// The anchor is never modified, so dropping a Grab restores it exactly.
type Grab struct {
	Anchor Pose
	Offset geom.Vec3
}

func NewGrab(anchor Pose) *Grab { return &Grab{Anchor: anchor} }

func (g *Grab) Move(delta geom.Vec3) { g.Offset = g.Offset.Add(delta) }

// Live is the in-progress pose.
func (g *Grab) Live() Pose { return g.Anchor.Translate(g.Offset) }

// Bake snaps the live pose onto the lattice, producing the next committed pose.
func (g *Grab) Bake(mode geom.RoundingMode) Pose { return Snap(g.Live(), mode) }
