package geom

import (
	"fmt"
	"math"
	"strings"
)

// Vec3i is a point on the integer lattice.
type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Float() Vec3 { return Vec3{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)} }

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

// Vec3 is a continuous position, used while a piece is moved freely.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z} }

// MaxCoord bounds every continuous coordinate so rounding stays exact and in int range.
const MaxCoord = 1 << 20

// InBounds reports whether every coordinate is finite and within MaxCoord.
func (v Vec3) InBounds() bool {
	for _, f := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxCoord {
			return false
		}
	}
	return true
}

// RoundingMode selects how a continuous coordinate lands on the lattice.
type RoundingMode int

const (
	// RoundHalfAwayFromZero maps 1.5 to 2 and -0.5 to -1.
	RoundHalfAwayFromZero RoundingMode = iota
	// RoundHalfEven maps 1.5 to 2, 2.5 to 2 and -0.5 to 0.
	RoundHalfEven
)

func (m RoundingMode) String() string {
	switch m {
	case RoundHalfEven:
		return "half_even"
	default:
		return "half_away_from_zero"
	}
}

// ParseRoundingMode accepts the names produced by String. Empty means the default.
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half_away_from_zero", "half_away":
		return RoundHalfAwayFromZero, nil
	case "half_even", "bankers":
		return RoundHalfEven, nil
	default:
		return RoundHalfAwayFromZero, fmt.Errorf("unknown rounding mode %q", s)
	}
}

func (m RoundingMode) round(f float64) int {
	if m == RoundHalfEven {
		return int(math.RoundToEven(f))
	}
	return int(math.Round(f))
}

// Round snaps every coordinate of v to the nearest lattice value.
func Round(v Vec3, mode RoundingMode) Vec3i {
	return Vec3i{X: mode.round(v.X), Y: mode.round(v.Y), Z: mode.round(v.Z)}
}

// CopyPoints returns an independent copy of pts.
func CopyPoints(pts []Vec3i) []Vec3i {
	if pts == nil {
		return nil
	}
	out := make([]Vec3i, len(pts))
	copy(out, pts)
	return out
}
