// Package shapes holds the built-in polycube piece shapes.
//
// Offsets are relative to the piece origin; most shapes include the origin
// itself. Callers always receive copies, never the backing arrays.
package shapes

import (
	"sort"

	"voxxle.ai/internal/sim/geom"
)

const (
	I           = "I"
	L           = "L"
	U           = "U"
	Cross       = "Cross"
	O           = "O"
	S           = "S"
	FourCorners = "4-corners"
	TwoLine     = "2-line"
	P           = "P"
	F           = "F"
)

func v(x, y, z int) geom.Vec3i { return geom.Vec3i{X: x, Y: y, Z: z} }

var builtin = map[string][]geom.Vec3i{
	I: {v(0, 1, 0), v(0, -1, 0), v(0, 0, 0)},
	L: {v(0, 0, 0), v(0, 1, 0), v(0, -1, 0), v(1, -1, 0)},
	U: {v(1, 1, 0), v(1, 0, 0), v(-1, 0, 0), v(-1, 1, 0), v(0, 0, 0)},
	Cross: {
		v(1, 0, 0), v(-1, 0, 0),
		v(0, 1, 0), v(0, -1, 0),
		v(0, 0, 1), v(0, 0, -1),
		v(0, 0, 0),
	},
	O: {
		v(1, 0, 0), v(-1, 0, 0),
		v(0, 1, 0), v(0, -1, 0),
		v(1, 1, 0), v(-1, 1, 0),
		v(1, -1, 0), v(-1, -1, 0),
	},
	S:           {v(0, 1, 0), v(0, -1, 0), v(1, 1, 0), v(-1, -1, 0), v(0, 0, 0)},
	FourCorners: {v(1, 1, 0), v(1, -1, 0), v(-1, 1, 0), v(-1, -1, 0)},
	TwoLine:     {v(0, 0, 0), v(0, 1, 0)},
	P:           {v(0, 0, 0), v(0, 1, 0), v(1, 0, 0), v(1, 1, 0), v(0, -1, 0)},
	F:           {v(0, 0, 0), v(0, 1, 0), v(0, -1, 0), v(0, -2, 0), v(1, 1, 0), v(1, -1, 0)},
}

// Lookup returns a copy of the named shape's offsets.
func Lookup(name string) ([]geom.Vec3i, bool) {
	pts, ok := builtin[name]
	if !ok {
		return nil, false
	}
	return geom.CopyPoints(pts), true
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) []geom.Vec3i {
	pts, ok := Lookup(name)
	if !ok {
		panic("shapes: unknown shape " + name)
	}
	return pts
}

// Names lists the built-in shape names in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
