// Package validate checks piece placements against a level's target points.
//
// Every comparison happens on rounded lattice coordinates. Boards and pieces
// are tiny (tens of voxels), a hash set keyed by Vec3i is all the indexing needed.
package validate

import (
	"sort"

	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/transform"
)

// Board is the set of target points of a level.
type Board struct {
	points map[geom.Vec3i]struct{}
}

func NewBoard(pts []geom.Vec3i) Board {
	b := Board{points: make(map[geom.Vec3i]struct{}, len(pts))}
	for _, p := range pts {
		b.points[p] = struct{}{}
	}
	return b
}

func (b Board) Len() int { return len(b.points) }

func (b Board) Contains(p geom.Vec3i) bool {
	_, ok := b.points[p]
	return ok
}

// Placement is a piece shape under a pose.
type Placement struct {
	ID     string
	Points []geom.Vec3i
	Pose   transform.Pose
}

func (p Placement) voxels(mode geom.RoundingMode) []geom.Vec3i { return p.Pose.Place(p.Points, mode) }

// PieceCoversOnlyBoard reports whether every voxel of p lands on a target point.
func PieceCoversOnlyBoard(b Board, p Placement, mode geom.RoundingMode) bool {
	for _, v := range p.voxels(mode) {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

// PieceOverlapsBoard reports whether at least one voxel of p lands on a target point.
func PieceOverlapsBoard(b Board, p Placement, mode geom.RoundingMode) bool {
	for _, v := range p.voxels(mode) {
		if b.Contains(v) {
			return true
		}
	}
	return false
}

// BoardFullyCovered reports whether every target point is covered by some piece voxel.
func BoardFullyCovered(b Board, ps []Placement, mode geom.RoundingMode) bool {
	covered := make(map[geom.Vec3i]struct{}, b.Len())
	for _, p := range ps {
		for _, v := range p.voxels(mode) {
			if b.Contains(v) {
				covered[v] = struct{}{}
			}
		}
	}
	return len(covered) == b.Len()
}

type Options struct {
	Rounding geom.RoundingMode
	// StrictOverlap makes two pieces sharing a voxel block the win.
	StrictOverlap bool
}

type Result struct {
	Valid    map[string]bool `json:"valid"`
	AllValid bool            `json:"all_valid"`
	Covered  bool            `json:"covered"`
	// Overlaps lists voxels claimed by more than one piece, sorted.
	Overlaps []geom.Vec3i `json:"overlaps,omitempty"`
	Won      bool         `json:"won"`
}

// Evaluate runs the per-piece check for every placement and the win check.
// The board only counts as won when every piece is valid and every target is covered.
func Evaluate(b Board, ps []Placement, opts Options) Result {
	res := Result{Valid: make(map[string]bool, len(ps)), AllValid: true}
	owners := make(map[geom.Vec3i]int, b.Len())
	for _, p := range ps {
		ok := PieceCoversOnlyBoard(b, p, opts.Rounding)
		res.Valid[p.ID] = ok
		res.AllValid = res.AllValid && ok
		seen := make(map[geom.Vec3i]struct{}, len(p.Points))
		for _, v := range p.voxels(opts.Rounding) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			owners[v]++
		}
	}
	for v, n := range owners {
		if n > 1 {
			res.Overlaps = append(res.Overlaps, v)
		}
	}
	sort.Slice(res.Overlaps, func(i, j int) bool {
		a, c := res.Overlaps[i], res.Overlaps[j]
		if a.X != c.X {
			return a.X < c.X
		}
		if a.Y != c.Y {
			return a.Y < c.Y
		}
		return a.Z < c.Z
	})
	res.Covered = BoardFullyCovered(b, ps, opts.Rounding)
	res.Won = res.AllValid && res.Covered
	if opts.StrictOverlap && len(res.Overlaps) > 0 {
		res.Won = false
	}
	return res
}
