package session

import (
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/transform"
)

type PieceView struct {
	ID      string         `json:"id"`
	Shape   string         `json:"shape,omitempty"`
	Texture string         `json:"texture"`
	Pose    transform.Pose `json:"pose"`
	Voxels  []geom.Vec3i   `json:"voxels"`
	Valid   bool           `json:"valid"`
	// Live is set for the held piece: Pose includes the unsnapped offset.
	Live bool `json:"live,omitempty"`
}

type Snapshot struct {
	State     State       `json:"state"`
	Level     int         `json:"level"`
	LevelName string      `json:"level_name,omitempty"`
	Grabbed   string      `json:"grabbed,omitempty"`
	Pieces    []PieceView `json:"pieces,omitempty"`
	Won       bool        `json:"won"`
}

// Snapshot is a deep copy of what a renderer needs.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{State: s.state, Level: s.level, Won: s.state == Solved}
	if s.level >= 0 {
		snap.LevelName, _ = s.cat.Name(s.level)
	}
	if s.grabbed != nil {
		snap.Grabbed = s.grabbed.ID
	}
	for _, p := range s.pieces {
		v := PieceView{
			ID:      p.ID,
			Shape:   p.Shape,
			Texture: p.Texture,
			Pose:    p.Pose,
			Valid:   s.last.Valid[p.ID],
		}
		if p == s.grabbed {
			v.Pose = s.grab.Live()
			v.Live = true
		}
		v.Voxels = v.Pose.Place(p.Points, s.opts.Rounding)
		snap.Pieces = append(snap.Pieces, v)
	}
	return snap
}
