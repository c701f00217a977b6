package game

import (
	"go.uber.org/zap"

	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/session"
)

type Mismatch struct {
	Seq     uint64 `json:"seq"`
	Session string `json:"session"`
	Op      Op     `json:"op"`
	Want    string `json:"want"`
	Got     string `json:"got"`
}

type ReplayReport struct {
	Entries    int        `json:"entries"`
	Boots      int        `json:"boots"`
	Sessions   int        `json:"sessions"`
	Solves     int        `json:"solves"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

func outcome(ok bool, code string, won bool) string {
	switch {
	case !ok:
		return "error " + code
	case won:
		return "ok won"
	default:
		return "ok"
	}
}

// Replay re-applies recorded moves, in order, to a fresh game over cat and
// compares each outcome with the recorded one. A boot entry restores the
// progress its run started from and drops sessions left open by the run
// before it; entries ahead of the first boot run against cat as given.
func Replay(log *zap.Logger, cat *catalogs.Catalog, cfg Config, entries []MoveLogEntry) ReplayReport {
	cfg.MaxSessions = 0
	g := New(log, cat, cfg)
	var rep ReplayReport
	seen := map[string]struct{}{}
	for _, e := range entries {
		rep.Entries++
		if e.Op == OpBoot {
			rep.Boots++
			if err := cat.Restore(e.Progress); err != nil {
				rep.Mismatches = append(rep.Mismatches, Mismatch{Seq: e.Seq, Op: e.Op, Want: "ok", Got: "error " + err.Error()})
			}
			g.sessions = map[string]*session.Session{}
			g.openCount.Store(0)
			continue
		}
		if e.Op == OpOpen && e.OK {
			seen[e.Session] = struct{}{}
		}
		r := g.Apply(e.Args)
		if r.Won {
			rep.Solves++
		}
		want, got := outcome(e.OK, e.Code, e.Won), outcome(r.OK, r.Code, r.Won)
		if want != got {
			rep.Mismatches = append(rep.Mismatches, Mismatch{Seq: e.Seq, Session: e.Session, Op: e.Op, Want: want, Got: got})
		}
	}
	rep.Sessions = len(seen)
	return rep
}
