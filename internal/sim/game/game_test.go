package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voxxle.ai/internal/protocol"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/session"
	"voxxle.ai/internal/sim/transform"
)

type memSink struct {
	moves  []MoveLogEntry
	solves []SolveRecord
}

func (m *memSink) WriteMove(e MoveLogEntry) error  { m.moves = append(m.moves, e); return nil }
func (m *memSink) RecordSolve(r SolveRecord) error { m.solves = append(m.solves, r); return nil }

type memProgress struct {
	saves  int
	status []catalogs.LevelStatus
}

func (m *memProgress) SaveProgress(_ string, st []catalogs.LevelStatus) error {
	m.saves++
	m.status = st
	return nil
}

type syncProgress struct {
	mu     sync.Mutex
	status []catalogs.LevelStatus
	saved  chan struct{}
}

func (p *syncProgress) SaveProgress(_ string, st []catalogs.LevelStatus) error {
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
	select {
	case p.saved <- struct{}{}:
	default:
	}
	return nil
}

type failingSink struct{}

func (failingSink) WriteMove(MoveLogEntry) error { return errors.New("disk full") }

func newTestGame(t *testing.T) (*Game, *memSink, *memProgress) {
	t.Helper()
	g := New(nil, catalogs.Default(), Config{
		Session:          session.DefaultOptions(),
		MaxSessions:      2,
		AutosaveProgress: true,
	})
	sink := &memSink{}
	prog := &memProgress{}
	g.AddSink(sink)
	g.AddSink(failingSink{})
	g.SetProgressStore(prog)
	g.SetClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) })
	return g, sink, prog
}

func mustOK(t *testing.T, r Response) Response {
	t.Helper()
	if !r.OK {
		t.Fatalf("expected ok, got code=%s err=%v", r.Code, r.Err)
	}
	return r
}

func TestGame_SolveCube(t *testing.T) {
	g, sink, prog := newTestGame(t)
	open := mustOK(t, g.Apply(Request{Op: OpOpen}))
	id := open.Session
	if id == "" {
		t.Fatalf("expected generated session id")
	}
	mustOK(t, g.Apply(Request{Session: id, Op: OpLoadLevel, Level: 0}))

	solveCube(t, g, id)

	if len(sink.solves) != 1 || sink.solves[0].Level != 0 || sink.solves[0].LevelName != "Cube" {
		t.Fatalf("solves: %+v", sink.solves)
	}
	if prog.saves != 1 || !prog.status[1].Unlocked {
		t.Fatalf("progress: saves=%d status=%+v", prog.saves, prog.status)
	}
	last := sink.moves[len(sink.moves)-1]
	if !last.Won || last.State != "SOLVED" || last.Session != id {
		t.Fatalf("last move: %+v", last)
	}
	for i, m := range sink.moves {
		if m.Seq != uint64(i+1) {
			t.Fatalf("seq gap at %d: %d", i, m.Seq)
		}
	}
	if sink.moves[0].Args.Session != id {
		t.Fatalf("open entry should carry the generated id: %+v", sink.moves[0])
	}
}

// solveCube places the five cube pieces. Each piece is rotated first, then moved.
func solveCube(t *testing.T, g *Game, id string) {
	t.Helper()
	type step struct {
		piece string
		turns []transform.Turn
		to    geom.Vec3i
	}
	// Spawn xs for n=5: -7, -4, -1, 2, 5 (y=3).
	// z=-1 is the O ring plus the Cross's lower arm, z=0 is the Cross's plus
	// sign and the 4-corners, z=1 is U (open side up), I (laid along x) and
	// the Cross's upper arm.
	steps := []step{
		{piece: "P4", to: geom.Vec3i{Z: -1}},
		{piece: "P3", to: geom.Vec3i{}},
		{piece: "P5", to: geom.Vec3i{}},
		{piece: "P2", to: geom.Vec3i{Y: -1, Z: 1}},
		{piece: "P1", turns: []transform.Turn{{Axis: geom.AxisZ, Quarters: 1}}, to: geom.Vec3i{Y: 1, Z: 1}},
	}
	spawnX := map[string]int{"P1": -7, "P2": -4, "P3": -1, "P4": 2, "P5": 5}
	var last Response
	for _, st := range steps {
		for _, turn := range st.turns {
			hint := &transform.Hint{Gesture: transform.Explicit, Axis: turn.Axis, Quarters: turn.Quarters}
			mustOK(t, g.Apply(Request{Session: id, Op: OpRotate, Piece: st.piece, Hint: hint}))
		}
		mustOK(t, g.Apply(Request{Session: id, Op: OpGrab, Piece: st.piece}))
		delta := geom.Vec3{X: float64(st.to.X - spawnX[st.piece]), Y: float64(st.to.Y - 3), Z: float64(st.to.Z)}
		mustOK(t, g.Apply(Request{Session: id, Op: OpTranslate, Piece: st.piece, Delta: delta}))
		last = mustOK(t, g.Apply(Request{Session: id, Op: OpRelease}))
		if !last.Eval.Valid[st.piece] {
			t.Fatalf("%s not valid after placement: %+v", st.piece, last.Snapshot)
		}
	}
	if !last.Won || last.Snapshot.State != session.Solved {
		t.Fatalf("expected solved cube: %+v", last.Eval)
	}
	if len(last.Status) != 3 || !last.Status[0].Solved {
		t.Fatalf("status after win: %+v", last.Status)
	}
}

func TestGame_ErrorCodes(t *testing.T) {
	g, sink, _ := newTestGame(t)
	id := mustOK(t, g.Apply(Request{Op: OpOpen, Session: "s1"})).Session

	cases := []struct {
		req  Request
		code string
	}{
		{Request{Session: "nope", Op: OpGrab, Piece: "P1"}, protocol.ErrNoSession},
		{Request{Session: id, Op: OpGrab, Piece: "P1"}, protocol.ErrInvalidTransition},
		{Request{Session: id, Op: OpLoadLevel, Level: 1}, protocol.ErrLevelLocked},
		{Request{Session: id, Op: OpLoadLevel, Level: 5}, protocol.ErrIndex},
		{Request{Session: id, Op: "JUMP"}, protocol.ErrBadRequest},
		{Request{Op: OpOpen, Session: "s1"}, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		r := g.Apply(tc.req)
		if r.OK || r.Code != tc.code {
			t.Fatalf("%+v: got ok=%v code=%s want %s", tc.req, r.OK, r.Code, tc.code)
		}
	}

	mustOK(t, g.Apply(Request{Session: id, Op: OpLoadLevel}))
	if r := g.Apply(Request{Session: id, Op: OpRotate, Piece: "P1"}); r.Code != protocol.ErrBadRequest {
		t.Fatalf("rotate without hint: %s", r.Code)
	}
	if r := g.Apply(Request{Session: id, Op: OpRotate, Piece: "P1", Hint: &transform.Hint{}}); r.Code != protocol.ErrBadRequest {
		t.Fatalf("rotate with unknown gesture: %s", r.Code)
	}
	mustOK(t, g.Apply(Request{Session: id, Op: OpGrab, Piece: "P1"}))
	if r := g.Apply(Request{Session: id, Op: OpTranslate, Piece: "P1", Delta: geom.Vec3{X: 1e19}}); r.Code != protocol.ErrBadRequest {
		t.Fatalf("huge delta: %s", r.Code)
	}
	mustOK(t, g.Apply(Request{Session: id, Op: OpCancel}))
	if r := g.Apply(Request{Session: id, Op: OpGrab, Piece: "P42"}); r.Code != protocol.ErrIndex {
		t.Fatalf("unknown piece: %s", r.Code)
	}

	mustOK(t, g.Apply(Request{Op: OpOpen, Session: "s2"}))
	if r := g.Apply(Request{Op: OpOpen}); r.Code != protocol.ErrSessionLimit {
		t.Fatalf("session limit: %s", r.Code)
	}
	mustOK(t, g.Apply(Request{Op: OpClose, Session: "s2"}))
	if g.SessionCount() != 1 {
		t.Fatalf("sessions: %d", g.SessionCount())
	}

	for _, m := range sink.moves {
		if !protocol.IsKnownCode(m.Code) {
			t.Fatalf("unknown code logged: %q", m.Code)
		}
	}
}

func TestGame_RunAndDo(t *testing.T) {
	g, _, _ := newTestGame(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	r, err := g.Do(ctx, Request{Op: OpOpen})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	r, err = g.Do(ctx, Request{Session: r.Session, Op: OpStatus})
	if err != nil || !r.OK {
		t.Fatalf("status: %v %+v", err, r)
	}
	if len(r.Status) != 3 || r.Snapshot.State != session.Idle {
		t.Fatalf("status response: %+v", r)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
	if _, err := g.Do(ctx, Request{Op: OpOpen}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do after cancel: %v", err)
	}
}

func TestGame_RunSavesProgressOffLoop(t *testing.T) {
	g := New(nil, catalogs.Default(), Config{Session: session.DefaultOptions(), AutosaveProgress: true})
	prog := &syncProgress{saved: make(chan struct{}, 1)}
	g.SetProgressStore(prog)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	do := func(req Request) Response {
		t.Helper()
		r, err := g.Do(ctx, req)
		if err != nil {
			t.Fatalf("Do %s: %v", req.Op, err)
		}
		return mustOK(t, r)
	}
	id := do(Request{Op: OpOpen}).Session
	if g.SessionCount() != 1 {
		t.Fatalf("sessions while running: %d", g.SessionCount())
	}
	do(Request{Session: id, Op: OpLoadLevel})
	spawnX := map[string]float64{"P1": -7, "P2": -4, "P3": -1, "P4": 2, "P5": 5}
	targets := []struct {
		piece string
		to    geom.Vec3
		turn  bool
	}{
		{piece: "P4", to: geom.Vec3{Z: -1}},
		{piece: "P3"},
		{piece: "P5"},
		{piece: "P2", to: geom.Vec3{Y: -1, Z: 1}},
		{piece: "P1", to: geom.Vec3{Y: 1, Z: 1}, turn: true},
	}
	var last Response
	for _, tg := range targets {
		if tg.turn {
			do(Request{Session: id, Op: OpRotate, Piece: tg.piece, Hint: &transform.Hint{Gesture: transform.Explicit, Axis: geom.AxisZ, Quarters: 1}})
		}
		do(Request{Session: id, Op: OpGrab, Piece: tg.piece})
		delta := geom.Vec3{X: tg.to.X - spawnX[tg.piece], Y: tg.to.Y - 3, Z: tg.to.Z}
		do(Request{Session: id, Op: OpTranslate, Piece: tg.piece, Delta: delta})
		last = do(Request{Session: id, Op: OpRelease})
	}
	if !last.Won {
		t.Fatalf("expected win: %+v", last.Eval)
	}

	select {
	case <-prog.saved:
	case <-time.After(5 * time.Second):
		t.Fatalf("progress was not saved")
	}
	prog.mu.Lock()
	st := prog.status
	prog.mu.Unlock()
	if len(st) != 3 || !st[0].Solved || !st[1].Unlocked {
		t.Fatalf("saved progress: %+v", st)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: %v", err)
	}
}
