package game

import (
	"testing"

	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/session"
)

func TestReplay_RecordedSolve(t *testing.T) {
	g, sink, _ := newTestGame(t)
	id := mustOK(t, g.Apply(Request{Op: OpOpen})).Session
	mustOK(t, g.Apply(Request{Session: id, Op: OpLoadLevel}))
	_ = g.Apply(Request{Session: id, Op: OpRelease}) // rejected, recorded as such
	solveCube(t, g, id)
	mustOK(t, g.Apply(Request{Session: id, Op: OpLoadLevel, Level: 1}))

	cfg := Config{Session: session.DefaultOptions()}
	rep := Replay(nil, catalogs.Default(), cfg, sink.moves)
	if len(rep.Mismatches) != 0 {
		t.Fatalf("mismatches: %+v", rep.Mismatches)
	}
	if rep.Entries != len(sink.moves) || rep.Sessions != 1 || rep.Solves != 1 {
		t.Fatalf("report: %+v", rep)
	}

	// Level 2 is still locked after solving level 0.
	tampered := append([]MoveLogEntry(nil), sink.moves...)
	last := &tampered[len(tampered)-1]
	last.Args.Level = 2
	rep = Replay(nil, catalogs.Default(), cfg, tampered)
	if len(rep.Mismatches) != 1 || rep.Mismatches[0].Got != "error E_LEVEL_LOCKED" {
		t.Fatalf("expected one mismatch: %+v", rep.Mismatches)
	}
}

func TestReplay_AcrossRestarts(t *testing.T) {
	sink := &memSink{}
	cfg := Config{Session: session.DefaultOptions()}

	first := New(nil, catalogs.Default(), cfg)
	first.AddSink(sink)
	first.Boot()
	id := mustOK(t, first.Apply(Request{Op: OpOpen})).Session
	mustOK(t, first.Apply(Request{Session: id, Op: OpLoadLevel}))
	solveCube(t, first, id)
	saved := first.Catalog().Status()
	lastSeq := sink.moves[len(sink.moves)-1].Seq
	firstRun := len(sink.moves)

	// The second run restores progress and carries on numbering.
	cat := catalogs.Default()
	if err := cat.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	second := New(nil, cat, cfg)
	second.AddSink(sink)
	second.ResumeSeq(lastSeq)
	second.Boot()
	id = mustOK(t, second.Apply(Request{Op: OpOpen})).Session
	mustOK(t, second.Apply(Request{Session: id, Op: OpLoadLevel, Level: 1}))

	for i := 1; i < len(sink.moves); i++ {
		if sink.moves[i].Seq <= sink.moves[i-1].Seq {
			t.Fatalf("seq not increasing at %d: %d after %d", i, sink.moves[i].Seq, sink.moves[i-1].Seq)
		}
	}
	boot := sink.moves[firstRun]
	if boot.Op != OpBoot || len(boot.Progress) != 3 || !boot.Progress[1].Unlocked {
		t.Fatalf("second boot entry: %+v", boot)
	}

	rep := Replay(nil, catalogs.Default(), cfg, sink.moves)
	if len(rep.Mismatches) != 0 || rep.Boots != 2 || rep.Sessions != 2 || rep.Solves != 1 {
		t.Fatalf("full replay: %+v", rep)
	}

	// The second run alone replays from its boot progress.
	rep = Replay(nil, catalogs.Default(), cfg, sink.moves[firstRun:])
	if len(rep.Mismatches) != 0 || rep.Boots != 1 {
		t.Fatalf("second run replay: %+v", rep)
	}
}
