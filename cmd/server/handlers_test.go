package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"voxxle.ai/internal/persistence/indexdb"
	"voxxle.ai/internal/persistence/progress"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/transport/observer"
)

func TestStatusHandler_WithIndex(t *testing.T) {
	cat := catalogs.Default()
	if err := cat.MarkSolved(0); err != nil {
		t.Fatalf("MarkSolved: %v", err)
	}
	idx, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "moves.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer idx.Close()
	_ = idx.WriteMove(game.MoveLogEntry{Seq: 9, Time: time.Unix(100, 0).UTC(), Session: "s1", Op: game.OpRelease, OK: true, Won: true})
	_ = idx.RecordSolve(game.SolveRecord{Seq: 9, Time: time.Unix(100, 0).UTC(), Session: "s1", Level: 0, LevelName: "Cube", Digest: cat.Digest})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	g := game.New(nil, cat, game.Config{})
	if r := g.Apply(game.Request{Op: game.OpOpen}); !r.OK {
		t.Fatalf("open: %+v", r)
	}
	store := progress.NewStore(filepath.Join(t.TempDir(), "progress.zst"))
	obs := observer.NewServer(nopLogger())

	rr := httptest.NewRecorder()
	src := statusSources{cat: cat, game: g, idx: idx, obs: obs, store: store}
	statusHandler(src, nopLogger()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status code: %d", rr.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CatalogDigest != cat.Digest || len(resp.Levels) != 3 || !resp.Levels[0].Solved || !resp.Levels[1].Unlocked {
		t.Fatalf("levels: %+v", resp)
	}
	if len(resp.Solves) != 1 || resp.Solves[0].Solves != 1 || resp.Index == nil || resp.Index.Moves != 1 {
		t.Fatalf("solves: %+v", resp)
	}
	if resp.Sessions != 1 || resp.ProgressPath != store.Path() {
		t.Fatalf("sessions/progress: %+v", resp)
	}
	if resp.Observer == nil || resp.Observer.Subscribers != 0 || resp.Observer.Dropped != 0 {
		t.Fatalf("observer: %+v", resp.Observer)
	}
}

func TestStatusHandler_NoIndex(t *testing.T) {
	rr := httptest.NewRecorder()
	statusHandler(statusSources{cat: catalogs.Default()}, nopLogger()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	var resp statusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Index != nil || resp.Solves != nil || resp.Observer != nil || resp.Sessions != 0 || resp.Levels[1].Unlocked {
		t.Fatalf("unexpected: %+v", resp)
	}

	rr = httptest.NewRecorder()
	statusHandler(statusSources{cat: catalogs.Default()}, nopLogger()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/status", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST: %d", rr.Code)
	}
}

func TestParseConfig_EnvThenFlags(t *testing.T) {
	t.Setenv("VOXXLE_DATA", "/srv/voxxle")
	t.Setenv("VOXXLE_INDEX_BACKEND", " NONE ")
	cfg, err := parseConfig(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-addr", ":9999"})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DataDir != "/srv/voxxle" || cfg.IndexBackend != "none" || cfg.LogLevel != "info" {
		t.Fatalf("cfg: %+v", cfg)
	}
	if idx, err := openIndex(cfg); err != nil || idx != nil {
		t.Fatalf("openIndex none: %v %v", idx, err)
	}
	cfg.IndexBackend = "d1"
	if _, err := openIndex(cfg); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected bad log level error")
	}
}

func nopLogger() *zap.Logger { return zap.NewNop() }
