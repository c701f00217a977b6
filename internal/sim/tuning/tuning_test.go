package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"voxxle.ai/internal/sim/geom"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "rounding: half_even\nstrict_overlap: true\nrate_limits:\n  gesture_hz: 5\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := tu.SessionOptions()
	if opts.Rounding != geom.RoundHalfEven || !opts.StrictOverlap {
		t.Fatalf("session options: %+v", opts)
	}
	if opts.SpawnSpacing != 3 || opts.SpawnHeight != 3 {
		t.Fatalf("defaults lost: %+v", opts)
	}
	if tu.RateLimits.GestureHz != 5 || tu.RateLimits.GestureBurst != 10 {
		t.Fatalf("rate limits: %+v", tu.RateLimits)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("rounding: banker\n"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected unknown rounding error")
	}
	broken := filepath.Join(dir, "broken.yaml")
	_ = os.WriteFile(broken, []byte("spawn_spacing: [1,2\n"), 0o644)
	if _, err := Load(broken); err == nil {
		t.Fatalf("expected yaml error")
	}
	tu, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	if err != nil || tu != Defaults() {
		t.Fatalf("LoadOrDefault: %+v %v", tu, err)
	}
}

func TestShippedConfig(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.ProtocolVersion == "" || tu.SpawnSpacing <= 0 {
		t.Fatalf("shipped tuning: %+v", tu)
	}
}
