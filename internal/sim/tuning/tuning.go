package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"voxxle.ai/internal/sim/geom"
	"voxxle.ai/internal/sim/session"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	Rounding      string `yaml:"rounding"`
	SpawnSpacing  int    `yaml:"spawn_spacing"`
	SpawnHeight   int    `yaml:"spawn_height"`
	StrictOverlap bool   `yaml:"strict_overlap"`

	MaxSessions      int  `yaml:"max_sessions"`
	ProgressAutosave bool `yaml:"progress_autosave"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type RateLimits struct {
	GestureHz    float64 `yaml:"gesture_hz"`
	GestureBurst int     `yaml:"gesture_burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:  "1.0",
		Rounding:         geom.RoundHalfAwayFromZero.String(),
		SpawnSpacing:     3,
		SpawnHeight:      3,
		MaxSessions:      64,
		ProgressAutosave: true,
		RateLimits: RateLimits{
			GestureHz:    30,
			GestureBurst: 10,
		},
	}
}

// Load reads path over Defaults, so missing keys keep their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault is Load, falling back to Defaults when the file does not exist.
func LoadOrDefault(path string) (Tuning, error) {
	t, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return t, err
}

func (t Tuning) Validate() error {
	if _, err := geom.ParseRoundingMode(t.Rounding); err != nil {
		return err
	}
	if t.SpawnSpacing <= 0 {
		return fmt.Errorf("spawn_spacing must be > 0, got %d", t.SpawnSpacing)
	}
	if t.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must be >= 0, got %d", t.MaxSessions)
	}
	if t.RateLimits.GestureHz < 0 || t.RateLimits.GestureBurst < 0 {
		return fmt.Errorf("rate_limits must be >= 0")
	}
	return nil
}

// SessionOptions maps the puzzle keys onto session.Options.
func (t Tuning) SessionOptions() session.Options {
	mode, _ := geom.ParseRoundingMode(t.Rounding)
	return session.Options{
		Rounding:      mode,
		SpawnSpacing:  t.SpawnSpacing,
		SpawnHeight:   t.SpawnHeight,
		StrictOverlap: t.StrictOverlap,
	}
}
