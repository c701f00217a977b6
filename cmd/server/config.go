package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serverConfig is read from VOXXLE_* variables first; flags override it.
type serverConfig struct {
	Addr         string `env:"VOXXLE_ADDR" envDefault:":8080"`
	DataDir      string `env:"VOXXLE_DATA" envDefault:"./data"`
	ConfigDir    string `env:"VOXXLE_CONFIGS" envDefault:"./configs"`
	LogLevel     string `env:"VOXXLE_LOG_LEVEL" envDefault:"info"`
	IndexBackend string `env:"VOXXLE_INDEX_BACKEND" envDefault:"sqlite"`

	// ForceProgress restores saved progress even if the level catalog changed.
	ForceProgress bool `env:"VOXXLE_FORCE_PROGRESS"`
}

func parseConfig(fs *flag.FlagSet, args []string) (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "runtime data directory")
	fs.StringVar(&cfg.ConfigDir, "configs", cfg.ConfigDir, "config directory (tuning.yaml, levels.json)")
	fs.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.IndexBackend, "index", cfg.IndexBackend, "move index backend: sqlite|none")
	fs.BoolVar(&cfg.ForceProgress, "force_progress", cfg.ForceProgress, "restore progress saved against a different level catalog")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.IndexBackend = strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	return cfg, nil
}

func (c serverConfig) tuningPath() string   { return filepath.Join(c.ConfigDir, "tuning.yaml") }
func (c serverConfig) levelsPath() string   { return filepath.Join(c.ConfigDir, "levels.json") }
func (c serverConfig) progressPath() string { return filepath.Join(c.DataDir, "progress.zst") }
func (c serverConfig) indexPath() string    { return filepath.Join(c.DataDir, "index", "moves.sqlite") }

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
