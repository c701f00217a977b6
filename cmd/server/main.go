package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	persistlog "voxxle.ai/internal/persistence/log"
	"voxxle.ai/internal/persistence/progress"
	"voxxle.ai/internal/protocol"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/sim/tuning"
	"voxxle.ai/internal/transport/observer"
	"voxxle.ai/internal/transport/ws"
)

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg serverConfig, logger *zap.Logger) error {
	tune, err := tuning.LoadOrDefault(cfg.tuningPath())
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if tune.ProtocolVersion != protocol.Version {
		return fmt.Errorf("tuning protocol_version %q, server speaks %q", tune.ProtocolVersion, protocol.Version)
	}
	cat, err := catalogs.LoadOrDefault(cfg.levelsPath())
	if err != nil {
		return fmt.Errorf("load levels: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	store := progress.NewStore(cfg.progressPath())
	restored, err := store.Restore(cat, cfg.ForceProgress)
	if err != nil {
		return fmt.Errorf("restore progress: %w", err)
	}
	logger.Info("catalog ready",
		zap.Int("levels", cat.LevelCount()),
		zap.String("digest", cat.Digest),
		zap.Bool("progress_restored", restored),
	)

	g := game.New(logger.Named("game"), cat, game.Config{
		Session:          tune.SessionOptions(),
		MaxSessions:      tune.MaxSessions,
		AutosaveProgress: tune.ProgressAutosave,
	})
	g.SetProgressStore(store)

	moves := persistlog.NewMoveLogger(cfg.DataDir)
	defer moves.Close()
	g.AddSink(moves)

	idx, err := openIndex(cfg)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalog(cat, tune); err != nil {
			logger.Warn("index: upsert catalog", zap.Error(err))
		}
		g.AddSink(idx)
	} else {
		logger.Info("move index disabled")
	}

	obs := observer.NewServer(logger.Named("observer"))
	g.AddSink(obs)

	seq := lastSeq(context.Background(), cfg.DataDir, idx, logger)
	g.ResumeSeq(seq)
	g.Boot()
	logger.Info("moves resumed", zap.Uint64("after_seq", seq), zap.String("progress", store.Path()))

	validator, err := protocol.NewValidator()
	if err != nil {
		return fmt.Errorf("protocol schemas: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gameDone := make(chan struct{})
	go func() {
		defer close(gameDone)
		if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("game loop stopped", zap.Error(err))
		}
	}()

	wsSrv := ws.NewServer(g, validator, logger.Named("ws"), ws.Options{
		GestureHz:    tune.RateLimits.GestureHz,
		GestureBurst: tune.RateLimits.GestureBurst,
		Rounding:     tune.Rounding,
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/v1/status", statusHandler(statusSources{cat: cat, game: g, idx: idx, obs: obs, store: store}, logger))
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	stop()
	<-gameDone

	// The loop has stopped, so the catalog is quiescent.
	if err := store.SaveProgress(cat.Digest, cat.Status()); err != nil {
		logger.Error("save progress", zap.Error(err))
	}
	if idx != nil {
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := idx.Flush(fctx); err != nil {
			logger.Warn("index flush", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	return nil
}
