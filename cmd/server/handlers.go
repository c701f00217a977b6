package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"voxxle.ai/internal/persistence/indexdb"
	"voxxle.ai/internal/persistence/progress"
	"voxxle.ai/internal/sim/catalogs"
	"voxxle.ai/internal/sim/game"
	"voxxle.ai/internal/transport/observer"
)

// statusSources are the live components /v1/status reads. Nil idx, obs or
// store leave their sections out.
type statusSources struct {
	cat   *catalogs.Catalog
	game  *game.Game
	idx   *indexdb.SQLiteIndex
	obs   *observer.Server
	store *progress.Store
}

type indexStatus struct {
	indexdb.Stats
	Moves int `json:"moves"`
}

type observerStatus struct {
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped_frames_total"`
}

type statusResponse struct {
	CatalogDigest string                 `json:"catalog_digest"`
	Levels        []catalogs.LevelStatus `json:"levels"`
	Sessions      int                    `json:"sessions"`
	ProgressPath  string                 `json:"progress_path,omitempty"`
	Solves        []indexdb.LevelSolves  `json:"solves,omitempty"`
	Index         *indexStatus           `json:"index,omitempty"`
	Observer      *observerStatus        `json:"observer,omitempty"`
}

func healthzHandler(rw http.ResponseWriter, _ *http.Request) {
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok"))
}

// statusHandler reports level progress and live counters plus, when indexing
// is on, solve and move counts.
func statusHandler(src statusSources, logger *zap.Logger) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resp := statusResponse{CatalogDigest: src.cat.Digest, Levels: src.cat.Status()}
		if src.game != nil {
			resp.Sessions = src.game.SessionCount()
		}
		if src.store != nil {
			resp.ProgressPath = src.store.Path()
		}
		if src.idx != nil {
			solves, err := src.idx.SolvesByLevel(r.Context())
			if err != nil {
				logger.Warn("status: solves by level", zap.Error(err))
			}
			moves, err := src.idx.MoveCount(r.Context(), "")
			if err != nil {
				logger.Warn("status: move count", zap.Error(err))
			}
			resp.Solves = solves
			resp.Index = &indexStatus{Stats: src.idx.Stats(), Moves: moves}
		}
		if src.obs != nil {
			resp.Observer = &observerStatus{Subscribers: src.obs.Subscribers(), Dropped: src.obs.Dropped()}
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}
