package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voxxle.ai/internal/persistence/indexdb"
	persistlog "voxxle.ai/internal/persistence/log"
)

// openIndex returns nil when indexing is disabled.
func openIndex(cfg serverConfig) (*indexdb.SQLiteIndex, error) {
	switch cfg.IndexBackend {
	case "none", "off", "disabled":
		return nil, nil
	case "", "sqlite":
		return indexdb.OpenSQLite(cfg.indexPath())
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.IndexBackend)
	}
}

// lastSeq is the newest seq recorded by either the move log or the index, so
// a restart never reuses one. A store that cannot be read is logged and skipped.
func lastSeq(ctx context.Context, dataDir string, idx *indexdb.SQLiteIndex, logger *zap.Logger) uint64 {
	last, err := persistlog.LastSeq(dataDir)
	if err != nil {
		logger.Warn("move log: last seq", zap.Error(err))
	}
	if idx != nil {
		n, err := idx.MaxSeq(ctx)
		if err != nil {
			logger.Warn("index: max seq", zap.Error(err))
		}
		last = max(last, n)
	}
	return last
}
