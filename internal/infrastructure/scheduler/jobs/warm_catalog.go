package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM CATALOG JOB
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRefresher reloads the reference tables into the cache.
// Implemented by the query-side catalog service.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// WarmCatalogJob keeps the skill catalog and level table cached so the
// first dashboard request after a deploy does not hit PostgreSQL.
type WarmCatalogJob struct {
	catalog CatalogRefresher
	logger  *slog.Logger
	timeout time.Duration
}

// NewWarmCatalogJob creates a new cache warmup job.
func NewWarmCatalogJob(catalog CatalogRefresher, logger *slog.Logger, timeout time.Duration) *WarmCatalogJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WarmCatalogJob{catalog: catalog, logger: logger, timeout: timeout}
}

// Name returns the job name.
func (j *WarmCatalogJob) Name() string {
	return "warm_catalog"
}

// Description returns a human-readable description.
func (j *WarmCatalogJob) Description() string {
	return "Reloads the skill catalog and level table into the Redis cache"
}

// Run executes the warmup.
func (j *WarmCatalogJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("warm catalog: %w", err)
	}
	j.logger.Info("catalog cache warmed")
	return nil
}
