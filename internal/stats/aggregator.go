// Package stats derives per-series verification statistics from the pending
// ledger. Counts are a read-only projection of ledger truth, never an
// independently persisted counter, so they cannot drift; a short-TTL cache
// absorbs dashboard polling and is invalidated on every transition.
package stats

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/fablesmith/loregate/internal/catalog"
	"github.com/fablesmith/loregate/internal/ledger"
)

// VerificationStats reports the live pending counts for one series. ByType
// carries an entry for every member of the closed type set, zero included,
// so dashboards render a stable row per kind.
type VerificationStats struct {
	SeriesID     string                   `json:"series_id"`
	TotalPending int                      `json:"total_pending"`
	ByType       map[catalog.ItemType]int `json:"by_type"`
}

// Aggregator computes VerificationStats on demand.
type Aggregator struct {
	store  ledger.Store
	cache  *gocache.Cache
	logger *zap.Logger
}

// New creates an aggregator over the ledger. A zero cacheTTL disables
// caching; every call then scans the ledger.
func New(store ledger.Store, cacheTTL time.Duration, logger *zap.Logger) (*Aggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Aggregator{
		store:  store,
		logger: logger,
	}
	if cacheTTL > 0 {
		a.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return a, nil
}

// Stats returns the pending counts for a series.
func (a *Aggregator) Stats(ctx context.Context, seriesID string) (VerificationStats, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(seriesID); ok {
			return cached.(VerificationStats), nil
		}
	}

	counts, err := a.store.CountPending(ctx, seriesID)
	if err != nil {
		return VerificationStats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	stats := VerificationStats{
		SeriesID: seriesID,
		ByType:   make(map[catalog.ItemType]int, len(catalog.AllItemTypes())),
	}
	for _, itemType := range catalog.AllItemTypes() {
		n := counts[itemType]
		stats.ByType[itemType] = n
		stats.TotalPending += n
	}

	if a.cache != nil {
		a.cache.SetDefault(seriesID, stats)
	}

	a.logger.Debug("stats computed",
		zap.String("series_id", seriesID),
		zap.Int("total_pending", stats.TotalPending))
	return stats, nil
}

// Invalidate drops the cached counts for a series. Every write path calls
// this after success, the gateway for transitions and the HTTP layer for
// inserts, so reported counts never outlive a change.
func (a *Aggregator) Invalidate(seriesID string) {
	if a.cache != nil {
		a.cache.Delete(seriesID)
	}
}
