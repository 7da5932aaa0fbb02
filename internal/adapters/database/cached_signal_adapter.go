package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
)

// CachedSignalAdapter wraps a SignalRepository with a short-TTL read-through
// cache. Signal queries run on every adaptive routing call, and slightly
// stale results are acceptable because reads are eventually-consistent
// snapshots anyway.
type CachedSignalAdapter struct {
	adapter    repositories.SignalRepository
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewCachedSignalAdapter creates a new cached signal adapter.
func NewCachedSignalAdapter(adapter repositories.SignalRepository, cache providers.CacheProvider, ttlSeconds int) repositories.SignalRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = 60
	}
	return &CachedSignalAdapter{
		adapter:    adapter,
		cache:      cache,
		ttlSeconds: ttlSeconds,
	}
}

func signalListCacheKey(filter repositories.SignalFilter) string {
	day := ""
	if !filter.Since.IsZero() {
		day = filter.Since.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("signals:list:%s:%s:%s:%t:%d",
		filter.Category, filter.ClientID, day, filter.ActionableOnly, filter.Limit)
}

// Create inserts the signal and invalidates cached lists it could affect.
func (a *CachedSignalAdapter) Create(ctx context.Context, signal *entities.LearningSignal) error {
	if err := a.adapter.Create(ctx, signal); err != nil {
		return err
	}

	// Best-effort invalidation; expired entries age out via TTL regardless.
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		keys := []string{
			signalListCacheKey(repositories.SignalFilter{Category: signal.Category, ActionableOnly: true}),
		}
		if signal.ClientID != "" {
			keys = append(keys, signalListCacheKey(repositories.SignalFilter{ClientID: signal.ClientID, ActionableOnly: true}))
		}
		for _, key := range keys {
			if err := a.cache.Delete(bgCtx, key); err != nil {
				observability.GetLogger().Debug().Err(err).Str("key", key).Msg("signal cache invalidation failed")
			}
		}
	}()

	return nil
}

// List returns signals matching the filter, served from cache when possible.
func (a *CachedSignalAdapter) List(ctx context.Context, filter repositories.SignalFilter) ([]*entities.LearningSignal, error) {
	cacheKey := signalListCacheKey(filter)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var signals []*entities.LearningSignal
		if err := json.Unmarshal(cached, &signals); err == nil {
			return signals, nil
		}
		observability.LoggerFromContext(ctx).Warn().Str("key", cacheKey).Msg("discarding malformed cached signal list")
	}

	signals, err := a.adapter.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if data, err := json.Marshal(signals); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, a.ttlSeconds); err != nil {
				observability.GetLogger().Debug().Err(err).Str("key", cacheKey).Msg("failed to cache signal list")
			}
		}
	}()

	return signals, nil
}

// IncrementApplied delegates to the underlying adapter. Applied counts are
// informational and tolerate cache staleness.
func (a *CachedSignalAdapter) IncrementApplied(ctx context.Context, ids []int64) error {
	return a.adapter.IncrementApplied(ctx, ids)
}

// MarkExpired delegates to the underlying adapter; cached lists age out via TTL.
func (a *CachedSignalAdapter) MarkExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	return a.adapter.MarkExpired(ctx, olderThan)
}
