// Package idempotency deduplicates client requests by idempotency key in a
// shared cache. The cache is an optimization: the durable records kept by the
// ledger and the orchestrator stay authoritative, and a Guard built without a
// store (or whose store fails) simply admits every request.
package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"walletsaga/internal/repositories/cache"

	"go.uber.org/zap"
)

// Store is the subset of the cache the guard needs. Both cache.CacheService
// and cache.MemoryStore satisfy it.
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// State is the outcome of claiming a key.
type State int

const (
	// Acquired means the caller owns the key and must run the operation,
	// then call Complete or Release.
	Acquired State = iota
	// InProgress means another request holds the key.
	InProgress
	// Completed means a terminal result is cached for the key.
	Completed
)

func (s State) String() string {
	switch s {
	case Acquired:
		return "acquired"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	}
	return "unknown"
}

const (
	statusProcessing = "processing"
	statusCompleted  = "completed"
)

type record struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

type Config struct {
	ProcessingTTL time.Duration
	ResultTTL     time.Duration
}

type Guard struct {
	store  Store
	config Config
	logger *zap.Logger
}

// NewGuard returns a guard over store. A nil store disables deduplication.
func NewGuard(store Store, config Config, logger *zap.Logger) *Guard {
	if config.ProcessingTTL <= 0 {
		config.ProcessingTTL = time.Hour
	}
	if config.ResultTTL <= 0 {
		config.ResultTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{store: store, config: config, logger: logger}
}

// Enabled reports whether a store backs the guard.
func (g *Guard) Enabled() bool {
	return g != nil && g.store != nil
}

// Claim tries to take key for the caller. When a terminal result is cached it
// is decoded into dest and Completed is returned.
func (g *Guard) Claim(ctx context.Context, key string, dest interface{}) State {
	if !g.Enabled() {
		return Acquired
	}
	cacheKey := g.cacheKey(key)

	// a key expiring between SetNX and Get is claimed on the second pass
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := g.store.SetNX(ctx, cacheKey, record{Status: statusProcessing}, g.config.ProcessingTTL)
		if err != nil {
			g.logger.Warn("idempotency cache unavailable, continuing without it",
				zap.String("key", key), zap.Error(err))
			return Acquired
		}
		if ok {
			return Acquired
		}

		var rec record
		found, err := g.store.Get(ctx, cacheKey, &rec)
		if err != nil {
			g.logger.Warn("failed to read idempotency record", zap.String("key", key), zap.Error(err))
			return InProgress
		}
		if !found {
			continue
		}
		if rec.Status != statusCompleted {
			return InProgress
		}
		if dest != nil && len(rec.Result) > 0 {
			if err := json.Unmarshal(rec.Result, dest); err != nil {
				g.logger.Warn("discarding unreadable idempotency result", zap.String("key", key), zap.Error(err))
				return Acquired
			}
		}
		return Completed
	}
	return InProgress
}

// Complete caches the terminal result for key.
func (g *Guard) Complete(ctx context.Context, key string, result interface{}) {
	if !g.Enabled() {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		g.logger.Error("failed to encode idempotency result", zap.String("key", key), zap.Error(err))
		g.Release(ctx, key)
		return
	}
	rec := record{Status: statusCompleted, Result: raw}
	if err := g.store.SetWithTTL(ctx, g.cacheKey(key), rec, g.config.ResultTTL); err != nil {
		g.logger.Warn("failed to cache idempotency result", zap.String("key", key), zap.Error(err))
	}
}

// Release frees key so the request can be retried.
func (g *Guard) Release(ctx context.Context, key string) {
	if !g.Enabled() {
		return
	}
	if err := g.store.Delete(ctx, g.cacheKey(key)); err != nil {
		g.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (g *Guard) cacheKey(key string) string {
	return cache.GenerateKey("idempotency", "transfer", key)
}
