package service

import (
	"context"
	"fmt"

	cache "jobsync/internal/cache/iface"
	"jobsync/internal/events"
	"jobsync/internal/logger"
)

// GenerationKey holds the read-cache generation. Every cached read is keyed
// under the current generation, so one INCR invalidates the whole cache.
const GenerationKey = "jobsync:cache:generation"

// CacheInvalidator reacts to store changes by retiring the read cache
type CacheInvalidator interface {
	Invalidate(ctx context.Context, change events.StoreChange) error
}

type cacheInvalidator struct {
	cache  cache.Cache
	logger logger.Logger
}

// NewCacheInvalidator creates the invalidator
func NewCacheInvalidator(c cache.Cache, log logger.Logger) CacheInvalidator {
	return &cacheInvalidator{
		cache:  c,
		logger: log.With(logger.String("component", "cache_invalidator")),
	}
}

func (i *cacheInvalidator) Invalidate(ctx context.Context, change events.StoreChange) error {
	gen, err := i.cache.Incr(ctx, GenerationKey)
	if err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}

	i.logger.Debug("read cache invalidated",
		logger.String("source", change.Source),
		logger.String("reason", string(change.Reason)),
		logger.Int64("generation", gen))
	return nil
}

// SubscribeCacheInvalidator registers the invalidator on the bus
func SubscribeCacheInvalidator(bus *events.Bus, inv CacheInvalidator) {
	bus.Subscribe("cache_invalidator", inv.Invalidate)
}
