package service

import (
	"context"
	"errors"
	"testing"
	"time"

	cache "jobsync/internal/cache/iface"
	memoryCache "jobsync/internal/cache/memory"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	"jobsync/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQuery_ServesCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()
	repo := memory.NewJobRepository()
	c := memoryCache.NewMemoryCache()
	q := NewJobQuery(repo, c, time.Minute, log)

	_, err := repo.Upsert(ctx, sampleJob("unjobs", "1"), time.Now())
	require.NoError(t, err)

	n, err := q.CountBySource(ctx, "unjobs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// written behind the query's back: the cached count is still served
	_, err = repo.Upsert(ctx, sampleJob("unjobs", "2"), time.Now())
	require.NoError(t, err)
	n, err = q.CountBySource(ctx, "unjobs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bus := events.NewBus(log)
	SubscribeCacheInvalidator(bus, NewCacheInvalidator(c, log))
	bus.Publish(ctx, events.StoreChange{Source: "unjobs", Reason: events.ReasonUpsert, Created: 1})

	n, err = q.CountBySource(ctx, "unjobs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := q.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	gen, err := c.Get(ctx, GenerationKey)
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}

func TestJobQuery_ListRecentLimits(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	q := NewJobQuery(repo, memoryCache.NewMemoryCache(), 0, logger.NewNopLogger())

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"1", "2", "3"} {
		_, err := repo.Upsert(ctx, sampleJob("remotive", id), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	jobs, err := q.ListRecent(ctx, "remotive", 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "3", jobs[0].SourceID)

	// served from cache on the second read
	cached, err := q.ListRecent(ctx, "remotive", 2)
	require.NoError(t, err)
	assert.Equal(t, jobs[0].Key(), cached[0].Key())

	all, err := q.ListRecent(ctx, "remotive", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type brokenCache struct{}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("connection refused")
}
func (brokenCache) Delete(ctx context.Context, key string) error { return nil }
func (brokenCache) Incr(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("connection refused")
}
func (brokenCache) Close() error { return nil }

var _ cache.Cache = brokenCache{}

func TestJobQuery_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewJobRepository()
	_, err := repo.Upsert(ctx, sampleJob("devjobs", "1"), time.Now())
	require.NoError(t, err)

	q := NewJobQuery(repo, brokenCache{}, time.Minute, logger.NewNopLogger())
	n, err := q.CountBySource(ctx, "devjobs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inv := NewCacheInvalidator(brokenCache{}, logger.NewNopLogger())
	assert.Error(t, inv.Invalidate(ctx, events.StoreChange{Source: "devjobs", Created: 1}))
}
