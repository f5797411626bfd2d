package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	cache "jobsync/internal/cache/iface"
	"jobsync/internal/domain"
	"jobsync/internal/logger"
	repositoryIface "jobsync/internal/repository/iface"
)

const (
	DefaultCacheTTL  = 5 * time.Minute
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// JobQuery is the cached read side of the job store
type JobQuery interface {
	ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error)
	CountBySource(ctx context.Context, source string) (int, error)
	Count(ctx context.Context) (int, error)
}

type jobQuery struct {
	repo   repositoryIface.JobRepository
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewJobQuery creates the read path. Cache failures fall through to the store.
func NewJobQuery(repo repositoryIface.JobRepository, c cache.Cache, ttl time.Duration, log logger.Logger) JobQuery {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &jobQuery{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: log.With(logger.String("component", "job_query")),
	}
}

func (q *jobQuery) ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	key := q.key(ctx, fmt.Sprintf("recent:%s:%d", source, limit))

	var jobs []*domain.Job
	if q.load(ctx, key, &jobs) {
		return jobs, nil
	}

	jobs, err := q.repo.ListRecent(ctx, source, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	q.store(ctx, key, jobs)
	return jobs, nil
}

func (q *jobQuery) CountBySource(ctx context.Context, source string) (int, error) {
	key := q.key(ctx, "count:"+source)

	var n int
	if q.load(ctx, key, &n) {
		return n, nil
	}

	n, err := q.repo.CountBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s jobs: %w", source, err)
	}
	q.store(ctx, key, n)
	return n, nil
}

func (q *jobQuery) Count(ctx context.Context) (int, error) {
	key := q.key(ctx, "count:*")

	var n int
	if q.load(ctx, key, &n) {
		return n, nil
	}

	n, err := q.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	q.store(ctx, key, n)
	return n, nil
}

// key namespaces suffix under the current generation. The generation is
// read before the store, so a value computed across an invalidation lands
// under a retired generation and is never served.
func (q *jobQuery) key(ctx context.Context, suffix string) string {
	gen := "0"
	raw, err := q.cache.Get(ctx, GenerationKey)
	switch {
	case err == nil:
		if _, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			gen = raw
		}
	case !cache.IsKeyNotFound(err):
		q.logger.Warn("failed to read cache generation", logger.Error(err))
	}
	return "jobsync:cache:g" + gen + ":" + suffix
}

func (q *jobQuery) load(ctx context.Context, key string, out interface{}) bool {
	raw, err := q.cache.Get(ctx, key)
	if err != nil {
		if !cache.IsKeyNotFound(err) {
			q.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		q.logger.Warn("discarding undecodable cache entry", logger.String("key", key), logger.Error(err))
		return false
	}
	return true
}

func (q *jobQuery) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		q.logger.Warn("failed to encode cache entry", logger.String("key", key), logger.Error(err))
		return
	}
	if err := q.cache.Set(ctx, key, string(data), q.ttl); err != nil {
		q.logger.Warn("cache write failed", logger.String("key", key), logger.Error(err))
	}
}
