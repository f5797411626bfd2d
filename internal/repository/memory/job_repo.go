package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/repository"
	repositoryIface "jobsync/internal/repository/iface"
)

type jobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobRepository creates a process-local job store
func NewJobRepository() repositoryIface.JobRepository {
	return &jobRepository{jobs: make(map[string]*domain.Job)}
}

func (r *jobRepository) Upsert(ctx context.Context, job *domain.Job, now time.Time) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := job.Clone()
	stored.JobKey = stored.Key()
	nowMs := now.UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.jobs[stored.JobKey]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.UpdatedAt = max(nowMs, existing.CreatedAt+1)
	} else {
		stored.CreatedAt = nowMs
		stored.UpdatedAt = nowMs
	}

	r.jobs[stored.JobKey] = stored
	return stored.Clone(), nil
}

func (r *jobRepository) GetByKey(ctx context.Context, source, sourceID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := domain.JobKey(source, sourceID)
	job, ok := r.jobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", repository.ErrNotFound, key)
	}
	return job.Clone(), nil
}

func (r *jobRepository) GetByKeys(ctx context.Context, keys []string) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Job, 0, len(keys))
	for _, k := range keys {
		if job, ok := r.jobs[k]; ok {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (r *jobRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	nowMs := now.UnixMilli()
	return r.deleteWhere(func(j *domain.Job) bool {
		return j.ClosingAt != nil && *j.ClosingAt < nowMs
	}), nil
}

func (r *jobRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffMs := cutoff.UnixMilli()
	return r.deleteWhere(func(j *domain.Job) bool {
		return j.ClosingAt == nil && j.CreatedAt < cutoffMs
	}), nil
}

func (r *jobRepository) deleteWhere(match func(*domain.Job) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for key, job := range r.jobs {
		if match(job) {
			delete(r.jobs, key)
			deleted++
		}
	}
	return deleted
}

func (r *jobRepository) CountBySource(ctx context.Context, source string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, job := range r.jobs {
		if job.Source == source {
			n++
		}
	}
	return n, nil
}

func (r *jobRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs), nil
}

func (r *jobRepository) ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error) {
	r.mu.RLock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if source == "" || job.Source == source {
			out = append(out, job.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt != out[k].CreatedAt {
			return out[i].CreatedAt > out[k].CreatedAt
		}
		return out[i].JobKey < out[k].JobKey
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
