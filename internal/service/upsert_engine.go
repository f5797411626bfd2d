package service

import (
	"context"
	"fmt"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	repositoryIface "jobsync/internal/repository/iface"
)

const defaultWriteTimeout = 10 * time.Second

// UpsertResult summarises one batch written by the engine
type UpsertResult struct {
	Created []*domain.Job
	Updated int
	Errors  int
}

// UpsertEngine writes canonical records idempotently, keyed on (source, source_id)
type UpsertEngine interface {
	Apply(ctx context.Context, source string, jobs []*domain.Job) UpsertResult
}

type upsertEngine struct {
	repo         repositoryIface.JobRepository
	events       events.Publisher
	logger       logger.Logger
	now          func() time.Time
	writeTimeout time.Duration
}

// NewUpsertEngine creates the engine. events may be nil.
func NewUpsertEngine(repo repositoryIface.JobRepository, publisher events.Publisher, log logger.Logger) UpsertEngine {
	return &upsertEngine{
		repo:         repo,
		events:       publisher,
		logger:       log.With(logger.String("component", "upsert_engine")),
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
	}
}

// Apply writes every job with one atomic repository upsert. A failed write is
// counted and the batch continues. The writes are detached from ctx
// cancellation so a run that finished fetching always finishes persisting.
func (e *upsertEngine) Apply(ctx context.Context, source string, jobs []*domain.Job) UpsertResult {
	ctx = context.WithoutCancel(ctx)
	result := UpsertResult{Created: []*domain.Job{}}

	for _, job := range dedupByKey(jobs) {
		stored, err := e.write(ctx, job)
		if err != nil {
			result.Errors++
			e.logger.Warn("upsert failed",
				logger.String("source", source),
				logger.String("job_key", job.Key()),
				logger.Error(err))
			continue
		}

		if stored.IsNew() {
			result.Created = append(result.Created, stored)
		} else {
			result.Updated++
		}
	}

	e.logger.Info("batch upserted",
		logger.String("source", source),
		logger.Int("input", len(jobs)),
		logger.Int("created", len(result.Created)),
		logger.Int("updated", result.Updated),
		logger.Int("errors", result.Errors))

	if e.events != nil {
		e.events.Publish(ctx, events.StoreChange{
			Source:  source,
			Reason:  events.ReasonUpsert,
			Created: len(result.Created),
			Updated: result.Updated,
		})
	}

	return result
}

func (e *upsertEngine) write(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, e.writeTimeout)
	defer cancel()

	stored, err := e.repo.Upsert(ctx, job, e.now())
	if err != nil {
		return nil, domain.NewSyncError(domain.KindPersistence, job.Source,
			fmt.Errorf("failed to upsert %s: %w", job.Key(), err))
	}
	return stored, nil
}

// dedupByKey collapses repeated keys, keeping the last occurrence at the
// position of the first
func dedupByKey(jobs []*domain.Job) []*domain.Job {
	index := make(map[string]int, len(jobs))
	out := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		key := job.Key()
		if i, ok := index[key]; ok {
			out[i] = job
			continue
		}
		index[key] = len(out)
		out = append(out, job)
	}
	return out
}
