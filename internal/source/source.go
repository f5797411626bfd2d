package source

import (
	"context"
	"errors"
	"fmt"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
)

// Adapter fetches raw records of type R from one external source and
// converts each into a canonical job.
type Adapter[R any] interface {
	// Name is the source tag stamped on every produced job
	Name() string

	// Fetch retrieves the current listings. Network errors come back classified.
	Fetch(ctx context.Context) ([]R, error)

	// Transform maps one raw record. It must not perform I/O.
	Transform(raw R) (*domain.Job, error)
}

// Source is an adapter with its raw record type erased
type Source interface {
	Name() string
	Collect(ctx context.Context) (*Batch, error)
}

// Batch is the outcome of one fetch and transform pass
type Batch struct {
	Source  string
	Jobs    []*domain.Job
	Fetched int
	// Errors counts records that failed to transform or validate
	Errors int
}

type boundSource[R any] struct {
	adapter Adapter[R]
	logger  logger.Logger
}

// Bind erases the raw record type of an adapter
func Bind[R any](adapter Adapter[R], log logger.Logger) Source {
	return &boundSource[R]{
		adapter: adapter,
		logger:  log.With(logger.String("component", "source"), logger.String("source", adapter.Name())),
	}
}

func (b *boundSource[R]) Name() string {
	return b.adapter.Name()
}

// Collect fetches and transforms. A malformed record is counted and skipped,
// it never aborts the batch.
func (b *boundSource[R]) Collect(ctx context.Context) (*Batch, error) {
	raws, err := b.adapter.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		Source:  b.adapter.Name(),
		Jobs:    make([]*domain.Job, 0, len(raws)),
		Fetched: len(raws),
	}

	for i, raw := range raws {
		job, err := b.transform(raw)
		if err != nil {
			batch.Errors++
			b.logger.Warn("skipping record",
				logger.Int("index", i),
				logger.Error(err))
			continue
		}
		batch.Jobs = append(batch.Jobs, job)
	}

	b.logger.Info("source collected",
		logger.Int("fetched", batch.Fetched),
		logger.Int("transformed", len(batch.Jobs)),
		logger.Int("errors", batch.Errors))

	return batch, nil
}

func (b *boundSource[R]) transform(raw R) (job *domain.Job, err error) {
	name := b.adapter.Name()

	defer func() {
		if r := recover(); r != nil {
			job = nil
			err = domain.NewSyncError(domain.KindRecordTransform, name, fmt.Errorf("transform panicked: %v", r))
		}
	}()

	job, err = b.adapter.Transform(raw)
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, name, err)
	}
	if job == nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, name, errors.New("transform returned no job"))
	}

	if job.Source == "" {
		job.Source = name
	}
	job.Normalize()

	if err := job.Validate(); err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, name, fmt.Errorf("invalid job %s: %w", job.Key(), err))
	}

	return job, nil
}
