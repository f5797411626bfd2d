package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	repositoryIface "jobsync/internal/repository/iface"
)

// DefaultStaleAfter is how long a listing without a closing date is kept
const DefaultStaleAfter = 30 * 24 * time.Hour

// SweepResult counts the records removed by one sweep
type SweepResult struct {
	Expired int
	Stale   int
}

// Total returns the number of deleted records
func (r SweepResult) Total() int {
	return r.Expired + r.Stale
}

// CleanupSweeper removes listings that are closed or too old to trust
type CleanupSweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

type cleanupSweeper struct {
	repo       repositoryIface.JobRepository
	events     events.Publisher
	staleAfter time.Duration
	logger     logger.Logger
	now        func() time.Time
	mu         sync.Mutex
}

// NewCleanupSweeper creates a sweeper. staleAfter <= 0 uses DefaultStaleAfter.
func NewCleanupSweeper(
	repo repositoryIface.JobRepository,
	publisher events.Publisher,
	staleAfter time.Duration,
	log logger.Logger,
) CleanupSweeper {
	return newCleanupSweeper(repo, publisher, staleAfter, log, time.Now)
}

func newCleanupSweeper(
	repo repositoryIface.JobRepository,
	publisher events.Publisher,
	staleAfter time.Duration,
	log logger.Logger,
	now func() time.Time,
) *cleanupSweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &cleanupSweeper{
		repo:       repo,
		events:     publisher,
		staleAfter: staleAfter,
		logger:     log.With(logger.String("component", "cleanup_sweeper")),
		now:        now,
	}
}

// Sweep deletes expired then stale listings. Both phases always run; their
// errors are joined. Sweeps are serialized.
func (s *cleanupSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var result SweepResult
	var errs []error

	expired, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, domain.NewSyncError(domain.KindPersistence, "",
			fmt.Errorf("failed to delete expired jobs: %w", err)))
	}
	result.Expired = expired

	stale, err := s.repo.DeleteStale(ctx, now.Add(-s.staleAfter))
	if err != nil {
		errs = append(errs, domain.NewSyncError(domain.KindPersistence, "",
			fmt.Errorf("failed to delete stale jobs: %w", err)))
	}
	result.Stale = stale

	if result.Total() > 0 {
		s.logger.Info("cleanup sweep removed jobs",
			logger.Int("expired", result.Expired),
			logger.Int("stale", result.Stale))

		if s.events != nil {
			s.events.Publish(ctx, events.StoreChange{
				Reason:  events.ReasonCleanup,
				Deleted: result.Total(),
				At:      now,
			})
		}
	}

	return result, errors.Join(errs...)
}
