package repository

import (
	"context"
	"time"

	"jobsync/internal/domain"
)

// JobRepository is the canonical listing store.
// Upsert is a single atomic find-or-create-and-replace keyed on (source, source_id):
// created_at is set only when the record is created, updated_at is set to now on
// every write and is strictly greater than created_at on every non-creating write.
type JobRepository interface {
	Upsert(ctx context.Context, job *domain.Job, now time.Time) (*domain.Job, error)
	GetByKey(ctx context.Context, source, sourceID string) (*domain.Job, error)
	GetByKeys(ctx context.Context, keys []string) ([]*domain.Job, error)

	// DeleteExpired removes records whose closing_at is set and earlier than now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// DeleteStale removes records without closing_at created before cutoff
	DeleteStale(ctx context.Context, cutoff time.Time) (int, error)

	CountBySource(ctx context.Context, source string) (int, error)
	Count(ctx context.Context) (int, error)
	// ListRecent returns newest first; an empty source lists every source
	ListRecent(ctx context.Context, source string, limit int) ([]*domain.Job, error)
}
