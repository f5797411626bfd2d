package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	now := clock.Now()
	repo := memory.NewJobRepository()

	seed := func(id string, createdAgo time.Duration, closing *time.Time) {
		job := sampleJob("reliefweb", id)
		if closing != nil {
			job.SetClosing(*closing)
		}
		_, err := repo.Upsert(ctx, job, now.Add(-createdAgo))
		require.NoError(t, err)
	}

	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	seed("closed-yesterday", time.Hour, &yesterday)
	seed("closes-tomorrow", 60*24*time.Hour, &tomorrow)
	seed("open-31d", 31*24*time.Hour, nil)
	seed("open-29d", 29*24*time.Hour, nil)

	rec := &recordingEvents{}
	sweeper := newCleanupSweeper(repo, rec, 0, logger.NewNopLogger(), clock.Now)

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, 1, result.Stale)

	_, err = repo.GetByKey(ctx, "reliefweb", "closes-tomorrow")
	assert.NoError(t, err)
	_, err = repo.GetByKey(ctx, "reliefweb", "open-29d")
	assert.NoError(t, err)
	_, err = repo.GetByKey(ctx, "reliefweb", "open-31d")
	assert.Error(t, err)

	changes := rec.all()
	require.Len(t, changes, 1)
	assert.Equal(t, events.ReasonCleanup, changes[0].Reason)
	assert.Equal(t, 2, changes[0].Deleted)

	// nothing left to delete, nothing published
	result, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total())
	assert.Len(t, rec.all(), 1)
}

type brokenExpiryRepo struct {
	repositoryIface.JobRepository
}

func (r *brokenExpiryRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, errors.New("scan failed")
}

func TestCleanupSweeper_StalePhaseRunsWhenExpiredFails(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	inner := memory.NewJobRepository()
	_, err := inner.Upsert(ctx, sampleJob("unjobs", "old"), clock.Now().Add(-40*24*time.Hour))
	require.NoError(t, err)

	sweeper := newCleanupSweeper(&brokenExpiryRepo{inner}, nil, 0, logger.NewNopLogger(), clock.Now)

	result, err := sweeper.Sweep(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPersistence))
	assert.Equal(t, 1, result.Stale)
}
