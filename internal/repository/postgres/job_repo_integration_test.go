package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*jobRepository, func()) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping postgres integration test")
	}

	ctx := context.Background()
	log := logger.NewNopLogger()

	pool, err := NewPool(ctx, url, log)
	require.NoError(t, err)
	require.NoError(t, EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `DELETE FROM jobs WHERE source = 'itest'`)
	require.NoError(t, err)

	repo := NewJobRepository(pool, log).(*jobRepository)
	return repo, func() {
		pool.Exec(ctx, `DELETE FROM jobs WHERE source = 'itest'`)
		pool.Close()
	}
}

func TestJobRepository_UpsertClassification(t *testing.T) {
	repo, cleanup := setupRepo(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now()

	job := &domain.Job{Source: "itest", SourceID: "1", Title: "Data Analyst", ApplyURL: "https://example.org/1"}
	job.Normalize()

	created, err := repo.Upsert(ctx, job, now)
	require.NoError(t, err)
	assert.True(t, created.IsNew())

	job.Title = "Senior Data Analyst"
	updated, err := repo.Upsert(ctx, job, now)
	require.NoError(t, err)
	assert.False(t, updated.IsNew())
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Senior Data Analyst", updated.Title)

	n, err := repo.CountBySource(ctx, "itest")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetByKey(ctx, "itest", "missing")
	assert.True(t, repository.IsNotFoundError(err))
}
