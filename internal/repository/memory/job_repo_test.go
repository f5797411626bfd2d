package memory

import (
	"context"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(source, id string) *domain.Job {
	j := &domain.Job{
		Source:   source,
		SourceID: id,
		Title:    "Programme Officer",
		ApplyURL: "https://example.org/jobs/" + id,
	}
	j.Normalize()
	return j
}

func TestJobRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()
	t0 := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	created, err := repo.Upsert(ctx, testJob("reliefweb", "1"), t0)
	require.NoError(t, err)
	assert.True(t, created.IsNew())
	assert.Equal(t, t0.UnixMilli(), created.CreatedAt)

	t.Run("same millisecond update is still an update", func(t *testing.T) {
		updated, err := repo.Upsert(ctx, testJob("reliefweb", "1"), t0)
		require.NoError(t, err)
		assert.False(t, updated.IsNew())
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Greater(t, updated.UpdatedAt, updated.CreatedAt)
	})

	t.Run("later update keeps created_at", func(t *testing.T) {
		j := testJob("reliefweb", "1")
		j.Title = "Senior Programme Officer"
		updated, err := repo.Upsert(ctx, j, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, t0.Add(time.Hour).UnixMilli(), updated.UpdatedAt)

		got, err := repo.GetByKey(ctx, "reliefweb", "1")
		require.NoError(t, err)
		assert.Equal(t, "Senior Programme Officer", got.Title)
	})

	t.Run("same id under another source is distinct", func(t *testing.T) {
		other, err := repo.Upsert(ctx, testJob("unjobs", "1"), t0)
		require.NoError(t, err)
		assert.True(t, other.IsNew())

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := repo.GetByKey(ctx, "reliefweb", "404")
		assert.True(t, repository.IsNotFoundError(err))
	})
}

func TestJobRepository_Deletes(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	expired := testJob("reliefweb", "expired")
	expired.SetClosing(now.Add(-24 * time.Hour))
	open := testJob("reliefweb", "open")
	open.SetClosing(now.Add(24 * time.Hour))

	_, err := repo.Upsert(ctx, expired, now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, open, now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, testJob("unjobs", "old"), now.Add(-31*24*time.Hour))
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, testJob("unjobs", "fresh"), now.Add(-29*24*time.Hour))
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteStale(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	remaining, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	keys := []string{}
	for _, j := range remaining {
		keys = append(keys, j.JobKey)
	}
	assert.ElementsMatch(t, []string{"reliefweb#open", "unjobs#fresh"}, keys)

	count, err := repo.CountBySource(ctx, "unjobs")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
