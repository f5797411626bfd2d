package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_RunThenRerun(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "reliefweb", jobs: []*domain.Job{sampleJob("reliefweb", "1"), sampleJob("reliefweb", "2")}}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})

	run, err := f.o.RunSource(ctx, "reliefweb")
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, 2, run.Fetched)
	assert.Equal(t, 2, run.Created)
	assert.Equal(t, 0, run.Updated)
	assert.False(t, run.FinishedAt.IsZero())

	run, err = f.o.RunSource(ctx, "reliefweb")
	require.NoError(t, err)
	assert.Equal(t, 0, run.Created)
	assert.Equal(t, 2, run.Updated)

	n, err := f.repo.CountBySource(ctx, "reliefweb")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// only the first run had anything new to announce
	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Len(t, published[0], 2)
}

func TestOrchestrator_RejectsOverlappingRun(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		name:    "unjobs",
		jobs:    []*domain.Job{sampleJob("unjobs", "1")},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})

	type outcome struct {
		run *domain.SyncRun
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		run, err := f.o.RunSource(ctx, "unjobs")
		done <- outcome{run, err}
	}()

	<-src.started
	_, err := f.o.RunSource(ctx, "unjobs")
	require.Error(t, err)
	assert.True(t, IsSyncInProgressError(err))

	close(src.block)
	first := <-done
	require.NoError(t, first.err)
	assert.True(t, first.run.Success)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestOrchestrator_UnknownSource(t *testing.T) {
	f := newOrchestratorFixture(t, nil)

	_, err := f.o.RunSource(context.Background(), "nope")
	assert.True(t, IsUnknownSourceError(err))
	assert.True(t, IsUnknownSourceError(f.o.ForceSync(context.Background(), "nope")))
}

func TestOrchestrator_DuplicateSourceRejected(t *testing.T) {
	_, err := NewOrchestrator(OrchestratorParams{
		Sources: []ScheduledSource{
			{Source: &fakeSource{name: "adzuna"}},
			{Source: &fakeSource{name: "adzuna"}},
		},
		Logger: logger.NewNopLogger(),
	})
	assert.Error(t, err)
}

func TestOrchestrator_TickHonoursIntervals(t *testing.T) {
	ctx := context.Background()
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b"}
	f := newOrchestratorFixture(t, nil,
		ScheduledSource{Source: a, Interval: time.Hour},
		ScheduledSource{Source: b, Interval: 2 * time.Hour},
	)

	assert.Equal(t, []string{"a", "b"}, f.o.Tick(ctx))
	f.o.wait()

	f.clock.Advance(90 * time.Minute)
	assert.Equal(t, []string{"a"}, f.o.Tick(ctx))
	f.o.wait()

	f.clock.Advance(40 * time.Minute)
	assert.Equal(t, []string{"b"}, f.o.Tick(ctx))
	f.o.wait()

	assert.Empty(t, f.o.Tick(ctx))

	require.NoError(t, f.o.ForceSync(ctx, "a"))
	assert.Equal(t, []string{"a"}, f.o.Tick(ctx))
	f.o.wait()

	assert.Equal(t, int32(3), a.calls.Load())
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestOrchestrator_DefaultInterval(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: &fakeSource{name: "devjobs"}})

	f.o.Tick(ctx)
	f.o.wait()

	f.clock.Advance(DefaultSourceInterval - time.Minute)
	assert.Empty(t, f.o.Tick(ctx))

	f.clock.Advance(time.Minute)
	assert.Equal(t, []string{"devjobs"}, f.o.Tick(ctx))
	f.o.wait()
}

func TestOrchestrator_PanicFailsRunAndReleases(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "remotive", panic: true}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})

	run, err := f.o.RunSource(ctx, "remotive")
	require.Error(t, err)
	assert.False(t, run.Success)
	assert.Equal(t, domain.KindUnknown, run.ErrorKind)

	src.panic = false
	run, err = f.o.RunSource(ctx, "remotive")
	require.NoError(t, err)
	assert.True(t, run.Success)
}

func TestOrchestrator_FetchErrorSkipsPublish(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		name: "jsearch",
		err:  domain.NewSyncError(domain.KindExhaustedRetries, "jsearch", errors.New("503 three times")),
	}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})

	run, err := f.o.RunSource(ctx, "jsearch")
	require.Error(t, err)
	assert.Equal(t, domain.KindExhaustedRetries, run.ErrorKind)
	assert.NotEmpty(t, run.ErrorMessage)
	assert.Empty(t, f.publisher.published())

	// a failed run still counts as a run for scheduling
	last, ok := f.o.LastRunAt("jsearch")
	require.True(t, ok)
	assert.Equal(t, f.clock.Now(), last)
}

func TestOrchestrator_AllUpsertsFailedIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "adzuna", jobs: []*domain.Job{sampleJob("adzuna", "1")}}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})
	f.o.engine = NewUpsertEngine(&failingRepo{JobRepository: f.repo, failKey: "adzuna#1"}, nil, logger.NewNopLogger())

	run, err := f.o.RunSource(ctx, "adzuna")
	require.Error(t, err)
	assert.Equal(t, domain.KindPersistence, run.ErrorKind)
	assert.Equal(t, 1, run.Errors)
}

func TestOrchestrator_StatusReflectsStore(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{name: "reliefweb", jobs: []*domain.Job{sampleJob("reliefweb", "1"), sampleJob("reliefweb", "2")}}
	f := newOrchestratorFixture(t, nil, ScheduledSource{Source: src, Interval: time.Hour})

	status, err := f.o.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, 0, status[0].Count)
	assert.Nil(t, status[0].LastRunAt)
	assert.Nil(t, status[0].LastRun)

	_, err = f.o.RunSource(ctx, "reliefweb")
	require.NoError(t, err)

	// the cached zero count must not survive the upsert
	status, err = f.o.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status[0].Count)
	assert.False(t, status[0].Running)
	assert.Equal(t, "1h0m0s", status[0].Interval)
	require.NotNil(t, status[0].LastRun)
	assert.True(t, status[0].LastRun.Success)
	require.NotNil(t, status[0].LastRunAt)
	assert.Equal(t, status[0].LastRunAt.Add(time.Hour), status[0].NextRunAt)
}

// countFailingQuery fails counts for one source and delegates everything else
type countFailingQuery struct {
	JobQuery
	source string
}

func (q countFailingQuery) CountBySource(ctx context.Context, source string) (int, error) {
	if source == q.source {
		return 0, errors.New("jobs table throttled")
	}
	return q.JobQuery.CountBySource(ctx, source)
}

func TestOrchestrator_StatusSurvivesCountFailure(t *testing.T) {
	ctx := context.Background()
	a := &fakeSource{name: "reliefweb", jobs: []*domain.Job{sampleJob("reliefweb", "1")}}
	b := &fakeSource{name: "unjobs", jobs: []*domain.Job{sampleJob("unjobs", "1")}}
	f := newOrchestratorFixture(t, nil,
		ScheduledSource{Source: a, Interval: time.Hour},
		ScheduledSource{Source: b, Interval: time.Hour})

	_, err := f.o.RunSource(ctx, "unjobs")
	require.NoError(t, err)
	f.o.query = countFailingQuery{JobQuery: f.o.query, source: "unjobs"}

	status, err := f.o.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)

	assert.Equal(t, "reliefweb", status[0].Source)
	assert.Equal(t, 0, status[0].Count)

	assert.Equal(t, "unjobs", status[1].Source)
	assert.Equal(t, UnknownCount, status[1].Count)
	require.NotNil(t, status[1].LastRun)
	assert.True(t, status[1].LastRun.Success)
	require.NotNil(t, status[1].LastRunAt)
}

func TestOrchestrator_LockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	coord := newFakeCoordinator()
	coord.held["/jobsync/locks/unjobs"] = true

	src := &fakeSource{name: "unjobs", jobs: []*domain.Job{sampleJob("unjobs", "1")}}
	f := newOrchestratorFixture(t, coord, ScheduledSource{Source: src, Interval: time.Hour})

	_, err := f.o.RunSource(ctx, "unjobs")
	require.Error(t, err)
	assert.True(t, IsSyncInProgressError(err))
	assert.Equal(t, int32(0), src.calls.Load())

	require.NoError(t, coord.ReleaseLock("/jobsync/locks/unjobs"))
	run, err := f.o.RunSource(ctx, "unjobs")
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.False(t, coord.isHeld("/jobsync/locks/unjobs"))
}

func TestOrchestrator_ForceSyncBroadcast(t *testing.T) {
	ctx := context.Background()
	coord := newFakeCoordinator()
	f := newOrchestratorFixture(t, coord, ScheduledSource{Source: &fakeSource{name: "a"}, Interval: time.Hour})

	// keep the crons quiet for the duration of the test
	f.o.cfg.TickSpec = "0 0 0 1 1 *"
	f.o.cfg.CleanupSpec = "0 0 0 1 1 *"
	require.NoError(t, f.o.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, f.o.Stop(stopCtx))
	}()

	require.NoError(t, f.o.ForceSync(ctx, "a"))
	assert.Contains(t, coord.updates, "/jobsync/force/a")

	// a broadcast from another node resets the local schedule
	f.o.SetLastRunAt("a", f.clock.Now())
	require.NoError(t, coord.UpdateNode("/jobsync/force/a", []byte("1")))
	_, ok := f.o.LastRunAt("a")
	assert.False(t, ok)
}
