package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memoryCache "jobsync/internal/cache/memory"
	coordinator "jobsync/internal/coordinator/iface"
	"jobsync/internal/domain"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/repository/memory"
	"jobsync/internal/source"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func sampleJob(src, id string) *domain.Job {
	j := &domain.Job{
		Source:          src,
		SourceID:        id,
		Title:           "Job " + id,
		Organization:    "UNICEF",
		Location:        "Nairobi, Kenya",
		Country:         "Kenya",
		Category:        "Information Technology",
		ExperienceLevel: domain.ExperienceMid,
		ApplyURL:        "https://example.org/jobs/" + id,
	}
	j.Normalize()
	return j
}

type fakeSource struct {
	name    string
	jobs    []*domain.Job
	err     error
	panic   bool
	block   chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Collect(ctx context.Context) (*source.Batch, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panic {
		panic("adapter bug")
	}
	if f.err != nil {
		return nil, f.err
	}

	jobs := make([]*domain.Job, len(f.jobs))
	for i, j := range f.jobs {
		jobs[i] = j.Clone()
	}
	return &source.Batch{Source: f.name, Jobs: jobs, Fetched: len(jobs)}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]*domain.Job
}

func (p *recordingPublisher) PublishNewJobs(ctx context.Context, run *domain.SyncRun, created []*domain.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, created)
	return nil
}

func (p *recordingPublisher) published() [][]*domain.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]*domain.Job(nil), p.calls...)
}

type recordingEvents struct {
	mu      sync.Mutex
	changes []events.StoreChange
}

func (r *recordingEvents) Publish(ctx context.Context, change events.StoreChange) {
	if change.Empty() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recordingEvents) all() []events.StoreChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.StoreChange(nil), r.changes...)
}

// failingRepo fails upserts of one key and delegates everything else
type failingRepo struct {
	repositoryIface.JobRepository
	failKey string
}

func (r *failingRepo) Upsert(ctx context.Context, job *domain.Job, now time.Time) (*domain.Job, error) {
	if job.Key() == r.failKey {
		return nil, errors.New("conditional write rejected")
	}
	return r.JobRepository.Upsert(ctx, job, now)
}

type fakeCoordinator struct {
	mu       sync.Mutex
	held     map[string]bool
	updates  map[string][]byte
	watchers map[string]func([]byte)
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		held:     make(map[string]bool),
		updates:  make(map[string][]byte),
		watchers: make(map[string]func([]byte)),
	}
}

func (c *fakeCoordinator) CreateNode(path string, data []byte) error { return nil }
func (c *fakeCoordinator) GetNode(path string) ([]byte, error)      { return nil, nil }
func (c *fakeCoordinator) Close() error                             { return nil }

func (c *fakeCoordinator) UpdateNode(path string, data []byte) error {
	c.mu.Lock()
	c.updates[path] = data
	h := c.watchers[path]
	c.mu.Unlock()
	if h != nil {
		h(data)
	}
	return nil
}

func (c *fakeCoordinator) WatchNode(path string, handler func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers[path] = handler
	return nil
}

func (c *fakeCoordinator) AcquireLock(path string, owner []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held[path] {
		return coordinator.ErrLockHeld
	}
	c.held[path] = true
	return nil
}

func (c *fakeCoordinator) ReleaseLock(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, path)
	return nil
}

func (c *fakeCoordinator) isHeld(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held[path]
}

type orchestratorFixture struct {
	o         *orchestrator
	repo      repositoryIface.JobRepository
	publisher *recordingPublisher
	clock     *testClock
}

func newOrchestratorFixture(t *testing.T, coord coordinator.Coordinator, sources ...ScheduledSource) *orchestratorFixture {
	t.Helper()

	log := logger.NewNopLogger()
	repo := memory.NewJobRepository()
	c := memoryCache.NewMemoryCache()
	bus := events.NewBus(log)
	SubscribeCacheInvalidator(bus, NewCacheInvalidator(c, log))

	clock := newTestClock()
	publisher := &recordingPublisher{}

	params := OrchestratorParams{
		Sources:   sources,
		Engine:    NewUpsertEngine(repo, bus, log),
		Sweeper:   NewCleanupSweeper(repo, bus, 0, log),
		Publisher: publisher,
		Query:     NewJobQuery(repo, c, time.Minute, log),
		Logger:    log,
		Clock:     clock.Now,
	}
	if coord != nil {
		params.Coordinator = coord
	}

	o, err := NewOrchestrator(params)
	require.NoError(t, err)

	return &orchestratorFixture{
		o:         o.(*orchestrator),
		repo:      repo,
		publisher: publisher,
		clock:     clock,
	}
}
