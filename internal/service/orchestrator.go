package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	coordinator "jobsync/internal/coordinator/iface"
	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/source"

	"github.com/robfig/cron/v3"
)

const (
	DefaultTickSpec       = "0 * * * * *"
	DefaultCleanupSpec    = "0 0 * * * *"
	DefaultSourceInterval = 6 * time.Hour

	lockRoot  = "/jobsync/locks"
	forceRoot = "/jobsync/force"
)

var (
	// ErrSyncInProgress is returned when the source is already running
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrUnknownSource is returned for a source name that is not registered
	ErrUnknownSource = errors.New("unknown source")
)

// IsSyncInProgressError reports whether err is ErrSyncInProgress
func IsSyncInProgressError(err error) bool {
	return errors.Is(err, ErrSyncInProgress)
}

// IsUnknownSourceError reports whether err is ErrUnknownSource
func IsUnknownSourceError(err error) bool {
	return errors.Is(err, ErrUnknownSource)
}

// ScheduledSource is a source with its own sync interval
type ScheduledSource struct {
	Source   source.Source
	Interval time.Duration
}

// UnknownCount is reported when the store could not be counted
const UnknownCount = -1

// SourceStatus is the operational view of one source
type SourceStatus struct {
	Source    string          `json:"source"`
	Count     int             `json:"count"`
	Running   bool            `json:"running"`
	Interval  string          `json:"interval"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt time.Time       `json:"next_run_at"`
	LastRun   *domain.SyncRun `json:"last_run,omitempty"`
}

// Orchestrator schedules source syncs and guarantees a source never runs
// concurrently with itself
type Orchestrator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// Tick launches every idle source whose interval has elapsed and returns their names
	Tick(ctx context.Context) []string
	RunSource(ctx context.Context, name string) (*domain.SyncRun, error)
	ForceSync(ctx context.Context, name string) error
	Status(ctx context.Context) ([]SourceStatus, error)

	LastRunAt(name string) (time.Time, bool)
	SetLastRunAt(name string, t time.Time)
}

// OrchestratorConfig holds the schedules and identity of this node
type OrchestratorConfig struct {
	TickSpec    string
	CleanupSpec string
	NodeID      string
}

// OrchestratorParams wires the orchestrator. Coordinator and Clock are optional.
type OrchestratorParams struct {
	Config      OrchestratorConfig
	Sources     []ScheduledSource
	Engine      UpsertEngine
	Sweeper     CleanupSweeper
	Publisher   NewJobsPublisher
	Query       JobQuery
	Coordinator coordinator.Coordinator
	Logger      logger.Logger
	Clock       func() time.Time
}

type sourceState struct {
	source    source.Source
	interval  time.Duration
	running   bool
	lastRunAt time.Time
	lastRun   *domain.SyncRun
}

type orchestrator struct {
	cfg       OrchestratorConfig
	engine    UpsertEngine
	sweeper   CleanupSweeper
	publisher NewJobsPublisher
	query     JobQuery
	coord     coordinator.Coordinator
	logger    logger.Logger
	now       func() time.Time
	cron      *cron.Cron

	mu     sync.Mutex
	states map[string]*sourceState
	order  []string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewOrchestrator creates the orchestrator for the given sources
func NewOrchestrator(p OrchestratorParams) (Orchestrator, error) {
	if p.Config.TickSpec == "" {
		p.Config.TickSpec = DefaultTickSpec
	}
	if p.Config.CleanupSpec == "" {
		p.Config.CleanupSpec = DefaultCleanupSpec
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}

	o := &orchestrator{
		cfg:       p.Config,
		engine:    p.Engine,
		sweeper:   p.Sweeper,
		publisher: p.Publisher,
		query:     p.Query,
		coord:     p.Coordinator,
		logger:    p.Logger.With(logger.String("component", "orchestrator")),
		now:       p.Clock,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		states:    make(map[string]*sourceState, len(p.Sources)),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())

	for _, s := range p.Sources {
		name := s.Source.Name()
		if _, dup := o.states[name]; dup {
			return nil, fmt.Errorf("source %s registered twice", name)
		}
		interval := s.Interval
		if interval <= 0 {
			interval = DefaultSourceInterval
		}
		o.states[name] = &sourceState{source: s.Source, interval: interval}
		o.order = append(o.order, name)
	}

	return o, nil
}

// Start registers the tick and cleanup crons and the force-sync watches
func (o *orchestrator) Start(ctx context.Context) error {
	if _, err := o.cron.AddFunc(o.cfg.TickSpec, func() {
		o.Tick(o.ctx)
	}); err != nil {
		return fmt.Errorf("failed to add tick cron: %w", err)
	}

	if _, err := o.cron.AddFunc(o.cfg.CleanupSpec, func() {
		o.sweep(o.ctx)
	}); err != nil {
		return fmt.Errorf("failed to add cleanup cron: %w", err)
	}

	if o.coord != nil {
		for _, name := range o.order {
			if err := o.coord.WatchNode(forceRoot+"/"+name, func([]byte) {
				o.logger.Info("force sync received", logger.String("source", name))
				o.resetLastRun(name)
			}); err != nil {
				// non-fatal: local ForceSync still works
				o.logger.Warn("failed to watch force-sync node",
					logger.String("source", name),
					logger.Error(err))
			}
		}
	}

	o.cron.Start()

	o.logger.Info("orchestrator started",
		logger.Int("sources", len(o.order)),
		logger.String("tick_spec", o.cfg.TickSpec),
		logger.String("cleanup_spec", o.cfg.CleanupSpec))
	return nil
}

// Stop halts the crons, cancels fetches in flight and waits for runs to finish
func (o *orchestrator) Stop(ctx context.Context) error {
	cronCtx := o.cron.Stop()
	o.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to drain sync runs: %w", ctx.Err())
	}
}

func (o *orchestrator) Tick(ctx context.Context) []string {
	now := o.now()

	o.mu.Lock()
	var due []string
	for _, name := range o.order {
		st := o.states[name]
		if !st.running && isDue(st, now) {
			due = append(due, name)
		}
	}
	o.mu.Unlock()

	for _, name := range due {
		o.wg.Add(1)
		go func(name string) {
			defer o.wg.Done()
			if _, err := o.RunSource(ctx, name); err != nil && IsSyncInProgressError(err) {
				o.logger.Debug("skipping source already running", logger.String("source", name))
			}
		}(name)
	}

	return due
}

func isDue(st *sourceState, now time.Time) bool {
	return st.lastRunAt.IsZero() || now.Sub(st.lastRunAt) >= st.interval
}

// RunSource executes one sync of the named source. It returns
// ErrSyncInProgress without side effects while that source is running.
func (o *orchestrator) RunSource(ctx context.Context, name string) (*domain.SyncRun, error) {
	st, startedAt, err := o.claim(name)
	if err != nil {
		return nil, err
	}

	release, err := o.lock(name)
	if err != nil {
		o.unclaim(st)
		return nil, err
	}
	defer release()

	run := domain.NewSyncRun(name, startedAt)
	defer o.finish(st, run)

	log := o.logger.With(
		logger.String("source", name),
		logger.String("run_id", run.RunID))
	log.Info("sync run started")

	created, err := o.execute(ctx, st.source, run)
	if err != nil {
		run.Fail(err)
		log.Error("sync run failed",
			logger.String("error_kind", string(run.ErrorKind)),
			logger.Error(err))
		return run, err
	}

	run.Success = true
	o.afterSuccess(ctx, run, created, log)
	return run, nil
}

// claim moves the source from Idle to Running and stamps its last run
func (o *orchestrator) claim(name string) (*sourceState, time.Time, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[name]
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if st.running {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrSyncInProgress, name)
	}

	now := o.now()
	st.running = true
	st.lastRunAt = now
	return st, now, nil
}

func (o *orchestrator) unclaim(st *sourceState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st.running = false
}

// lock takes the cluster-wide run lock when a coordinator is configured.
// A lock held by another node is reported as ErrSyncInProgress; any other
// coordinator failure degrades to running without the lock.
func (o *orchestrator) lock(name string) (func(), error) {
	noop := func() {}
	if o.coord == nil {
		return noop, nil
	}

	lockPath := lockRoot + "/" + name
	err := o.coord.AcquireLock(lockPath, []byte(o.cfg.NodeID))
	switch {
	case err == nil:
		return func() {
			if err := o.coord.ReleaseLock(lockPath); err != nil {
				o.logger.Warn("failed to release run lock",
					logger.String("source", name),
					logger.Error(err))
			}
		}, nil
	case coordinator.IsLockHeldError(err):
		return nil, fmt.Errorf("%w: %s runs on another node", ErrSyncInProgress, name)
	default:
		o.logger.Warn("run lock unavailable, continuing without it",
			logger.String("source", name),
			logger.Error(err))
		return noop, nil
	}
}

func (o *orchestrator) execute(ctx context.Context, src source.Source, run *domain.SyncRun) (created []*domain.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewSyncError(domain.KindUnknown, run.Source, fmt.Errorf("sync panicked: %v", r))
		}
	}()

	batch, err := src.Collect(ctx)
	if err != nil {
		return nil, err
	}
	run.Fetched = batch.Fetched
	run.Errors = batch.Errors

	result := o.engine.Apply(ctx, run.Source, batch.Jobs)
	run.Created = len(result.Created)
	run.Updated = result.Updated
	run.Errors += result.Errors

	if result.Errors > 0 && run.Created == 0 && run.Updated == 0 {
		return nil, domain.NewSyncError(domain.KindPersistence, run.Source,
			fmt.Errorf("all %d upserts failed", result.Errors))
	}

	return result.Created, nil
}

// afterSuccess sweeps then hands created records to the notification path.
// Neither step can fail the run.
func (o *orchestrator) afterSuccess(ctx context.Context, run *domain.SyncRun, created []*domain.Job, log logger.Logger) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("post-sync step panicked", logger.Any("panic", r))
		}
	}()

	o.sweep(ctx)

	if o.publisher == nil || len(created) == 0 {
		return
	}
	if err := o.publisher.PublishNewJobs(ctx, run, created); err != nil {
		log.Error("failed to publish new jobs",
			logger.Int("created", len(created)),
			logger.Error(err))
	}
}

func (o *orchestrator) sweep(ctx context.Context) {
	if o.sweeper == nil {
		return
	}
	if _, err := o.sweeper.Sweep(ctx); err != nil {
		o.logger.Error("cleanup sweep failed", logger.Error(err))
	}
}

func (o *orchestrator) finish(st *sourceState, run *domain.SyncRun) {
	run.FinishedAt = o.now()

	o.mu.Lock()
	st.running = false
	st.lastRun = run
	o.mu.Unlock()

	o.logger.Info("sync run finished",
		logger.String("source", run.Source),
		logger.String("run_id", run.RunID),
		logger.Bool("success", run.Success),
		logger.Int("fetched", run.Fetched),
		logger.Int("created", run.Created),
		logger.Int("updated", run.Updated),
		logger.Int("errors", run.Errors),
		logger.Duration("duration", run.Duration()))
}

// ForceSync makes the source eligible on the next tick on every node
func (o *orchestrator) ForceSync(ctx context.Context, name string) error {
	if !o.resetLastRun(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	o.logger.Info("force sync requested", logger.String("source", name))

	if o.coord == nil {
		return nil
	}
	stamp := strconv.FormatInt(o.now().UnixMilli(), 10)
	if err := o.coord.UpdateNode(forceRoot+"/"+name, []byte(stamp)); err != nil {
		return fmt.Errorf("failed to broadcast force sync: %w", err)
	}
	return nil
}

func (o *orchestrator) resetLastRun(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[name]
	if !ok {
		return false
	}
	st.lastRunAt = time.Time{}
	return true
}

func (o *orchestrator) Status(ctx context.Context) ([]SourceStatus, error) {
	type snapshot struct {
		name      string
		running   bool
		interval  time.Duration
		lastRunAt time.Time
		lastRun   *domain.SyncRun
	}

	o.mu.Lock()
	snaps := make([]snapshot, 0, len(o.order))
	for _, name := range o.order {
		st := o.states[name]
		var lastRun *domain.SyncRun
		if st.lastRun != nil {
			c := *st.lastRun
			lastRun = &c
		}
		snaps = append(snaps, snapshot{name, st.running, st.interval, st.lastRunAt, lastRun})
	}
	o.mu.Unlock()

	now := o.now()
	out := make([]SourceStatus, 0, len(snaps))
	for _, s := range snaps {
		count, err := o.query.CountBySource(ctx, s.name)
		if err != nil {
			o.logger.Warn("failed to count jobs for status",
				logger.String("source", s.name),
				logger.Error(err))
			count = UnknownCount
		}

		status := SourceStatus{
			Source:    s.name,
			Count:     count,
			Running:   s.running,
			Interval:  s.interval.String(),
			NextRunAt: now,
			LastRun:   s.lastRun,
		}
		if !s.lastRunAt.IsZero() {
			t := s.lastRunAt
			status.LastRunAt = &t
			if next := t.Add(s.interval); next.After(now) {
				status.NextRunAt = next
			}
		}
		out = append(out, status)
	}
	return out, nil
}

func (o *orchestrator) LastRunAt(name string) (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[name]
	if !ok || st.lastRunAt.IsZero() {
		return time.Time{}, false
	}
	return st.lastRunAt, true
}

func (o *orchestrator) SetLastRunAt(name string, t time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if st, ok := o.states[name]; ok {
		st.lastRunAt = t
	}
}

// wait blocks until every run launched by Tick has finished
func (o *orchestrator) wait() {
	o.wg.Wait()
}
