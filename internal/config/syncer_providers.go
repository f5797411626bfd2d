package config

import (
	"context"

	"jobsync/commons/routes"
	"jobsync/commons/server"
	cache "jobsync/internal/cache/iface"
	notification "jobsync/internal/consumer/notification_queue/iface"
	coordinator "jobsync/internal/coordinator/iface"
	"jobsync/internal/events"
	"jobsync/internal/handler"
	"jobsync/internal/logger"
	"jobsync/internal/push"
	"jobsync/internal/queue/sqs"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/retry"
	internalRoutes "jobsync/internal/routes"
	"jobsync/internal/service"
	"jobsync/internal/source"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Source Providers

// ProvideFetcher provides the shared HTTP fetcher for every source
func ProvideFetcher(s *Settings, controller *retry.Controller, log logger.Logger) *source.Fetcher {
	return source.NewFetcher(s.Sources.FetchTimeout, controller, log)
}

// ProvideScheduledSources builds the enabled sources with their sync intervals
func ProvideScheduledSources(s *Settings, fetcher *source.Fetcher, log logger.Logger) ([]service.ScheduledSource, error) {
	sources, err := source.NewRegistry(s.Registry(), fetcher, log)
	if err != nil {
		return nil, err
	}

	scheduled := make([]service.ScheduledSource, 0, len(sources))
	for _, src := range sources {
		interval, ok := s.Sources.Intervals[src.Name()]
		if !ok {
			interval = s.Sources.DefaultInterval
		}
		scheduled = append(scheduled, service.ScheduledSource{Source: src, Interval: interval})
	}
	return scheduled, nil
}

// Service Providers

func ProvideUpsertEngine(repo repositoryIface.JobRepository, bus *events.Bus, log logger.Logger) service.UpsertEngine {
	return service.NewUpsertEngine(repo, bus, log)
}

func ProvideCleanupSweeper(s *Settings, repo repositoryIface.JobRepository, bus *events.Bus, log logger.Logger) service.CleanupSweeper {
	return service.NewCleanupSweeper(repo, bus, s.Schedule.StaleAfter, log)
}

func ProvideJobQuery(s *Settings, repo repositoryIface.JobRepository, c cache.Cache, log logger.Logger) service.JobQuery {
	return service.NewJobQuery(repo, c, s.Cache.TTL, log)
}

func ProvideCacheInvalidator(c cache.Cache, log logger.Logger) service.CacheInvalidator {
	return service.NewCacheInvalidator(c, log)
}

func ProvideAlertMatcher(log logger.Logger) service.AlertMatcher {
	return service.NewAlertMatcher(log)
}

func ProvideNotificationFanOut(
	subs repositoryIface.SubscriptionRepository,
	matcher service.AlertMatcher,
	client push.Client,
	log logger.Logger,
) service.NotificationFanOut {
	return service.NewNotificationFanOut(subs, matcher, client, log)
}

// ProvideNewJobsPublisher notifies inline, or hands new job keys to the notifier over SQS
func ProvideNewJobsPublisher(
	s *Settings,
	fanOut service.NotificationFanOut,
	sqsClient *awssqs.Client,
	log logger.Logger,
) service.NewJobsPublisher {
	if s.Notify.Mode == service.NotifyModeQueue {
		q := sqs.NewSQSQueue[notification.NewJobsMessage](
			sqsClient,
			sqs.QueueConfig{QueueURL: s.Notify.QueueURL},
			nil,
			log,
		)
		return service.NewQueuePublisher(q, log)
	}
	return service.NewInlinePublisher(fanOut)
}

// OrchestratorDeps holds the orchestrator dependencies. The coordinator is nil without ZooKeeper.
type OrchestratorDeps struct {
	fx.In

	Settings    *Settings
	Sources     []service.ScheduledSource
	Engine      service.UpsertEngine
	Sweeper     service.CleanupSweeper
	Publisher   service.NewJobsPublisher
	Query       service.JobQuery
	Coordinator coordinator.Coordinator `optional:"true"`
	Logger      logger.Logger
}

func ProvideOrchestrator(d OrchestratorDeps) (service.Orchestrator, error) {
	return service.NewOrchestrator(service.OrchestratorParams{
		Config: service.OrchestratorConfig{
			TickSpec:    d.Settings.Schedule.TickSpec,
			CleanupSpec: d.Settings.Schedule.CleanupSpec,
			NodeID:      d.Settings.Server.NodeID,
		},
		Sources:     d.Sources,
		Engine:      d.Engine,
		Sweeper:     d.Sweeper,
		Publisher:   d.Publisher,
		Query:       d.Query,
		Coordinator: d.Coordinator,
		Logger:      d.Logger,
	})
}

// HTTP Providers

func ProvideSyncerHealthHandler(s *Settings, query service.JobQuery, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, query, "syncer", s.Server.NodeID)
}

func ProvideSyncHandler(orch service.Orchestrator, log logger.Logger) *handler.SyncHandler {
	return handler.NewSyncHandler(orch, log)
}

func ProvideJobHandler(query service.JobQuery, log logger.Logger) *handler.JobHandler {
	return handler.NewJobHandler(query, log)
}

func ProvideSyncerRouterConfig() routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: "syncer",
		Version:     "v1",
	}
}

func ProvideSyncerServerConfig(s *Settings) server.ServerConfig {
	return server.ServerConfig{
		Port: s.Server.Port,
	}
}

func ProvideSyncerRouteInitializer(
	healthHandler *handler.HealthHandler,
	syncHandler *handler.SyncHandler,
	jobHandler *handler.JobHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
		internalRoutes.InitSyncRoutes(router, syncHandler, deps.Logger)
		internalRoutes.InitJobRoutes(router, jobHandler, deps.Logger)
	}
}

// Lifecycle Management

// SubscribeStoreListeners connects the cache invalidator to store changes
func SubscribeStoreListeners(bus *events.Bus, inv service.CacheInvalidator) {
	service.SubscribeCacheInvalidator(bus, inv)
}

func ManageOrchestratorLifecycle(lc fx.Lifecycle, orch service.Orchestrator, srv *server.HTTPServer, log logger.Logger) {
	_ = srv

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting sync orchestrator")
			return orch.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping sync orchestrator")
			return orch.Stop(ctx)
		},
	})
}
