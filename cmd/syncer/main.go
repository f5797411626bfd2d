package main

import (
	"jobsync/commons/config"
	"jobsync/commons/server"
	internalConfig "jobsync/internal/config"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		fx.WithLogger(config.ProvideFxLogger),
		fx.Provide(
			config.ProvideSettings,
			config.ProvideLogger,
			config.ProvideRouteDependencies,
			config.ProvideAWSConfig,
			config.ProvideSQSClient,
			config.ProvideDynamoDBClient,
			config.ProvideRetryController,
			config.ProvidePushClient,
			config.ProvideZooKeeperCoordinator,
			config.ProvideCache,
			config.ProvideEventBus,
			internalConfig.ProvideStores,
			internalConfig.ProvideFetcher,
			internalConfig.ProvideScheduledSources,
			internalConfig.ProvideUpsertEngine,
			internalConfig.ProvideCleanupSweeper,
			internalConfig.ProvideJobQuery,
			internalConfig.ProvideCacheInvalidator,
			internalConfig.ProvideAlertMatcher,
			internalConfig.ProvideNotificationFanOut,
			internalConfig.ProvideNewJobsPublisher,
			internalConfig.ProvideOrchestrator,
			internalConfig.ProvideSyncerHealthHandler,
			internalConfig.ProvideSyncHandler,
			internalConfig.ProvideJobHandler,
			internalConfig.ProvideSyncerRouterConfig,
			internalConfig.ProvideSyncerServerConfig,
			internalConfig.ProvideSyncerRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(
			internalConfig.SubscribeStoreListeners,
			internalConfig.ManageOrchestratorLifecycle,
		),
	).Run()
}
