package main

import (
	"jobsync/commons/config"
	"jobsync/commons/server"
	internalConfig "jobsync/internal/config"
	notification_init "jobsync/internal/consumer/notification_queue/init"

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
			internalConfig.ProvideStores,
			internalConfig.ProvideAlertMatcher,
			internalConfig.ProvideNotificationFanOut,
			internalConfig.ProvideNotifierHealthHandler,
			internalConfig.ProvideNotifierRouterConfig,
			internalConfig.ProvideNotifierServerConfig,
			internalConfig.ProvideNotifierRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		notification_init.NotificationQueueModule(),
		fx.Invoke(func(*server.HTTPServer) {}),
	).Run()
}
