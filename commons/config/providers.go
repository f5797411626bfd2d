package config

import (
	"context"
	"fmt"

	"jobsync/commons/routes"
	cache "jobsync/internal/cache/iface"
	memoryCache "jobsync/internal/cache/memory"
	redisCache "jobsync/internal/cache/redis"
	settings "jobsync/internal/config"
	coordinator "jobsync/internal/coordinator/iface"
	zkCoordinator "jobsync/internal/coordinator/zk"
	"jobsync/internal/events"
	"jobsync/internal/logger"
	"jobsync/internal/push"
	"jobsync/internal/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// ProvideSettings loads and validates the environment configuration
func ProvideSettings() (*settings.Settings, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// ProvideLogger creates the production JSON logger or the development console logger
func ProvideLogger(s *settings.Settings) (logger.Logger, error) {
	if s.IsProduction() {
		return logger.NewZapLogger()
	}
	return logger.NewZapLoggerForDev()
}

// ProvideFxLogger creates the FX event logger using the application logger
func ProvideFxLogger(log logger.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{
		Logger: log.(*logger.ZapLogger).Logger(),
	}
}

// ProvideRouteDependencies creates route dependencies
func ProvideRouteDependencies(log logger.Logger) routes.RouteDependencies {
	return routes.RouteDependencies{
		Logger: log,
	}
}

// ProvideRouter creates and configures the Gin router with all routes
func ProvideRouter(
	config routes.RouterConfig,
	deps routes.RouteDependencies,
	routeInitializer func(*gin.Engine, routes.RouteDependencies),
) *gin.Engine {
	router := routes.NewRouter(config, deps)
	routeInitializer(router, deps)
	return router
}

// ProvideAWSConfig loads the shared AWS configuration for the configured region
func ProvideAWSConfig(s *settings.Settings) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(s.Store.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// ProvideSQSClient provides an SQS client (LocalStack when SQS_ENDPOINT is set)
func ProvideSQSClient(cfg aws.Config, s *settings.Settings) *sqs.Client {
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if s.Notify.SQSEndpoint != "" {
			o.BaseEndpoint = aws.String(s.Notify.SQSEndpoint)
		}
	})
}

// ProvideDynamoDBClient provides a DynamoDB client (DynamoDB Local when DYNAMODB_ENDPOINT is set)
func ProvideDynamoDBClient(cfg aws.Config, s *settings.Settings) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(cfg, func(o *awsdynamodb.Options) {
		if s.Store.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(s.Store.DynamoDBEndpoint)
		}
	})
}

// ProvideRetryController provides the shared retry controller for outbound HTTP
func ProvideRetryController(log logger.Logger) *retry.Controller {
	return retry.NewController(retry.DefaultPolicy(), log)
}

// ProvidePushClient provides the Expo push client, or a logging mock when push is disabled
func ProvidePushClient(s *settings.Settings, controller *retry.Controller, log logger.Logger) push.Client {
	if !s.Notify.PushEnabled {
		return push.NewMockClient(log)
	}
	return push.NewExpoClient(s.Notify.PushEndpoint, s.Notify.PushAccessToken, s.Notify.PushTimeout, controller, log)
}

// ProvideZooKeeperCoordinator connects to ZooKeeper when ZK_SERVERS is set.
// Without it the coordinator is nil and runs are guarded locally only.
func ProvideZooKeeperCoordinator(lc fx.Lifecycle, s *settings.Settings, log logger.Logger) (coordinator.Coordinator, error) {
	if !s.ZooKeeperEnabled() {
		log.Info("ZooKeeper not configured, running single-node")
		return nil, nil
	}

	coord, err := zkCoordinator.NewZKCoordinator(s.Cluster.ZKServers, s.Cluster.ZKSessionTimeout, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return coord.Close()
		},
	})
	return coord, nil
}

// ProvideCache provides the Redis cache, or a process-local cache when REDIS_ADDR is empty
func ProvideCache(lc fx.Lifecycle, s *settings.Settings, log logger.Logger) (cache.Cache, error) {
	var (
		c   cache.Cache
		err error
	)
	if s.Cache.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process cache")
		c = memoryCache.NewMemoryCache()
	} else {
		c, err = redisCache.NewRedisCache(s.Cache.RedisAddr, s.Cache.RedisPassword, s.Cache.RedisDB, log)
		if err != nil {
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

// ProvideEventBus provides the in-process store change bus
func ProvideEventBus(log logger.Logger) *events.Bus {
	return events.NewBus(log)
}
