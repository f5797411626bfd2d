package config

import (
	"context"
	"fmt"

	"jobsync/internal/logger"
	"jobsync/internal/repository/dynamodb"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/repository/memory"
	"jobsync/internal/repository/postgres"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/fx"
)

// StoreParams holds what the store providers need
type StoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Settings  *Settings
	DynamoDB  *awsdynamodb.Client
	Logger    logger.Logger
}

// StoreResult exposes the repositories for the configured backend
type StoreResult struct {
	fx.Out

	JobRepo repositoryIface.JobRepository
	SubRepo repositoryIface.SubscriptionRepository
}

// ProvideStores selects the job and subscription repositories by STORE_BACKEND
func ProvideStores(p StoreParams) (StoreResult, error) {
	log := p.Logger.With(logger.String("store_backend", p.Settings.Store.Backend))

	switch p.Settings.Store.Backend {
	case StoreDynamoDB:
		log.Info("using DynamoDB store",
			logger.String("jobs_table", p.Settings.Store.JobsTable),
			logger.String("subscriptions_table", p.Settings.Store.SubscriptionsTable))
		return StoreResult{
			JobRepo: dynamodb.NewJobRepository(p.DynamoDB, p.Settings.Store.JobsTable, p.Logger),
			SubRepo: dynamodb.NewSubscriptionRepository(p.DynamoDB, p.Settings.Store.SubscriptionsTable, p.Logger),
		}, nil

	case StorePostgres:
		pool, err := postgres.NewPool(context.Background(), p.Settings.Store.DatabaseURL, p.Logger)
		if err != nil {
			return StoreResult{}, fmt.Errorf("failed to open postgres store: %w", err)
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				pool.Close()
				return nil
			},
		})
		log.Info("using Postgres store")
		return StoreResult{
			JobRepo: postgres.NewJobRepository(pool, p.Logger),
			SubRepo: postgres.NewSubscriptionRepository(pool, p.Logger),
		}, nil

	case StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return StoreResult{
			JobRepo: memory.NewJobRepository(),
			SubRepo: memory.NewSubscriptionRepository(),
		}, nil
	}

	return StoreResult{}, fmt.Errorf("unsupported store backend %q", p.Settings.Store.Backend)
}
