// internal/consumer/notification_queue/init/notification_init.go
package notification_queue

import (
	"context"

	"jobsync/internal/config"
	notification "jobsync/internal/consumer/notification_queue/iface"
	notificationImpl "jobsync/internal/consumer/notification_queue/impl"
	"jobsync/internal/logger"
	queue "jobsync/internal/queue/iface"
	"jobsync/internal/queue/sqs"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/service"

	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/fx"
)

// NotificationQueueParams holds dependencies for the notification queue
type NotificationQueueParams struct {
	fx.In

	Logger    logger.Logger
	Settings  *config.Settings
	SQSClient *awssqs.Client
	JobRepo   repositoryIface.JobRepository
	FanOut    service.NotificationFanOut
}

// NotificationQueueResult holds what this module provides
type NotificationQueueResult struct {
	fx.Out

	Consumer notification.NotificationConsumer
	Queue    queue.Queue `name:"notification_queue"`
}

// ProvideNotificationQueueAndConsumer wires the long-poll consumer to the fan-out
func ProvideNotificationQueueAndConsumer(params NotificationQueueParams) NotificationQueueResult {
	// the processor closes over the consumer created below
	var consumer notification.NotificationConsumer

	q := sqs.NewSQSQueue(
		params.SQSClient,
		sqs.QueueConfig{
			QueueURL:        params.Settings.Notify.QueueURL,
			WorkerCount:     params.Settings.Notify.QueueWorkers,
			MaxMessages:     10,
			WaitTimeSeconds: 20,
		},
		queue.MessageProcessorFunc[notification.NewJobsMessage](func(ctx context.Context, msg notification.NewJobsMessage) bool {
			return consumer.ProcessMessage(ctx, msg)
		}),
		params.Logger,
	)

	consumer = notificationImpl.NewNotificationConsumer(params.Logger, q, params.JobRepo, params.FanOut)

	return NotificationQueueResult{
		Consumer: consumer,
		Queue:    q,
	}
}

// NotificationQueueModule provides the FX module for the notification queue
func NotificationQueueModule() fx.Option {
	return fx.Options(
		fx.Provide(
			ProvideNotificationQueueAndConsumer,
		),
		fx.Invoke(func(params struct {
			fx.In
			Lifecycle fx.Lifecycle
			Queue     queue.Queue `name:"notification_queue"`
			Logger    logger.Logger
		}) {
			params.Lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					params.Logger.Info("starting notification queue consumer")
					return params.Queue.StartConsumer(ctx)
				},
				OnStop: func(ctx context.Context) error {
					params.Logger.Info("stopping notification queue consumer")
					return params.Queue.StopConsumer(ctx)
				},
			})
		}),
	)
}
