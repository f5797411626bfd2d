package notification

import (
	"context"

	notification "jobsync/internal/consumer/notification_queue/iface"
	"jobsync/internal/logger"
	queue "jobsync/internal/queue/iface"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/service"
)

type notificationConsumer struct {
	logger  logger.Logger
	queue   queue.Queue
	jobRepo repositoryIface.JobRepository
	fanOut  service.NotificationFanOut
}

// NewNotificationConsumer creates a new notification consumer
func NewNotificationConsumer(
	log logger.Logger,
	q queue.Queue,
	jobRepo repositoryIface.JobRepository,
	fanOut service.NotificationFanOut,
) notification.NotificationConsumer {
	return &notificationConsumer{
		logger:  log.With(logger.String("component", "notification_consumer")),
		queue:   q,
		jobRepo: jobRepo,
		fanOut:  fanOut,
	}
}

// ProcessMessage implements NotificationConsumer interface
func (c *notificationConsumer) ProcessMessage(ctx context.Context, message notification.NewJobsMessage) bool {
	c.logger.Info("processing new jobs message",
		logger.String("source", message.Source),
		logger.String("run_id", message.RunID),
		logger.Int("job_keys", len(message.JobKeys)))

	if len(message.JobKeys) == 0 {
		return true
	}

	jobs, err := c.jobRepo.GetByKeys(ctx, message.JobKeys)
	if err != nil {
		c.logger.Error("failed to load announced jobs",
			logger.String("run_id", message.RunID),
			logger.Error(err))
		return false
	}

	// jobs swept between the sync and this message are simply skipped
	if len(jobs) < len(message.JobKeys) {
		c.logger.Debug("some announced jobs no longer exist",
			logger.Int("announced", len(message.JobKeys)),
			logger.Int("loaded", len(jobs)))
	}

	if _, err := c.fanOut.Notify(ctx, jobs); err != nil {
		c.logger.Error("notification fan-out failed",
			logger.String("run_id", message.RunID),
			logger.Error(err))
		return false
	}

	return true
}

// SendMessage sends a message to the notification queue
func (c *notificationConsumer) SendMessage(ctx context.Context, message notification.NewJobsMessage) error {
	if err := c.queue.Send(ctx, message); err != nil {
		c.logger.Error("failed to send message to notification queue",
			logger.String("run_id", message.RunID),
			logger.Error(err))
		return err
	}

	c.logger.Debug("message sent to notification queue",
		logger.String("run_id", message.RunID),
		logger.Int("job_keys", len(message.JobKeys)))
	return nil
}
