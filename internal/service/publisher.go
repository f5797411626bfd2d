package service

import (
	"context"
	"fmt"

	notification "jobsync/internal/consumer/notification_queue/iface"
	"jobsync/internal/domain"
	"jobsync/internal/logger"
	queue "jobsync/internal/queue/iface"
)

// Notification delivery modes
const (
	NotifyModeInline = "inline"
	NotifyModeQueue  = "queue"
)

// NewJobsPublisher hands the records created by a run to the notification path
type NewJobsPublisher interface {
	PublishNewJobs(ctx context.Context, run *domain.SyncRun, created []*domain.Job) error
}

type inlinePublisher struct {
	fanOut NotificationFanOut
}

// NewInlinePublisher notifies subscribers in-process
func NewInlinePublisher(fanOut NotificationFanOut) NewJobsPublisher {
	return &inlinePublisher{fanOut: fanOut}
}

func (p *inlinePublisher) PublishNewJobs(ctx context.Context, run *domain.SyncRun, created []*domain.Job) error {
	if len(created) == 0 {
		return nil
	}
	_, err := p.fanOut.Notify(ctx, created)
	return err
}

type queuePublisher struct {
	queue  queue.Sender
	logger logger.Logger
}

// NewQueuePublisher announces new jobs on the notification queue
func NewQueuePublisher(q queue.Sender, log logger.Logger) NewJobsPublisher {
	return &queuePublisher{
		queue:  q,
		logger: log.With(logger.String("component", "queue_publisher")),
	}
}

// PublishNewJobs sends the created keys in chunks of MaxKeysPerMessage
func (p *queuePublisher) PublishNewJobs(ctx context.Context, run *domain.SyncRun, created []*domain.Job) error {
	keys := make([]string, len(created))
	for i, j := range created {
		keys[i] = j.Key()
	}

	for start := 0; start < len(keys); start += notification.MaxKeysPerMessage {
		end := min(start+notification.MaxKeysPerMessage, len(keys))
		msg := notification.NewJobsMessage{
			Source:  run.Source,
			RunID:   run.RunID,
			JobKeys: keys[start:end],
		}
		if err := p.queue.Send(ctx, msg); err != nil {
			return fmt.Errorf("failed to publish new jobs of run %s: %w", run.RunID, err)
		}
	}

	p.logger.Debug("new jobs published",
		logger.String("source", run.Source),
		logger.String("run_id", run.RunID),
		logger.Int("jobs", len(keys)))
	return nil
}
