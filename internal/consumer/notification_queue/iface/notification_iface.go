package notification_queue

import (
	"context"
)

// MaxKeysPerMessage keeps a NewJobsMessage well below the SQS size limit
const MaxKeysPerMessage = 500

// NewJobsMessage announces the listings a sync run created
type NewJobsMessage struct {
	Source  string   `json:"source"`
	RunID   string   `json:"run_id"`
	JobKeys []string `json:"job_keys"`
}

// NotificationConsumer defines the interface for processing notification queue messages
type NotificationConsumer interface {
	// ProcessMessage reloads the announced jobs and fans them out.
	// Returns true if processing succeeded (message should be deleted)
	ProcessMessage(ctx context.Context, message NewJobsMessage) bool

	// SendMessage sends a message to the notification queue
	SendMessage(ctx context.Context, message NewJobsMessage) error
}
