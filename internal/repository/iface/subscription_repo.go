package repository

import (
	"context"
	"time"

	"jobsync/internal/domain"
)

// SubscriptionRepository reads alert subscriptions and writes notification bookkeeping
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.AlertSubscription) error
	ListActive(ctx context.Context) ([]*domain.AlertSubscription, error)
	// MarkNotified stamps last_notified_at and increments notification_count
	MarkNotified(ctx context.Context, id string, at time.Time) error
	// DeactivateDevice disables every subscription registered for the token
	DeactivateDevice(ctx context.Context, deviceToken string) (int, error)
}
