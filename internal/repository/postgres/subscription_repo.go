package postgres

import (
	"context"
	"fmt"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/repository"
	repositoryIface "jobsync/internal/repository/iface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type subscriptionRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewSubscriptionRepository creates a new PostgreSQL subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool, log logger.Logger) repositoryIface.SubscriptionRepository {
	return &subscriptionRepository{
		pool:   pool,
		logger: log.With(logger.String("component", "subscription_repository")),
	}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.AlertSubscription) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO alert_subscriptions (id, device_token, frequency, categories, locations,
			keywords, organizations, experience_levels, expression, active, last_notified_at,
			notification_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sub.ID, sub.DeviceToken, string(sub.Frequency), orEmpty(sub.Categories), orEmpty(sub.Locations),
		orEmpty(sub.Keywords), orEmpty(sub.Organizations), levelsToStrings(sub.ExperienceLevels),
		sub.Expression, sub.Active, sub.LastNotifiedAt, sub.NotificationCount, sub.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create subscription", logger.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]*domain.AlertSubscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, device_token, frequency, categories, locations, keywords, organizations,
			experience_levels, expression, active, last_notified_at, notification_count, created_at
		 FROM alert_subscriptions
		 WHERE active = true
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*domain.AlertSubscription
	for rows.Next() {
		var (
			s         domain.AlertSubscription
			frequency string
			levels    []string
		)
		if err := rows.Scan(
			&s.ID, &s.DeviceToken, &frequency, &s.Categories, &s.Locations, &s.Keywords,
			&s.Organizations, &levels, &s.Expression, &s.Active, &s.LastNotifiedAt,
			&s.NotificationCount, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.Frequency = domain.NotificationFrequency(frequency)
		for _, l := range levels {
			s.ExperienceLevels = append(s.ExperienceLevels, domain.ExperienceLevel(l))
		}
		subs = append(subs, &s)
	}

	return subs, rows.Err()
}

func (r *subscriptionRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE alert_subscriptions
		 SET last_notified_at = $2, notification_count = notification_count + 1
		 WHERE id = $1`,
		id, at.UnixMilli())
	if err != nil {
		r.logger.Error("failed to mark subscription notified",
			logger.String("subscription_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to mark subscription notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: subscription %s", repository.ErrNotFound, id)
	}
	return nil
}

func (r *subscriptionRepository) DeactivateDevice(ctx context.Context, deviceToken string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE alert_subscriptions SET active = false WHERE device_token = $1 AND active = true`,
		deviceToken)
	if err != nil {
		r.logger.Error("failed to deactivate device", logger.Error(err))
		return 0, fmt.Errorf("failed to deactivate device: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func levelsToStrings(levels []domain.ExperienceLevel) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, string(l))
	}
	return out
}
