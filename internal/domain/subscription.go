package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationFrequency controls how often a subscription may be notified
type NotificationFrequency string

const (
	FrequencyInstant NotificationFrequency = "instant"
	FrequencyDaily   NotificationFrequency = "daily"
	FrequencyWeekly  NotificationFrequency = "weekly"
)

// MinInterval returns the minimum spacing between two notifications
func (f NotificationFrequency) MinInterval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// AlertSubscription is a subscriber's saved job alert.
// The pipeline reads it and only ever writes notification bookkeeping.
type AlertSubscription struct {
	ID                string                `json:"id" dynamodbav:"id"`
	DeviceToken       string                `json:"device_token" dynamodbav:"device_token"`
	Frequency         NotificationFrequency `json:"frequency" dynamodbav:"frequency"`
	Categories        []string              `json:"categories" dynamodbav:"categories"`
	Locations         []string              `json:"locations" dynamodbav:"locations"`
	Keywords          []string              `json:"keywords" dynamodbav:"keywords"`
	Organizations     []string              `json:"organizations" dynamodbav:"organizations"`
	ExperienceLevels  []ExperienceLevel     `json:"experience_levels" dynamodbav:"experience_levels"`
	Expression        string                `json:"expression,omitempty" dynamodbav:"expression,omitempty"`
	Active            bool                  `json:"active" dynamodbav:"active"`
	LastNotifiedAt    *int64                `json:"last_notified_at,omitempty" dynamodbav:"last_notified_at,omitempty"`
	NotificationCount int                   `json:"notification_count" dynamodbav:"notification_count"`
	CreatedAt         int64                 `json:"created_at" dynamodbav:"created_at"`
}

// NewAlertSubscription creates an active subscription for a device
func NewAlertSubscription(deviceToken string, frequency NotificationFrequency) *AlertSubscription {
	return &AlertSubscription{
		ID:          uuid.New().String(),
		DeviceToken: deviceToken,
		Frequency:   frequency,
		Active:      true,
		CreatedAt:   time.Now().UnixMilli(),
	}
}

// HasFilters reports whether any predicate is configured.
// A subscription without filters matches nothing.
func (s *AlertSubscription) HasFilters() bool {
	return nonBlank(s.Categories) || nonBlank(s.Locations) || nonBlank(s.Keywords) ||
		nonBlank(s.Organizations) || len(s.ExperienceLevels) > 0 ||
		strings.TrimSpace(s.Expression) != ""
}

// DueAt reports whether the subscription may be notified at now
func (s *AlertSubscription) DueAt(now time.Time) bool {
	interval := s.Frequency.MinInterval()
	if interval == 0 || s.LastNotifiedAt == nil {
		return true
	}
	return now.Sub(time.UnixMilli(*s.LastNotifiedAt)) >= interval
}

func nonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
