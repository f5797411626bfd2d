package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/repository"
	repositoryIface "jobsync/internal/repository/iface"
)

type subscriptionRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.AlertSubscription
}

// NewSubscriptionRepository creates a process-local subscription store
func NewSubscriptionRepository() repositoryIface.SubscriptionRepository {
	return &subscriptionRepository{subs: make(map[string]*domain.AlertSubscription)}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.AlertSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub.ID]; ok {
		return fmt.Errorf("subscription already exists: %s", sub.ID)
	}
	c := *sub
	r.subs[sub.ID] = &c
	return nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]*domain.AlertSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.AlertSubscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s.Active {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (r *subscriptionRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.subs[id]
	if !ok {
		return fmt.Errorf("%w: subscription %s", repository.ErrNotFound, id)
	}
	ms := at.UnixMilli()
	s.LastNotifiedAt = &ms
	s.NotificationCount++
	return nil
}

func (r *subscriptionRepository) DeactivateDevice(ctx context.Context, deviceToken string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.subs {
		if s.DeviceToken == deviceToken && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}
