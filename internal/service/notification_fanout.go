package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/push"
	repositoryIface "jobsync/internal/repository/iface"
)

// maxTitlesInBody bounds how many listing titles one notification body names
const maxTitlesInBody = 3

// NotifyResult summarises one fan-out
type NotifyResult struct {
	Matched     int // subscriptions with at least one matching job
	Devices     int
	Sent        int
	Failed      int
	Deactivated int
}

// NotificationFanOut alerts subscribers about newly created listings
type NotificationFanOut interface {
	Notify(ctx context.Context, created []*domain.Job) (NotifyResult, error)
}

type notificationFanOut struct {
	subs      repositoryIface.SubscriptionRepository
	matcher   AlertMatcher
	client    push.Client
	logger    logger.Logger
	now       func() time.Time
	batchSize int
}

// NewNotificationFanOut creates the fan-out
func NewNotificationFanOut(
	subs repositoryIface.SubscriptionRepository,
	matcher AlertMatcher,
	client push.Client,
	log logger.Logger,
) NotificationFanOut {
	return &notificationFanOut{
		subs:      subs,
		matcher:   matcher,
		client:    client,
		logger:    log.With(logger.String("component", "notification_fanout")),
		now:       time.Now,
		batchSize: push.MaxBatchSize,
	}
}

// deviceGroup aggregates every match for one device token
type deviceGroup struct {
	token string
	subs  []*domain.AlertSubscription
	jobs  []*domain.Job
	seen  map[string]struct{}
}

func (g *deviceGroup) add(sub *domain.AlertSubscription, jobs []*domain.Job) {
	g.subs = append(g.subs, sub)
	for _, j := range jobs {
		key := j.Key()
		if _, ok := g.seen[key]; ok {
			continue
		}
		g.seen[key] = struct{}{}
		g.jobs = append(g.jobs, j)
	}
}

// Notify matches created against the active subscriptions and sends one
// message per device. A failing batch or bookkeeping write is logged and
// never blocks the rest.
func (f *notificationFanOut) Notify(ctx context.Context, created []*domain.Job) (NotifyResult, error) {
	var result NotifyResult
	if len(created) == 0 {
		return result, nil
	}

	subs, err := f.subs.ListActive(ctx)
	if err != nil {
		return result, domain.NewSyncError(domain.KindPersistence, "",
			fmt.Errorf("failed to list subscriptions: %w", err))
	}

	now := f.now()
	groups := make(map[string]*deviceGroup)

	for _, sub := range subs {
		if sub.DeviceToken == "" || !sub.DueAt(now) {
			continue
		}

		var matched []*domain.Job
		for _, job := range created {
			if f.matcher.Matches(sub, job) {
				matched = append(matched, job)
			}
		}
		if len(matched) == 0 {
			continue
		}

		result.Matched++
		g, ok := groups[sub.DeviceToken]
		if !ok {
			g = &deviceGroup{token: sub.DeviceToken, seen: make(map[string]struct{})}
			groups[sub.DeviceToken] = g
		}
		g.add(sub, matched)
	}

	ordered := make([]*deviceGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, k int) bool { return ordered[i].token < ordered[k].token })
	result.Devices = len(ordered)

	for start := 0; start < len(ordered); start += f.batchSize {
		end := min(start+f.batchSize, len(ordered))
		f.dispatch(ctx, ordered[start:end], now, &result)
	}

	f.logger.Info("notification fan-out finished",
		logger.Int("new_jobs", len(created)),
		logger.Int("subscriptions_matched", result.Matched),
		logger.Int("devices", result.Devices),
		logger.Int("sent", result.Sent),
		logger.Int("failed", result.Failed),
		logger.Int("deactivated", result.Deactivated))

	return result, nil
}

func (f *notificationFanOut) dispatch(ctx context.Context, batch []*deviceGroup, now time.Time, result *NotifyResult) {
	messages := make([]push.Message, len(batch))
	for i, g := range batch {
		messages[i] = buildMessage(g)
	}

	tickets, err := f.client.Send(ctx, messages)
	if err != nil {
		result.Failed += len(batch)
		f.logger.Error("failed to send notification batch",
			logger.Int("messages", len(messages)),
			logger.Error(err))
		return
	}

	for i, g := range batch {
		if i >= len(tickets) {
			result.Failed++
			continue
		}
		ticket := tickets[i]

		switch {
		case ticket.OK():
			result.Sent++
			for _, sub := range g.subs {
				if err := f.subs.MarkNotified(ctx, sub.ID, now); err != nil {
					f.logger.Warn("failed to mark subscription notified",
						logger.String("subscription_id", sub.ID),
						logger.Error(err))
				}
			}
		case ticket.DeviceNotRegistered():
			n, err := f.subs.DeactivateDevice(ctx, g.token)
			if err != nil {
				f.logger.Warn("failed to deactivate device",
					logger.String("device", maskToken(g.token)),
					logger.Error(err))
				continue
			}
			result.Deactivated += n
		default:
			result.Failed++
			f.logger.Warn("push ticket rejected",
				logger.String("device", maskToken(g.token)),
				logger.String("message", ticket.Message))
		}
	}
}

func buildMessage(g *deviceGroup) push.Message {
	keys := make([]string, len(g.jobs))
	for i, j := range g.jobs {
		keys[i] = j.Key()
	}

	var title string
	if len(g.jobs) == 1 {
		title = "New job: " + g.jobs[0].Title
	} else {
		title = fmt.Sprintf("%d new jobs match your alerts", len(g.jobs))
	}

	lines := make([]string, 0, maxTitlesInBody+1)
	for i, j := range g.jobs {
		if i == maxTitlesInBody {
			lines = append(lines, fmt.Sprintf("and %d more", len(g.jobs)-maxTitlesInBody))
			break
		}
		line := j.Title
		if j.Organization != "" {
			line += " at " + j.Organization
		}
		lines = append(lines, line)
	}

	return push.Message{
		To:    g.token,
		Title: title,
		Body:  strings.Join(lines, "\n"),
		Sound: "default",
		Data: map[string]interface{}{
			"type":    "new_jobs",
			"jobKeys": keys,
		},
	}
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
