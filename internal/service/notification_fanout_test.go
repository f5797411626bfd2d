package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/push"
	repositoryIface "jobsync/internal/repository/iface"
	"jobsync/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePushClient struct {
	mu       sync.Mutex
	batches  [][]push.Message
	failures map[string]string // token -> ticket error code
	failCall int               // 1-based call that returns a transport error
}

func (c *fakePushClient) Send(ctx context.Context, messages []push.Message) ([]push.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batches = append(c.batches, messages)
	if c.failCall == len(c.batches) {
		return nil, errors.New("push provider unavailable")
	}

	tickets := make([]push.Ticket, len(messages))
	for i, m := range messages {
		if code, ok := c.failures[m.To]; ok {
			tickets[i] = push.Ticket{Status: push.StatusError, Details: &push.TicketDetails{Error: code}}
			continue
		}
		tickets[i] = push.Ticket{Status: push.StatusOK, ID: fmt.Sprintf("t-%d", i)}
	}
	return tickets, nil
}

func (c *fakePushClient) sent() [][]push.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]push.Message(nil), c.batches...)
}

func newFanOut(subs repositoryIface.SubscriptionRepository, client push.Client, clock *testClock) *notificationFanOut {
	f := NewNotificationFanOut(subs, NewAlertMatcher(logger.NewNopLogger()), client, logger.NewNopLogger()).(*notificationFanOut)
	f.now = clock.Now
	return f
}

func createSub(t *testing.T, repo repositoryIface.SubscriptionRepository, token string, freq domain.NotificationFrequency, categories ...string) *domain.AlertSubscription {
	t.Helper()
	sub := domain.NewAlertSubscription(token, freq)
	sub.Categories = categories
	require.NoError(t, repo.Create(context.Background(), sub))
	return sub
}

func activeByID(t *testing.T, repo repositoryIface.SubscriptionRepository) map[string]*domain.AlertSubscription {
	t.Helper()
	subs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	out := make(map[string]*domain.AlertSubscription, len(subs))
	for _, s := range subs {
		out[s.ID] = s
	}
	return out
}

func TestNotificationFanOut_GroupsPerDevice(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{}

	a := createSub(t, repo, "device-1", domain.FrequencyInstant, "Information Technology")
	b := createSub(t, repo, "device-1", domain.FrequencyInstant, "Information Technology", "Finance")
	createSub(t, repo, "device-2", domain.FrequencyInstant, "Health")

	jobs := []*domain.Job{sampleJob("reliefweb", "1"), sampleJob("reliefweb", "2")}

	result, err := newFanOut(repo, client, clock).Notify(ctx, jobs)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Devices)
	assert.Equal(t, 1, result.Sent)

	batches := client.sent()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	msg := batches[0][0]
	assert.Equal(t, "device-1", msg.To)
	assert.Equal(t, "2 new jobs match your alerts", msg.Title)
	assert.Equal(t, []string{"reliefweb#1", "reliefweb#2"}, msg.Data["jobKeys"])

	active := activeByID(t, repo)
	for _, id := range []string{a.ID, b.ID} {
		require.NotNil(t, active[id].LastNotifiedAt)
		assert.Equal(t, clock.Now().UnixMilli(), *active[id].LastNotifiedAt)
		assert.Equal(t, 1, active[id].NotificationCount)
	}
}

func TestNotificationFanOut_BatchesOfHundred(t *testing.T) {
	clock := newTestClock()
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{}

	for i := 0; i < 250; i++ {
		createSub(t, repo, fmt.Sprintf("device-%03d", i), domain.FrequencyInstant, "Information Technology")
	}

	result, err := newFanOut(repo, client, clock).Notify(context.Background(), []*domain.Job{sampleJob("unjobs", "x")})
	require.NoError(t, err)
	assert.Equal(t, 250, result.Sent)

	batches := client.sent()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)
}

func TestNotificationFanOut_DeviceNotRegisteredDeactivates(t *testing.T) {
	clock := newTestClock()
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{failures: map[string]string{"dead-device": push.ErrorDeviceNotRegistered}}

	createSub(t, repo, "dead-device", domain.FrequencyInstant, "Information Technology")
	createSub(t, repo, "dead-device", domain.FrequencyWeekly, "Finance")
	live := createSub(t, repo, "live-device", domain.FrequencyInstant, "Information Technology")

	result, err := newFanOut(repo, client, clock).Notify(context.Background(), []*domain.Job{sampleJob("devjobs", "1")})
	require.NoError(t, err)

	// both subscriptions on the device go, even the one that did not match
	assert.Equal(t, 2, result.Deactivated)
	assert.Equal(t, 1, result.Sent)

	active := activeByID(t, repo)
	assert.Len(t, active, 1)
	assert.Contains(t, active, live.ID)
}

func TestNotificationFanOut_FrequencyGating(t *testing.T) {
	clock := newTestClock()
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{}

	daily := createSub(t, repo, "daily-device", domain.FrequencyDaily, "Information Technology")
	require.NoError(t, repo.MarkNotified(context.Background(), daily.ID, clock.Now().Add(-2*time.Hour)))
	weekly := createSub(t, repo, "weekly-device", domain.FrequencyWeekly, "Information Technology")
	require.NoError(t, repo.MarkNotified(context.Background(), weekly.ID, clock.Now().Add(-8*24*time.Hour)))
	createSub(t, repo, "instant-device", domain.FrequencyInstant, "Information Technology")

	fanOut := newFanOut(repo, client, clock)
	result, err := fanOut.Notify(context.Background(), []*domain.Job{sampleJob("reliefweb", "9")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)

	var recipients []string
	for _, m := range client.sent()[0] {
		recipients = append(recipients, m.To)
	}
	assert.ElementsMatch(t, []string{"instant-device", "weekly-device"}, recipients)

	clock.Advance(23 * time.Hour)
	result, err = fanOut.Notify(context.Background(), []*domain.Job{sampleJob("reliefweb", "10")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent, "daily subscription becomes due after 24h")
}

func TestNotificationFanOut_FailedBatchDoesNotBlockOthers(t *testing.T) {
	clock := newTestClock()
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{failCall: 1}

	createSub(t, repo, "device-a", domain.FrequencyInstant, "Information Technology")
	createSub(t, repo, "device-b", domain.FrequencyInstant, "Information Technology")

	fanOut := newFanOut(repo, client, clock)
	fanOut.batchSize = 1

	result, err := fanOut.Notify(context.Background(), []*domain.Job{sampleJob("reliefweb", "1")})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Sent)
	assert.Len(t, client.sent(), 2)
}

func TestNotificationFanOut_NothingCreatedSendsNothing(t *testing.T) {
	repo := memory.NewSubscriptionRepository()
	client := &fakePushClient{}
	createSub(t, repo, "device", domain.FrequencyInstant, "Information Technology")

	result, err := newFanOut(repo, client, newTestClock()).Notify(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NotifyResult{}, result)
	assert.Empty(t, client.sent())
}
