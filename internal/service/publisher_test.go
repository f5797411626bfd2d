package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	notification "jobsync/internal/consumer/notification_queue/iface"
	"jobsync/internal/domain"
	"jobsync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingQueue struct {
	sent []notification.NewJobsMessage
}

func (q *capturingQueue) Send(ctx context.Context, message interface{}) error {
	q.sent = append(q.sent, message.(notification.NewJobsMessage))
	return nil
}

func TestQueuePublisher_ChunksKeys(t *testing.T) {
	q := &capturingQueue{}
	p := NewQueuePublisher(q, logger.NewNopLogger())

	created := make([]*domain.Job, notification.MaxKeysPerMessage+20)
	for i := range created {
		created[i] = sampleJob("reliefweb", fmt.Sprint(i))
	}
	run := domain.NewSyncRun("reliefweb", time.Now())

	require.NoError(t, p.PublishNewJobs(context.Background(), run, created))
	require.Len(t, q.sent, 2)
	assert.Len(t, q.sent[0].JobKeys, notification.MaxKeysPerMessage)
	assert.Len(t, q.sent[1].JobKeys, 20)
	assert.Equal(t, run.RunID, q.sent[1].RunID)
	assert.Equal(t, "reliefweb#0", q.sent[0].JobKeys[0])
}

type countingFanOut struct {
	calls int
}

func (f *countingFanOut) Notify(ctx context.Context, created []*domain.Job) (NotifyResult, error) {
	f.calls++
	return NotifyResult{}, nil
}

func TestInlinePublisher_SkipsEmpty(t *testing.T) {
	fanOut := &countingFanOut{}
	p := NewInlinePublisher(fanOut)
	run := domain.NewSyncRun("unjobs", time.Now())

	require.NoError(t, p.PublishNewJobs(context.Background(), run, nil))
	assert.Equal(t, 0, fanOut.calls)

	require.NoError(t, p.PublishNewJobs(context.Background(), run, []*domain.Job{sampleJob("unjobs", "1")}))
	assert.Equal(t, 1, fanOut.calls)
}
