package push

import (
	"context"
	"fmt"
	"sync/atomic"

	"jobsync/internal/logger"
)

type mockClient struct {
	logger logger.Logger
	seq    atomic.Int64
}

// NewMockClient creates a push client that only logs messages
func NewMockClient(log logger.Logger) Client {
	return &mockClient{
		logger: log.With(logger.String("component", "push_mock")),
	}
}

func (m *mockClient) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	tickets := make([]Ticket, len(messages))
	for i, msg := range messages {
		m.logger.Info("MOCK: push notification",
			logger.String("to", msg.To),
			logger.String("title", msg.Title),
			logger.String("body", msg.Body))
		tickets[i] = Ticket{Status: StatusOK, ID: fmt.Sprintf("mock-%d", m.seq.Add(1))}
	}
	return tickets, nil
}
