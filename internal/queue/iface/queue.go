package queue

import (
	"context"
)

// Message is a received message that has not been deleted yet
type Message interface {
	Body() string
	ReceiptHandle() string
	MessageID() string
}

// MessageProcessor handles one decoded message. Returning false leaves the
// message on the queue so it is redelivered after the visibility timeout.
type MessageProcessor[T any] interface {
	ProcessMessage(ctx context.Context, message T) bool
}

// MessageProcessorFunc adapts a function to MessageProcessor
type MessageProcessorFunc[T any] func(ctx context.Context, message T) bool

func (f MessageProcessorFunc[T]) ProcessMessage(ctx context.Context, message T) bool {
	return f(ctx, message)
}

// Sender publishes JSON-encoded messages
type Sender interface {
	Send(ctx context.Context, message interface{}) error
}

// Queue is a Sender that can also run a consumer pool
type Queue interface {
	Sender
	StartConsumer(ctx context.Context) error
	StopConsumer(ctx context.Context) error
}
