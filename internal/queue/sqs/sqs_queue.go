// internal/queue/sqs/sqs_queue.go
package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"jobsync/internal/logger"
	queue "jobsync/internal/queue/iface"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// API is the subset of the SQS client the queue uses
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type sqsMessage struct {
	rawMessage types.Message
}

func (m *sqsMessage) Body() string {
	if m.rawMessage.Body == nil {
		return ""
	}
	return *m.rawMessage.Body
}

func (m *sqsMessage) ReceiptHandle() string {
	if m.rawMessage.ReceiptHandle == nil {
		return ""
	}
	return *m.rawMessage.ReceiptHandle
}

func (m *sqsMessage) MessageID() string {
	if m.rawMessage.MessageId == nil {
		return ""
	}
	return *m.rawMessage.MessageId
}

// QueueConfig holds configuration for SQS queue
type QueueConfig struct {
	QueueURL          string
	WorkerCount       int
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
}

// SQSQueue sends JSON messages and, when a processor is set, consumes them
type SQSQueue[T any] struct {
	client    API
	config    QueueConfig
	logger    logger.Logger
	processor queue.MessageProcessor[T]
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	backoff   time.Duration
}

// NewSQSQueue creates a queue. processor may be nil for a send-only queue.
func NewSQSQueue[T any](
	client API,
	config QueueConfig,
	processor queue.MessageProcessor[T],
	log logger.Logger,
) *SQSQueue[T] {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 1
	}
	if config.WaitTimeSeconds <= 0 {
		config.WaitTimeSeconds = 20
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = 120
	}

	return &SQSQueue[T]{
		client:    client,
		config:    config,
		logger:    log.With(logger.String("component", "sqs_queue")),
		processor: processor,
		backoff:   time.Second,
	}
}

func (q *SQSQueue[T]) Send(ctx context.Context, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	bodyStr := string(body)
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &q.config.QueueURL,
		MessageBody: &bodyStr,
	})

	if err != nil {
		q.logger.Error("failed to send message to SQS",
			logger.String("queue_url", q.config.QueueURL),
			logger.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Debug("message sent to queue",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("bytes", len(body)))

	return nil
}

func (q *SQSQueue[T]) StartConsumer(ctx context.Context) error {
	if q.processor == nil {
		return errors.New("queue has no message processor")
	}

	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	q.running = true

	// workers outlive the startup context
	workerCtx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.mu.Unlock()

	q.logger.Info("starting SQS consumer",
		logger.String("queue_url", q.config.QueueURL),
		logger.Int("worker_count", q.config.WorkerCount))

	for i := 0; i < q.config.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(workerCtx, i+1)
	}

	return nil
}

func (q *SQSQueue[T]) StopConsumer(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return fmt.Errorf("consumer not running")
	}
	cancel := q.cancel
	q.mu.Unlock()

	q.logger.Info("stopping SQS consumer",
		logger.String("queue_url", q.config.QueueURL))

	cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failed to drain SQS workers: %w", ctx.Err())
	}

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()

	q.logger.Info("SQS consumer stopped")
	return nil
}

func (q *SQSQueue[T]) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	q.logger.Info("worker started",
		logger.Int("worker_id", workerID))

	for ctx.Err() == nil {
		q.processMessages(ctx, workerID)
	}

	q.logger.Info("worker stopping", logger.Int("worker_id", workerID))
}

func (q *SQSQueue[T]) processMessages(ctx context.Context, workerID int) {
	// must outlast the long poll
	receiveTimeout := time.Duration(q.config.WaitTimeSeconds+5) * time.Second
	receiveCtx, cancel := context.WithTimeout(ctx, receiveTimeout)
	defer cancel()

	result, err := q.client.ReceiveMessage(receiveCtx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.config.QueueURL,
		MaxNumberOfMessages: q.config.MaxMessages,
		WaitTimeSeconds:     q.config.WaitTimeSeconds,
		VisibilityTimeout:   q.config.VisibilityTimeout,
	})

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		q.logger.Error("failed to receive messages",
			logger.Int("worker_id", workerID),
			logger.Error(err))

		select {
		case <-ctx.Done():
		case <-time.After(q.backoff):
		}
		return
	}

	for _, msg := range result.Messages {
		if ctx.Err() != nil {
			return
		}
		// a message in hand is finished even during shutdown
		q.processMessage(context.WithoutCancel(ctx), msg, workerID)
	}
}

func (q *SQSQueue[T]) processMessage(ctx context.Context, msg types.Message, workerID int) {
	raw := &sqsMessage{rawMessage: msg}
	messageID := raw.MessageID()

	var message T
	if err := json.Unmarshal([]byte(raw.Body()), &message); err != nil {
		// poison message: redelivery cannot fix it
		q.logger.Error("failed to unmarshal message",
			logger.Int("worker_id", workerID),
			logger.String("message_id", messageID),
			logger.Error(err))
		q.deleteMessage(ctx, raw)
		return
	}

	q.logger.Info("processing message",
		logger.Int("worker_id", workerID),
		logger.String("message_id", messageID))

	if q.processor.ProcessMessage(ctx, message) {
		q.deleteMessage(ctx, raw)
		q.logger.Info("message processed successfully",
			logger.Int("worker_id", workerID),
			logger.String("message_id", messageID))
		return
	}

	q.logger.Warn("message processing failed, will retry",
		logger.Int("worker_id", workerID),
		logger.String("message_id", messageID))
}

func (q *SQSQueue[T]) deleteMessage(ctx context.Context, msg queue.Message) {
	handle := msg.ReceiptHandle()
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.config.QueueURL,
		ReceiptHandle: &handle,
	})

	if err != nil {
		q.logger.Error("failed to delete message",
			logger.String("message_id", msg.MessageID()),
			logger.Error(err))
	}
}
