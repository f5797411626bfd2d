package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobsync/internal/logger"
	"jobsync/internal/retry"
)

const (
	expoSendPath   = "/--/api/v2/push/send"
	pushSourceName = "push"

	// maxResponseBytes bounds how much of a push response is read
	maxResponseBytes = 1 << 20
)

type expoResponse struct {
	Data   []Ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

type expoClient struct {
	endpoint    string
	accessToken string
	client      *http.Client
	retry       *retry.Controller
	logger      logger.Logger
}

// NewExpoClient creates a client for an Expo-style push API rooted at baseURL
func NewExpoClient(baseURL, accessToken string, timeout time.Duration, controller *retry.Controller, log logger.Logger) Client {
	if baseURL == "" {
		baseURL = "https://exp.host"
	}
	return &expoClient{
		endpoint:    strings.TrimRight(baseURL, "/") + expoSendPath,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
		retry:       controller,
		logger:      log.With(logger.String("component", "expo_push")),
	}
}

func (c *expoClient) Send(ctx context.Context, messages []Message) ([]Ticket, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(messages), MaxBatchSize)
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %w", err)
	}

	tickets, err := retry.Do(ctx, c.retry, pushSourceName, func(ctx context.Context) ([]Ticket, error) {
		return c.post(ctx, payload)
	})
	if err != nil {
		return nil, err
	}

	if len(tickets) != len(messages) {
		return nil, fmt.Errorf("provider returned %d tickets for %d messages", len(tickets), len(messages))
	}

	c.logger.Debug("push batch sent", logger.Int("messages", len(messages)))
	return tickets, nil
}

func (c *expoClient) post(ctx context.Context, payload []byte) ([]Ticket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, retry.NewStatusError(resp.StatusCode, c.endpoint, body)
	}

	var decoded expoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("push request rejected: %s: %s", decoded.Errors[0].Code, decoded.Errors[0].Message)
	}

	return decoded.Data, nil
}
