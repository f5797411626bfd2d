package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
)

// DefaultPageDelay is the pause between successive successful page calls
const DefaultPageDelay = 500 * time.Millisecond

// StatusError carries a non-2xx HTTP response status
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// NewStatusError builds a StatusError, truncating the body for logging
func NewStatusError(statusCode int, url string, body []byte) *StatusError {
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	return &StatusError{StatusCode: statusCode, URL: url, Body: text}
}

// IsClientError reports whether err carries a 4xx status
func IsClientError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusBadRequest && se.StatusCode < http.StatusInternalServerError
	}
	return false
}

// Policy bounds a retried call
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterMin      float64
	JitterMax      float64
	AttemptTimeout time.Duration
}

// DefaultPolicy: 5 attempts, 1s base, 30s cap, 10-20% jitter
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		JitterMin:      0.10,
		JitterMax:      0.20,
		AttemptTimeout: 20 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.JitterMin <= 0 && p.JitterMax <= 0 {
		p.JitterMin, p.JitterMax = d.JitterMin, d.JitterMax
	}
	if p.JitterMax < p.JitterMin {
		p.JitterMax = p.JitterMin
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = d.AttemptTimeout
	}
	return p
}

// Backoff returns BaseDelay * 2^attempt capped at MaxDelay, before jitter
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Delay adds jitter to Backoff. r in [0,1) picks a point inside the jitter band.
func (p Policy) Delay(attempt int, r float64) time.Duration {
	p = p.withDefaults()
	base := p.Backoff(attempt)
	fraction := p.JitterMin + (p.JitterMax-p.JitterMin)*r
	delay := base + time.Duration(float64(base)*fraction)
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Controller executes operations under a Policy
type Controller struct {
	policy Policy
	logger logger.Logger
	random func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customizes a Controller
type Option func(*Controller)

// WithRandom replaces the jitter source
func WithRandom(random func() float64) Option {
	return func(c *Controller) { c.random = random }
}

// WithSleep replaces the wait function between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a retry controller
func NewController(policy Policy, log logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		policy: policy.withDefaults(),
		logger: log.With(logger.String("component", "retry_controller")),
		random: rand.Float64,
		sleep:  Pace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the effective policy
func (c *Controller) Policy() Policy {
	return c.policy
}

// Do runs op until it succeeds, fails terminally, or attempts run out.
// Every returned error is a *domain.SyncError.
func Do[T any](ctx context.Context, c *Controller, source string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	var delay time.Duration

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay = c.policy.Delay(attempt-1, c.random())
			c.logger.Info("retrying operation",
				logger.String("source", source),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.policy.MaxAttempts),
				logger.Duration("delay", delay),
				logger.Error(lastErr))
			if err := c.sleep(ctx, delay); err != nil {
				return zero, domain.NewSyncError(domain.KindTransientNetwork, source,
					fmt.Errorf("retry aborted: %w", err))
			}
		} else {
			c.logger.Debug("executing operation",
				logger.String("source", source),
				logger.Int("attempt", 1),
				logger.Duration("delay", 0))
		}

		result, err := runAttempt(ctx, c.policy.AttemptTimeout, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, domain.NewSyncError(domain.KindTransientNetwork, source,
				fmt.Errorf("operation cancelled: %w", err))
		}

		if IsClientError(err) {
			c.logger.Warn("terminal client error, not retrying",
				logger.String("source", source),
				logger.Int("attempt", attempt+1),
				logger.Error(err))
			return zero, domain.NewSyncError(domain.KindClientRequest, source, err)
		}

		var se *domain.SyncError
		if errors.As(err, &se) && domain.IsTerminal(se) {
			return zero, err
		}
	}

	c.logger.Error("retries exhausted",
		logger.String("source", source),
		logger.Int("attempts", c.policy.MaxAttempts),
		logger.Error(lastErr))

	return zero, domain.NewSyncError(domain.KindExhaustedRetries, source,
		fmt.Errorf("failed after %d attempts: %w", c.policy.MaxAttempts, lastErr))
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (result T, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()

	return op(attemptCtx)
}

// Pace waits for d or until ctx is done
func Pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
