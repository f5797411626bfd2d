package source

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobsync/internal/logger"
	"jobsync/internal/retry"
)

// maxBodyBytes bounds how much of a response body is read
const maxBodyBytes = 16 << 20

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
}

// RequestBuilder creates a fresh request for every attempt
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Fetcher performs retried HTTP calls on behalf of the adapters
type Fetcher struct {
	client *http.Client
	retry  *retry.Controller
	logger logger.Logger
}

// NewFetcher creates a Fetcher. timeout bounds every HTTP exchange.
func NewFetcher(timeout time.Duration, controller *retry.Controller, log logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		retry:  controller,
		logger: log.With(logger.String("component", "source_fetcher")),
	}
}

// Fetch runs build under the retry controller and returns the response body.
// Non-2xx statuses are reported as *retry.StatusError.
func (f *Fetcher) Fetch(ctx context.Context, source string, build RequestBuilder) ([]byte, error) {
	return retry.Do(ctx, f.retry, source, func(ctx context.Context) ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, retry.NewStatusError(resp.StatusCode, safeURL(req.URL), body)
		}

		f.logger.Debug("fetched",
			logger.String("source", source),
			logger.String("url", safeURL(req.URL)),
			logger.Int("bytes", len(body)))

		return body, nil
	})
}

// SetBrowserHeaders makes a scraper request look like a desktop browser
func SetBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// safeURL masks credentials carried in query parameters
func safeURL(u *url.URL) string {
	c := *u
	q := c.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || lk == "app_id" {
			q.Set(k, "xxxxx")
		}
	}
	c.RawQuery = q.Encode()
	return c.Redacted()
}
