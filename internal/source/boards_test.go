package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adzunaResult(id int) map[string]any {
	return map[string]any{
		"id":           fmt.Sprint(id),
		"title":        fmt.Sprintf("Data Engineer %d", id),
		"redirect_url": fmt.Sprintf("https://www.adzuna.co.uk/jobs/land/ad/%d", id),
		"description":  "Build pipelines",
		"created":      "2026-01-12T08:30:00Z",
		"company":      map[string]any{"display_name": "Acme"},
		"location":     map[string]any{"display_name": "London", "area": []string{"UK", "London"}},
		"category":     map[string]any{"label": "IT Jobs"},
		"salary_min":   50000,
		"salary_max":   65000,
	}
}

func TestAdzuna_FetchPagesAndValidates(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "id-123", q.Get("app_id"))
		assert.Equal(t, "key-456", q.Get("app_key"))
		assert.Equal(t, "2", q.Get("results_per_page"))

		var results []map[string]any
		switch r.URL.Path {
		case "/gb/search/1":
			results = []map[string]any{adzunaResult(1), adzunaResult(2)}
		case "/gb/search/2":
			bad := adzunaResult(3)
			delete(bad, "redirect_url")
			results = []map[string]any{bad}
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results, "count": 3})
	}))
	defer server.Close()

	a, err := NewAdzuna(AdzunaConfig{
		BaseURL:  server.URL,
		AppID:    "id-123",
		AppKey:   "key-456",
		Country:  "gb",
		PageSize: 2,
	}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	batch, err := Bind[json.RawMessage](a, logger.NewNopLogger()).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 3, batch.Fetched)
	assert.Len(t, batch.Jobs, 2)
	assert.Equal(t, 1, batch.Errors)

	job := batch.Jobs[0]
	assert.Equal(t, "adzuna#1", job.JobKey)
	assert.Equal(t, "Acme", job.Organization)
	assert.Equal(t, "UK", job.Country)
	assert.Equal(t, "IT", job.Category)
	require.NotNil(t, job.Salary)
	assert.Equal(t, "50000 - 65000", *job.Salary)
}

func TestAdzuna_RequiresCredentials(t *testing.T) {
	_, err := NewAdzuna(AdzunaConfig{AppID: "x"}, newTestFetcher(), logger.NewNopLogger())
	assert.Error(t, err)
}

func TestBoards_PageDelayDefaults(t *testing.T) {
	a, err := NewAdzuna(AdzunaConfig{AppID: "x", AppKey: "y"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPageDelay, a.cfg.PageDelay)

	j, err := NewJSearch(JSearchConfig{APIKey: "k"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPageDelay, j.cfg.PageDelay)

	j, err = NewJSearch(JSearchConfig{APIKey: "k", PageDelay: 2 * time.Second}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, j.cfg.PageDelay)
}

func TestAdzuna_NumericID(t *testing.T) {
	a, err := NewAdzuna(AdzunaConfig{AppID: "x", AppKey: "y"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	raw := json.RawMessage(`{"id": 98765, "title": "Nurse", "redirect_url": "https://example.org/98765"}`)
	job, err := a.Transform(raw)
	require.NoError(t, err)
	assert.Equal(t, "98765", job.SourceID)
	assert.Equal(t, "Health", job.Category)
	assert.Nil(t, job.Salary)
}

func TestRemotive_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "software-dev", r.URL.Query().Get("category"))
		w.Write([]byte(`{"job-count": 2, "jobs": [
			{"id": 1911, "url": "https://remotive.com/remote-jobs/software-dev/backend-1911",
			 "title": "Senior Backend Engineer", "company_name": "Remote Co",
			 "category": "Software Development", "tags": ["go", "postgres", "Go"],
			 "publication_date": "2026-01-14T12:00:00", "candidate_required_location": "Worldwide",
			 "salary": "$120k"},
			{"id": 1912, "title": "Missing URL"}
		]}`))
	}))
	defer server.Close()

	r, err := NewRemotive(RemotiveConfig{BaseURL: server.URL, Category: "software-dev"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	batch, err := Bind[json.RawMessage](r, logger.NewNopLogger()).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Jobs, 1)
	assert.Equal(t, 1, batch.Errors)

	job := batch.Jobs[0]
	assert.Equal(t, "remotive#1911", job.JobKey)
	assert.Equal(t, "Worldwide", job.Location)
	assert.Equal(t, "Software Development", job.Category)
	assert.Equal(t, domain.ExperienceSenior, job.ExperienceLevel)
	assert.Equal(t, []string{"go", "postgres"}, job.Skills)
	require.NotNil(t, job.Salary)
	assert.Equal(t, "$120k", *job.Salary)
}

func TestJSearch_SendsRapidAPIHeaders(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, jsearchHost, r.Header.Get("X-RapidAPI-Host"))
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"status": "OK", "data": [
			{"job_id": "abc==", "job_title": "Finance Director", "job_apply_link": "https://jobs.example.com/abc",
			 "employer_name": "Globex", "job_city": "Nairobi", "job_country": "KE",
			 "job_posted_at_timestamp": 1767225600, "job_offer_expiration_timestamp": null,
			 "job_required_skills": null, "job_min_salary": null, "job_max_salary": null}
		]}`))
	}))
	defer server.Close()

	j, err := NewJSearch(JSearchConfig{BaseURL: server.URL, APIKey: "secret", Query: "finance in Kenya"},
		newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	batch, err := Bind[json.RawMessage](j, logger.NewNopLogger()).Collect(context.Background())
	require.NoError(t, err)

	// a short first page ends pagination
	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, batch.Jobs, 1)

	job := batch.Jobs[0]
	assert.Equal(t, "Nairobi, KE", job.Location)
	assert.Equal(t, "Globex", job.Organization)
	assert.Equal(t, domain.ExperienceDirector, job.ExperienceLevel)
	assert.Equal(t, int64(1767225600000), job.PostedAt)
	assert.Nil(t, job.ClosingAt)
	assert.Nil(t, job.Salary)
	assert.Empty(t, job.Skills)
}

func TestJSearch_ServerErrorsExhaustRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	j, err := NewJSearch(JSearchConfig{BaseURL: server.URL, APIKey: "k"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = j.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindExhaustedRetries))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSafeURL_MasksCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a, err := NewAdzuna(AdzunaConfig{BaseURL: server.URL, AppID: "my-id", AppKey: "my-key"},
		newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = a.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "my-key"))
	assert.False(t, strings.Contains(err.Error(), "my-id"))
}
