package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reliefWebItemJSON(id int) map[string]any {
	return map[string]any{
		"id": fmt.Sprint(id),
		"fields": map[string]any{
			"title":             fmt.Sprintf("Programme Officer %d", id),
			"url_alias":         fmt.Sprintf("/job/%d/programme-officer", id),
			"source":            []map[string]string{{"name": "UNICEF"}},
			"country":           []map[string]string{{"name": "Kenya"}},
			"city":              []map[string]string{{"name": "Nairobi"}},
			"career_categories": []map[string]string{{"name": "Program/Project Management"}},
			"experience":        []map[string]string{{"name": "5-9 years"}},
			"theme":             []map[string]string{{"name": "Health"}, {"name": "Education"}},
			"date": map[string]string{
				"created": "2026-01-05T00:00:00+00:00",
				"closing": "2026-02-05T00:00:00+00:00",
			},
		},
	}
}

func TestReliefWeb_FetchPaginates(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var offsets []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/jobs", r.URL.Path)
		assert.Equal(t, "jobsync-test", r.URL.Query().Get("appname"))

		var body reliefWebRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "country.name", body.Filter.Field)
		assert.Equal(t, "Kenya", body.Filter.Value)
		mu.Lock()
		offsets = append(offsets, body.Offset)
		mu.Unlock()

		// two full pages of 2, then a short page of 1
		n := 2
		if body.Offset >= 4 {
			n = 1
		}
		data := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			data = append(data, reliefWebItemJSON(body.Offset+i+1))
		}
		json.NewEncoder(w).Encode(map[string]any{"count": n, "data": data})
	}))
	defer server.Close()

	rw, err := NewReliefWeb(ReliefWebConfig{
		BaseURL:  server.URL,
		AppName:  "jobsync-test",
		Country:  "Kenya",
		PageSize: 2,
	}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	items, err := rw.Fetch(context.Background())
	require.NoError(t, err)

	assert.Len(t, items, 5)
	assert.Equal(t, int32(3), calls.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 2, 4}, offsets)
}

func TestReliefWeb_PacesPagesByDefault(t *testing.T) {
	var mu sync.Mutex
	var seen []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body reliefWebRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		seen = append(seen, time.Now())
		mu.Unlock()

		// one full page of 2, then a short page of 1
		n := 2
		if body.Offset >= 2 {
			n = 1
		}
		data := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			data = append(data, reliefWebItemJSON(body.Offset+i+1))
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	rw, err := NewReliefWeb(ReliefWebConfig{
		BaseURL: server.URL, AppName: "a", Country: "Kenya", PageSize: 2,
	}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPageDelay, rw.cfg.PageDelay)

	items, err := rw.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.GreaterOrEqual(t, seen[1].Sub(seen[0]), retry.DefaultPageDelay)
}

func TestReliefWeb_FetchStopsAtPageCap(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{reliefWebItemJSON(1), reliefWebItemJSON(2)},
		})
	}))
	defer server.Close()

	rw, err := NewReliefWeb(ReliefWebConfig{
		BaseURL: server.URL, AppName: "a", Country: "Kenya", PageSize: 2, MaxPages: 3,
	}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	items, err := rw.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 6)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReliefWeb_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	rw, err := NewReliefWeb(ReliefWebConfig{BaseURL: server.URL, AppName: "a", Country: "Kenya"},
		newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	_, err = rw.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindClientRequest))
	assert.Equal(t, int32(1), calls.Load())
}

func TestReliefWeb_Transform(t *testing.T) {
	rw, err := NewReliefWeb(ReliefWebConfig{AppName: "a", Country: "Kenya"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	raw, err := json.Marshal(reliefWebItemJSON(42))
	require.NoError(t, err)
	var item ReliefWebItem
	require.NoError(t, json.Unmarshal(raw, &item))

	job, err := rw.Transform(item)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceReliefWeb, job.Source)
	assert.Equal(t, "42", job.SourceID)
	assert.Equal(t, "UNICEF", job.Organization)
	assert.Equal(t, "Nairobi, Kenya", job.Location)
	assert.Equal(t, "Program/Project Management", job.Category)
	assert.Equal(t, domain.ExperienceSenior, job.ExperienceLevel)
	assert.Equal(t, "https://reliefweb.int/job/42/programme-officer", job.ApplyURL)
	assert.Equal(t, []string{"Education", "Health"}, job.Skills)
	require.NotNil(t, job.ClosingAt)
	closing, _ := job.ClosingTime()
	assert.Equal(t, 2026, closing.Year())
}

func TestReliefWeb_TransformFallsBackToInference(t *testing.T) {
	rw, err := NewReliefWeb(ReliefWebConfig{AppName: "a", Country: "Kenya"}, newTestFetcher(), logger.NewNopLogger())
	require.NoError(t, err)

	var item ReliefWebItem
	item.ID = "7"
	item.Fields.Title = "Junior Finance Assistant"
	item.Fields.URL = "https://reliefweb.int/job/7"

	job, err := rw.Transform(item)
	require.NoError(t, err)
	assert.Equal(t, "Finance", job.Category)
	assert.Equal(t, domain.ExperienceEntry, job.ExperienceLevel)
	assert.Equal(t, "Kenya", job.Location)
	assert.Nil(t, job.ClosingAt)
}

func TestNewReliefWeb_RequiresAppName(t *testing.T) {
	_, err := NewReliefWeb(ReliefWebConfig{}, newTestFetcher(), logger.NewNopLogger())
	assert.Error(t, err)
}
