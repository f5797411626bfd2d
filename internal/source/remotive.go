package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
)

// RemotiveConfig configures the Remotive remote-jobs API adapter
type RemotiveConfig struct {
	BaseURL  string
	Category string
	Search   string
	Limit    int
}

// Remotive reads the unauthenticated Remotive remote-jobs feed
type Remotive struct {
	cfg       RemotiveConfig
	fetcher   *Fetcher
	validator *ListingValidator
	logger    logger.Logger
}

type remotiveResponse struct {
	JobCount int             `json:"job-count"`
	Jobs     json.RawMessage `json:"jobs"`
}

type remotiveListing struct {
	ID                        flexID   `json:"id"`
	URL                       string   `json:"url"`
	Title                     string   `json:"title"`
	CompanyName               string   `json:"company_name"`
	Category                  string   `json:"category"`
	Tags                      []string `json:"tags"`
	PublicationDate           string   `json:"publication_date"`
	CandidateRequiredLocation string   `json:"candidate_required_location"`
	Salary                    string   `json:"salary"`
	Description               string   `json:"description"`
}

// NewRemotive creates the adapter
func NewRemotive(cfg RemotiveConfig, fetcher *Fetcher, log logger.Logger) (*Remotive, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://remotive.com/api/remote-jobs"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 200
	}

	validator, err := NewListingValidator("remotive", remotiveListingSchema)
	if err != nil {
		return nil, err
	}

	return &Remotive{
		cfg:       cfg,
		fetcher:   fetcher,
		validator: validator,
		logger:    log.With(logger.String("component", "remotive_adapter")),
	}, nil
}

func (r *Remotive) Name() string {
	return domain.SourceRemotive
}

// Fetch reads the feed in a single call; Remotive does not paginate
func (r *Remotive) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(r.cfg.Limit))
	if r.cfg.Category != "" {
		params.Set("category", r.cfg.Category)
	}
	if r.cfg.Search != "" {
		params.Set("search", r.cfg.Search)
	}
	reqURL := r.cfg.BaseURL + "?" + params.Encode()

	body, err := r.fetcher.Fetch(ctx, r.Name(), func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp remotiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, r.Name(), fmt.Errorf("failed to decode feed: %w", err))
	}

	listings, err := decodeListings(resp.Jobs)
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, r.Name(), fmt.Errorf("failed to decode jobs: %w", err))
	}

	return listings, nil
}

func (r *Remotive) Transform(raw json.RawMessage) (*domain.Job, error) {
	var l remotiveListing
	if err := r.validator.Decode(raw, &l); err != nil {
		return nil, err
	}

	location := strings.TrimSpace(l.CandidateRequiredLocation)
	if location == "" {
		location = "Remote"
	}

	job := &domain.Job{
		Source:       r.Name(),
		SourceID:     string(l.ID),
		Title:        l.Title,
		Organization: l.CompanyName,
		Location:     location,
		Country:      location,
		Description:  l.Description,
		ApplyURL:     l.URL,
		Salary:       optionalString(l.Salary),
		Category:     strings.TrimSpace(l.Category),
	}

	if posted := parseDate(l.PublicationDate); !posted.IsZero() {
		job.PostedAt = posted.UnixMilli()
	}
	if job.Category == "" {
		job.Category = InferCategory(l.Title)
	}
	job.ExperienceLevel = InferExperience(l.Title)
	job.SetSkills(l.Tags)

	return job, nil
}
