package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/retry"
)

const (
	jsearchHost     = "jsearch.p.rapidapi.com"
	jsearchPageSize = 10
	jsearchMaxPages = 3
)

// JSearchConfig configures the JSearch (RapidAPI) adapter
type JSearchConfig struct {
	BaseURL   string
	APIKey    string
	Query     string
	MaxPages  int
	PageDelay time.Duration
}

// JSearch pages through the JSearch aggregator
type JSearch struct {
	cfg       JSearchConfig
	fetcher   *Fetcher
	validator *ListingValidator
	logger    logger.Logger
}

type jsearchResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type jsearchListing struct {
	JobID                       string   `json:"job_id"`
	JobTitle                    string   `json:"job_title"`
	JobApplyLink                string   `json:"job_apply_link"`
	EmployerName                *string  `json:"employer_name"`
	JobCity                     *string  `json:"job_city"`
	JobCountry                  *string  `json:"job_country"`
	JobDescription              *string  `json:"job_description"`
	JobPostedAtTimestamp        *int64   `json:"job_posted_at_timestamp"`
	JobOfferExpirationTimestamp *int64   `json:"job_offer_expiration_timestamp"`
	JobRequiredSkills           []string `json:"job_required_skills"`
	JobMinSalary                *float64 `json:"job_min_salary"`
	JobMaxSalary                *float64 `json:"job_max_salary"`
	JobSalaryCurrency           *string  `json:"job_salary_currency"`
	JobSalaryPeriod             *string  `json:"job_salary_period"`
}

// NewJSearch creates the adapter. The RapidAPI key is required.
func NewJSearch(cfg JSearchConfig, fetcher *Fetcher, log logger.Logger) (*JSearch, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("jsearch api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + jsearchHost
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = jsearchMaxPages
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = retry.DefaultPageDelay
	}
	if cfg.Query == "" {
		cfg.Query = "jobs"
	}

	validator, err := NewListingValidator("jsearch", jsearchListingSchema)
	if err != nil {
		return nil, err
	}

	return &JSearch{
		cfg:       cfg,
		fetcher:   fetcher,
		validator: validator,
		logger:    log.With(logger.String("component", "jsearch_adapter")),
	}, nil
}

func (j *JSearch) Name() string {
	return domain.SourceJSearch
}

func (j *JSearch) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	var results []json.RawMessage

	for page := 1; page <= j.cfg.MaxPages; page++ {
		if page > 1 {
			if err := retry.Pace(ctx, j.cfg.PageDelay); err != nil {
				return nil, domain.NewSyncError(domain.KindTransientNetwork, j.Name(), err)
			}
		}

		batch, err := j.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)

		if len(batch) < jsearchPageSize {
			break
		}
	}

	return results, nil
}

func (j *JSearch) fetchPage(ctx context.Context, page int) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("query", j.cfg.Query)
	params.Set("page", strconv.Itoa(page))
	params.Set("num_pages", "1")
	reqURL := strings.TrimRight(j.cfg.BaseURL, "/") + "/search?" + params.Encode()

	body, err := j.fetcher.Fetch(ctx, j.Name(), func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-RapidAPI-Key", j.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", jsearchHost)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp jsearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, j.Name(), fmt.Errorf("failed to decode page %d: %w", page, err))
	}

	listings, err := decodeListings(resp.Data)
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, j.Name(), fmt.Errorf("failed to decode data of page %d: %w", page, err))
	}

	return listings, nil
}

func (j *JSearch) Transform(raw json.RawMessage) (*domain.Job, error) {
	var l jsearchListing
	if err := j.validator.Decode(raw, &l); err != nil {
		return nil, err
	}

	country := deref(l.JobCountry)
	location := deref(l.JobCity)
	switch {
	case location == "":
		location = country
	case country != "":
		location = location + ", " + country
	}

	job := &domain.Job{
		Source:       j.Name(),
		SourceID:     l.JobID,
		Title:        l.JobTitle,
		Organization: deref(l.EmployerName),
		Location:     location,
		Country:      country,
		Description:  deref(l.JobDescription),
		ApplyURL:     l.JobApplyLink,
		Category:     InferCategory(l.JobTitle),
	}

	if l.JobPostedAtTimestamp != nil {
		job.PostedAt = time.Unix(*l.JobPostedAtTimestamp, 0).UnixMilli()
	}
	if l.JobOfferExpirationTimestamp != nil && *l.JobOfferExpirationTimestamp > 0 {
		job.SetClosing(time.Unix(*l.JobOfferExpirationTimestamp, 0))
	}

	var low, high float64
	if l.JobMinSalary != nil {
		low = *l.JobMinSalary
	}
	if l.JobMaxSalary != nil {
		high = *l.JobMaxSalary
	}
	job.Salary = formatSalaryRange(low, high, deref(l.JobSalaryCurrency), deref(l.JobSalaryPeriod))

	job.ExperienceLevel = InferExperience(l.JobTitle)
	job.SetSkills(l.JobRequiredSkills)

	return job, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
