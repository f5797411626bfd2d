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
	adzunaPageSize = 50
	adzunaMaxPages = 3
)

// AdzunaConfig configures the Adzuna search API adapter
type AdzunaConfig struct {
	BaseURL   string
	AppID     string
	AppKey    string
	Country   string // "gb", "us", "za"...
	What      string
	Where     string
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

// Adzuna pages through the Adzuna search API
type Adzuna struct {
	cfg       AdzunaConfig
	fetcher   *Fetcher
	validator *ListingValidator
	logger    logger.Logger
}

type adzunaResponse struct {
	Results json.RawMessage `json:"results"`
	Count   int             `json:"count"`
}

type adzunaListing struct {
	ID          flexID  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string   `json:"display_name"`
		Area        []string `json:"area"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
	} `json:"category"`
}

// NewAdzuna creates the adapter. Both credentials are required.
func NewAdzuna(cfg AdzunaConfig, fetcher *Fetcher, log logger.Logger) (*Adzuna, error) {
	if cfg.AppID == "" || cfg.AppKey == "" {
		return nil, errors.New("adzuna app_id and app_key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.adzuna.com/v1/api/jobs"
	}
	if cfg.Country == "" {
		cfg.Country = "gb"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = adzunaPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = adzunaMaxPages
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = retry.DefaultPageDelay
	}

	validator, err := NewListingValidator("adzuna", adzunaListingSchema)
	if err != nil {
		return nil, err
	}

	return &Adzuna{
		cfg:       cfg,
		fetcher:   fetcher,
		validator: validator,
		logger:    log.With(logger.String("component", "adzuna_adapter")),
	}, nil
}

func (a *Adzuna) Name() string {
	return domain.SourceAdzuna
}

// Fetch iterates pages until a short page or the page cap
func (a *Adzuna) Fetch(ctx context.Context) ([]json.RawMessage, error) {
	var results []json.RawMessage

	for page := 1; page <= a.cfg.MaxPages; page++ {
		if page > 1 {
			if err := retry.Pace(ctx, a.cfg.PageDelay); err != nil {
				return nil, domain.NewSyncError(domain.KindTransientNetwork, a.Name(), err)
			}
		}

		batch, err := a.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)

		if len(batch) < a.cfg.PageSize {
			break
		}
	}

	return results, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, page int) ([]json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", strings.TrimRight(a.cfg.BaseURL, "/"), a.cfg.Country, page)

	params := url.Values{}
	params.Set("app_id", a.cfg.AppID)
	params.Set("app_key", a.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(a.cfg.PageSize))
	params.Set("sort_by", "date")
	if a.cfg.What != "" {
		params.Set("what", a.cfg.What)
	}
	if a.cfg.Where != "" {
		params.Set("where", a.cfg.Where)
	}
	reqURL := endpoint + "?" + params.Encode()

	body, err := a.fetcher.Fetch(ctx, a.Name(), func(ctx context.Context) (*http.Request, error) {
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

	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, a.Name(), fmt.Errorf("failed to decode page %d: %w", page, err))
	}

	listings, err := decodeListings(resp.Results)
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, a.Name(), fmt.Errorf("failed to decode results of page %d: %w", page, err))
	}

	a.logger.Debug("page fetched",
		logger.Int("page", page),
		logger.Int("items", len(listings)))

	return listings, nil
}

func (a *Adzuna) Transform(raw json.RawMessage) (*domain.Job, error) {
	var l adzunaListing
	if err := a.validator.Decode(raw, &l); err != nil {
		return nil, err
	}

	country := strings.ToUpper(a.cfg.Country)
	if len(l.Location.Area) > 0 {
		country = l.Location.Area[0]
	}

	job := &domain.Job{
		Source:       a.Name(),
		SourceID:     string(l.ID),
		Title:        l.Title,
		Organization: l.Company.DisplayName,
		Location:     l.Location.DisplayName,
		Country:      country,
		Description:  l.Description,
		ApplyURL:     l.RedirectURL,
		Salary:       formatSalaryRange(l.SalaryMin, l.SalaryMax, "", ""),
	}

	if posted := parseDate(l.Created); !posted.IsZero() {
		job.PostedAt = posted.UnixMilli()
	}

	// Adzuna labels unknown categories "Unknown" or "Other/General Jobs"
	label := strings.TrimSpace(l.Category.Label)
	if label == "" || strings.EqualFold(label, "unknown") || strings.Contains(strings.ToLower(label), "other") {
		job.Category = InferCategory(l.Title)
	} else {
		job.Category = strings.TrimSuffix(label, " Jobs")
	}
	job.ExperienceLevel = InferExperience(l.Title)

	return job, nil
}
