package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"
	"jobsync/internal/retry"
)

const (
	reliefWebPageSize = 100
	reliefWebMaxPages = 10
)

var reliefWebFields = []string{
	"title", "body", "url", "url_alias", "date.created", "date.closing",
	"source.name", "country.name", "city.name", "career_categories.name",
	"experience.name", "theme.name",
}

// ReliefWebConfig configures the ReliefWeb jobs API adapter
type ReliefWebConfig struct {
	BaseURL   string
	SiteURL   string
	AppName   string
	Country   string
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

// ReliefWeb pages through the ReliefWeb v1 jobs API
type ReliefWeb struct {
	cfg     ReliefWebConfig
	site    *url.URL
	fetcher *Fetcher
	logger  logger.Logger
}

type reliefWebRequest struct {
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
	Filter reliefWebFilter       `json:"filter"`
	Fields reliefWebFieldsFilter `json:"fields"`
	Sort   []string              `json:"sort"`
}

type reliefWebFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type reliefWebFieldsFilter struct {
	Include []string `json:"include"`
}

type reliefWebResponse struct {
	TotalCount int             `json:"totalCount"`
	Count      int             `json:"count"`
	Data       []ReliefWebItem `json:"data"`
}

type reliefWebName struct {
	Name string `json:"name"`
}

// ReliefWebItem is one listing of the jobs API
type ReliefWebItem struct {
	ID     string `json:"id"`
	Fields struct {
		Title            string          `json:"title"`
		Body             string          `json:"body"`
		URL              string          `json:"url"`
		URLAlias         string          `json:"url_alias"`
		Source           []reliefWebName `json:"source"`
		Country          []reliefWebName `json:"country"`
		City             []reliefWebName `json:"city"`
		CareerCategories []reliefWebName `json:"career_categories"`
		Experience       []reliefWebName `json:"experience"`
		Theme            []reliefWebName `json:"theme"`
		Date             struct {
			Created string `json:"created"`
			Closing string `json:"closing"`
		} `json:"date"`
	} `json:"fields"`
}

// NewReliefWeb creates the adapter
func NewReliefWeb(cfg ReliefWebConfig, fetcher *Fetcher, log logger.Logger) (*ReliefWeb, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.reliefweb.int"
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = "https://reliefweb.int"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = reliefWebPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = reliefWebMaxPages
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = retry.DefaultPageDelay
	}
	if cfg.AppName == "" {
		return nil, errors.New("reliefweb appname is required")
	}

	site, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid reliefweb site url: %w", err)
	}

	return &ReliefWeb{
		cfg:     cfg,
		site:    site,
		fetcher: fetcher,
		logger:  log.With(logger.String("component", "reliefweb_adapter")),
	}, nil
}

func (r *ReliefWeb) Name() string {
	return domain.SourceReliefWeb
}

// Fetch requests pages until a short page or the page cap
func (r *ReliefWeb) Fetch(ctx context.Context) ([]ReliefWebItem, error) {
	var items []ReliefWebItem

	for page := 0; page < r.cfg.MaxPages; page++ {
		if page > 0 {
			if err := retry.Pace(ctx, r.cfg.PageDelay); err != nil {
				return nil, domain.NewSyncError(domain.KindTransientNetwork, r.Name(), err)
			}
		}

		batch, err := r.fetchPage(ctx, page*r.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)

		r.logger.Debug("page fetched",
			logger.Int("page", page),
			logger.Int("items", len(batch)))

		if len(batch) < r.cfg.PageSize {
			break
		}
	}

	return items, nil
}

func (r *ReliefWeb) fetchPage(ctx context.Context, offset int) ([]ReliefWebItem, error) {
	payload, err := json.Marshal(reliefWebRequest{
		Offset: offset,
		Limit:  r.cfg.PageSize,
		Filter: reliefWebFilter{Field: "country.name", Value: r.cfg.Country},
		Fields: reliefWebFieldsFilter{Include: reliefWebFields},
		Sort:   []string{"date.created:desc"},
	})
	if err != nil {
		return nil, domain.NewSyncError(domain.KindClientRequest, r.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + "/v1/jobs?appname=" + url.QueryEscape(r.cfg.AppName)

	body, err := r.fetcher.Fetch(ctx, r.Name(), func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp reliefWebResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, r.Name(), fmt.Errorf("failed to decode page: %w", err))
	}

	return resp.Data, nil
}

func (r *ReliefWeb) Transform(item ReliefWebItem) (*domain.Job, error) {
	f := item.Fields
	if item.ID == "" {
		return nil, errors.New("listing has no id")
	}

	link := f.URLAlias
	if link == "" {
		link = f.URL
	}

	country := firstName(f.Country)
	if country == "" {
		country = r.cfg.Country
	}
	location := firstName(f.City)
	if location == "" {
		location = country
	} else if country != "" {
		location = location + ", " + country
	}

	job := &domain.Job{
		Source:       r.Name(),
		SourceID:     item.ID,
		Title:        f.Title,
		Organization: firstName(f.Source),
		Location:     location,
		Country:      country,
		Description:  f.Body,
		ApplyURL:     resolveURL(r.site, link),
	}

	if posted := parseDate(f.Date.Created); !posted.IsZero() {
		job.PostedAt = posted.UnixMilli()
	}
	job.SetClosing(parseDate(f.Date.Closing))

	job.Category = firstName(f.CareerCategories)
	if job.Category == "" {
		job.Category = InferCategory(f.Title)
	}

	if level, ok := ExperienceFromRange(firstName(f.Experience)); ok {
		job.ExperienceLevel = level
	} else {
		job.ExperienceLevel = InferExperience(f.Title)
	}

	skills := make([]string, 0, len(f.Theme))
	for _, t := range f.Theme {
		skills = append(skills, t.Name)
	}
	job.SetSkills(skills)

	return job, nil
}

func firstName(names []reliefWebName) string {
	for _, n := range names {
		if s := strings.TrimSpace(n.Name); s != "" {
			return s
		}
	}
	return ""
}
