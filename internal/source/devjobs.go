package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobsync/internal/domain"
	"jobsync/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

// DevJobsConfig configures the development-sector job board scraper
type DevJobsConfig struct {
	BaseURL    string
	Country    string
	IDStrategy IDStrategy
}

// DevJobs scrapes a development-sector job board's country listing
type DevJobs struct {
	cfg     DevJobsConfig
	base    *url.URL
	fetcher *Fetcher
	now     func() time.Time
	logger  logger.Logger
}

// NewDevJobs creates the scraper
func NewDevJobs(cfg DevJobsConfig, fetcher *Fetcher, log logger.Logger) (*DevJobs, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.devjobsportal.org"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid devjobs base url: %w", err)
	}
	return &DevJobs{
		cfg:     cfg,
		base:    base,
		fetcher: fetcher,
		now:     time.Now,
		logger:  log.With(logger.String("component", "devjobs_scraper")),
	}, nil
}

func (d *DevJobs) Name() string {
	return domain.SourceDevJobs
}

func (d *DevJobs) Fetch(ctx context.Context) ([]ScrapedListing, error) {
	pageURL := d.base.JoinPath("jobs").String()
	query := url.Values{}
	query.Set("country", d.cfg.Country)
	pageURL += "?" + query.Encode()

	body, err := d.fetcher.Fetch(ctx, d.Name(), func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		SetBrowserHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	capturedAt := d.now()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, d.Name(),
			fmt.Errorf("failed to parse devjobs html: %w", err))
	}

	var listings []ScrapedListing
	doc.Find("article.job-listing").Each(func(i int, s *goquery.Selection) {
		link := s.Find("h2 a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")
		posted, _ := s.Find("time.posted").Attr("datetime")
		deadline := strings.TrimPrefix(strings.TrimSpace(s.Find(".deadline").Text()), "Deadline:")

		listings = append(listings, ScrapedListing{
			Title:        title,
			Organization: strings.TrimSpace(s.Find(".company").Text()),
			Location:     strings.TrimSpace(s.Find(".location").Text()),
			Country:      d.cfg.Country,
			Link:         resolveURL(d.base, href),
			PostedAt:     parseDate(posted),
			ClosingAt:    parseDate(deadline),
			CapturedAt:   capturedAt,
		})
	})

	AssignIDs(d.Name(), d.cfg.IDStrategy, listings, capturedAt)

	d.logger.Debug("page scraped",
		logger.String("url", pageURL),
		logger.Int("listings", len(listings)))

	return listings, nil
}

func (d *DevJobs) Transform(l ScrapedListing) (*domain.Job, error) {
	if l.ID == "" {
		return nil, fmt.Errorf("listing %q has no id", l.Title)
	}

	job := scrapedToJob(d.Name(), l, d.cfg.Country)
	job.Category = InferCategory(l.Title)
	job.ExperienceLevel = InferExperience(l.Title)

	return job, nil
}
