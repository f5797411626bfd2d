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

// UNJobsConfig configures the UNJobs duty-station scraper
type UNJobsConfig struct {
	BaseURL    string
	Country    string
	IDStrategy IDStrategy
}

// UNJobs scrapes the UNJobs duty-station listing for one country
type UNJobs struct {
	cfg     UNJobsConfig
	base    *url.URL
	fetcher *Fetcher
	now     func() time.Time
	logger  logger.Logger
}

// NewUNJobs creates the scraper
func NewUNJobs(cfg UNJobsConfig, fetcher *Fetcher, log logger.Logger) (*UNJobs, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://unjobs.org"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid unjobs base url: %w", err)
	}
	return &UNJobs{
		cfg:     cfg,
		base:    base,
		fetcher: fetcher,
		now:     time.Now,
		logger:  log.With(logger.String("component", "unjobs_scraper")),
	}, nil
}

func (u *UNJobs) Name() string {
	return domain.SourceUNJobs
}

func (u *UNJobs) pageURL() string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(u.cfg.Country), " ", "_"))
	return u.base.JoinPath("duty_stations", slug).String()
}

func (u *UNJobs) Fetch(ctx context.Context) ([]ScrapedListing, error) {
	pageURL := u.pageURL()

	body, err := u.fetcher.Fetch(ctx, u.Name(), func(ctx context.Context) (*http.Request, error) {
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

	capturedAt := u.now()
	listings, err := u.parse(body, capturedAt)
	if err != nil {
		return nil, domain.NewSyncError(domain.KindRecordTransform, u.Name(), err)
	}

	AssignIDs(u.Name(), u.cfg.IDStrategy, listings, capturedAt)

	u.logger.Debug("page scraped",
		logger.String("url", pageURL),
		logger.Int("listings", len(listings)))

	return listings, nil
}

// parse reads div.job blocks: a.jtitle carries title and link, the block's own
// text holds "Organization, Location", time.timeago the posting date and
// span.closing the deadline.
func (u *UNJobs) parse(body []byte, capturedAt time.Time) ([]ScrapedListing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse unjobs html: %w", err)
	}

	var listings []ScrapedListing
	doc.Find("div.job").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a.jtitle").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")

		org, location := splitOrgLocation(ownText(s))
		posted, _ := s.Find("time.timeago").Attr("datetime")
		closing := strings.TrimPrefix(strings.TrimSpace(s.Find("span.closing").Text()), "Closing date:")

		listings = append(listings, ScrapedListing{
			Title:        title,
			Organization: org,
			Location:     location,
			Country:      u.cfg.Country,
			Link:         resolveURL(u.base, href),
			Grade:        strings.TrimSpace(s.Find("span.grade").Text()),
			PostedAt:     parseDate(posted),
			ClosingAt:    parseDate(closing),
			CapturedAt:   capturedAt,
		})
	})

	return listings, nil
}

// splitOrgLocation splits "UNDP, Nairobi" at the first comma
func splitOrgLocation(text string) (string, string) {
	text = strings.Join(strings.Fields(text), " ")
	org, location, found := strings.Cut(text, ",")
	if !found {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(org), strings.TrimSpace(location)
}

func (u *UNJobs) Transform(l ScrapedListing) (*domain.Job, error) {
	if l.ID == "" {
		return nil, fmt.Errorf("listing %q has no id", l.Title)
	}

	job := scrapedToJob(u.Name(), l, u.cfg.Country)

	if level, ok := ExperienceFromUNGrade(l.Grade + " " + l.Title); ok {
		job.ExperienceLevel = level
	} else {
		job.ExperienceLevel = InferExperience(l.Title)
	}
	job.Category = InferCategory(l.Title)

	return job, nil
}
