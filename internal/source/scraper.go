package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"jobsync/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// IDStrategy decides how scraped listings without a native identifier get a sourceId
type IDStrategy string

const (
	// IDContent hashes title, organization and location so ids survive across runs
	IDContent IDStrategy = "content"
	// IDPositional uses the capture timestamp and the index on the page
	IDPositional IDStrategy = "positional"
)

// ParseIDStrategy maps a config value, defaulting to IDContent
func ParseIDStrategy(s string) IDStrategy {
	if IDStrategy(strings.ToLower(strings.TrimSpace(s))) == IDPositional {
		return IDPositional
	}
	return IDContent
}

// ScrapedListing is the raw record produced by the HTML scrapers
type ScrapedListing struct {
	ID           string
	Title        string
	Organization string
	Location     string
	Country      string
	Link         string
	Grade        string
	PostedAt     time.Time
	ClosingAt    time.Time
	CapturedAt   time.Time
}

// AssignIDs fills ID on every listing. Content ids that repeat within one
// page get an occurrence suffix.
func AssignIDs(source string, strategy IDStrategy, listings []ScrapedListing, capturedAt time.Time) {
	seen := make(map[string]int, len(listings))
	for i := range listings {
		l := &listings[i]
		if strategy == IDPositional {
			l.ID = fmt.Sprintf("%s-%d-%d", source, capturedAt.Unix(), i)
			continue
		}

		id := contentID(l.Title, l.Organization, l.Location)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		l.ID = id
	}
}

func contentID(title, organization, location string) string {
	norm := func(s string) string { return strings.ToLower(strings.Join(strings.Fields(s), " ")) }
	sum := sha256.Sum256([]byte(norm(title) + "|" + norm(organization) + "|" + norm(location)))
	return hex.EncodeToString(sum[:])[:20]
}

// scrapedToJob applies the shared degradation rules for missing fields
func scrapedToJob(source string, l ScrapedListing, defaultCountry string) *domain.Job {
	country := l.Country
	if country == "" {
		country = defaultCountry
	}

	location := l.Location
	if location == "" {
		location = "Unknown, " + country
	}

	org := l.Organization
	if org == "" {
		org = "Unknown"
	}

	posted := l.PostedAt
	if posted.IsZero() {
		posted = l.CapturedAt
	}

	job := &domain.Job{
		Source:       source,
		SourceID:     l.ID,
		Title:        l.Title,
		Organization: org,
		Location:     location,
		Country:      country,
		ApplyURL:     l.Link,
		PostedAt:     posted.UnixMilli(),
	}
	job.SetClosing(l.ClosingAt)
	return job
}

// resolveURL makes href absolute against base
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// ownText returns the text directly inside s, skipping child elements
func ownText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Clone().Children().Remove().End().Text())
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
}

// parseDate tries the layouts seen across sources, returning zero on failure
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
