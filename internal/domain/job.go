package domain

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ExperienceLevel is the closed set of seniority buckets a listing maps into
type ExperienceLevel string

const (
	ExperienceEntry    ExperienceLevel = "Entry"
	ExperienceMid      ExperienceLevel = "Mid"
	ExperienceSenior   ExperienceLevel = "Senior"
	ExperienceDirector ExperienceLevel = "Director"
	ExperienceUnknown  ExperienceLevel = "Unknown"
)

// IsValid returns true if the level is one of the known buckets
func (l ExperienceLevel) IsValid() bool {
	switch l {
	case ExperienceEntry, ExperienceMid, ExperienceSenior, ExperienceDirector, ExperienceUnknown:
		return true
	default:
		return false
	}
}

// Source tags
const (
	SourceReliefWeb = "reliefweb"
	SourceUNJobs    = "unjobs"
	SourceDevJobs   = "devjobs"
	SourceAdzuna    = "adzuna"
	SourceRemotive  = "remotive"
	SourceJSearch   = "jsearch"
)

// DefaultCategory is used when neither the source nor inference yields one
const DefaultCategory = "General"

// Job is the canonical listing every source adapter produces.
// CreatedAt and UpdatedAt are assigned by the store (epoch millis).
type Job struct {
	JobKey          string          `json:"job_key" dynamodbav:"job_key"`
	Source          string          `json:"source" dynamodbav:"source"`
	SourceID        string          `json:"source_id" dynamodbav:"source_id"`
	Title           string          `json:"title" dynamodbav:"title"`
	Organization    string          `json:"organization" dynamodbav:"organization"`
	Location        string          `json:"location" dynamodbav:"location"`
	Country         string          `json:"country" dynamodbav:"country"`
	Category        string          `json:"category" dynamodbav:"category"`
	ExperienceLevel ExperienceLevel `json:"experience_level" dynamodbav:"experience_level"`
	Description     string          `json:"description" dynamodbav:"description"`
	Skills          []string        `json:"skills" dynamodbav:"skills"`
	Salary          *string         `json:"salary,omitempty" dynamodbav:"salary,omitempty"`
	ApplyURL        string          `json:"apply_url" dynamodbav:"apply_url"`
	PostedAt        int64           `json:"posted_at" dynamodbav:"posted_at"`
	ClosingAt       *int64          `json:"closing_at,omitempty" dynamodbav:"closing_at,omitempty"`
	CreatedAt       int64           `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       int64           `json:"updated_at" dynamodbav:"updated_at"`
}

// JobKey builds the dedup key for a (source, sourceId) pair
func JobKey(source, sourceID string) string {
	return source + "#" + sourceID
}

// Key returns the dedup key of the job
func (j *Job) Key() string {
	return JobKey(j.Source, j.SourceID)
}

// IsNew reports whether the last upsert created the record
func (j *Job) IsNew() bool {
	return j.CreatedAt == j.UpdatedAt
}

// ClosingTime returns the closing date, if the listing has one
func (j *Job) ClosingTime() (time.Time, bool) {
	if j.ClosingAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*j.ClosingAt), true
}

// SetClosing sets the closing date; a zero time clears it
func (j *Job) SetClosing(t time.Time) {
	if t.IsZero() {
		j.ClosingAt = nil
		return
	}
	ms := t.UnixMilli()
	j.ClosingAt = &ms
}

// SetSkills stores skills as a sorted set of trimmed, non-empty values
func (j *Job) SetSkills(skills []string) {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	j.Skills = out
}

// Normalize fills derived and defaulted fields before persistence
func (j *Job) Normalize() {
	j.Title = strings.TrimSpace(j.Title)
	j.Organization = strings.TrimSpace(j.Organization)
	j.Location = strings.TrimSpace(j.Location)
	j.JobKey = j.Key()
	if j.Category == "" {
		j.Category = DefaultCategory
	}
	if !j.ExperienceLevel.IsValid() {
		j.ExperienceLevel = ExperienceUnknown
	}
	if j.Skills == nil {
		j.Skills = []string{}
	}
}

// Validate checks the fields every stored listing must carry
func (j *Job) Validate() error {
	var errs []error
	if j.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if j.SourceID == "" {
		errs = append(errs, errors.New("source_id is required"))
	}
	if j.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if u, err := url.Parse(j.ApplyURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, fmt.Errorf("apply_url must be absolute, got %q", j.ApplyURL))
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy
func (j *Job) Clone() *Job {
	c := *j
	if j.Skills != nil {
		c.Skills = append([]string(nil), j.Skills...)
	}
	if j.Salary != nil {
		s := *j.Salary
		c.Salary = &s
	}
	if j.ClosingAt != nil {
		ms := *j.ClosingAt
		c.ClosingAt = &ms
	}
	return &c
}
