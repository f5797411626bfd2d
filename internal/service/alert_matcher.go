package service

import (
	"fmt"
	"strings"
	"sync"

	"jobsync/internal/domain"
	"jobsync/internal/logger"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// AlertMatcher decides whether a new listing is relevant to a subscription
type AlertMatcher interface {
	Matches(sub *domain.AlertSubscription, job *domain.Job) bool
}

type alertMatcher struct {
	logger logger.Logger

	mu       sync.Mutex
	programs map[string]*vm.Program
	invalid  map[string]struct{}
}

// NewAlertMatcher creates a matcher. Compiled expressions are memoised.
func NewAlertMatcher(log logger.Logger) AlertMatcher {
	return &alertMatcher{
		logger:   log.With(logger.String("component", "alert_matcher")),
		programs: make(map[string]*vm.Program),
		invalid:  make(map[string]struct{}),
	}
}

// Matches applies every configured dimension with AND semantics; within a
// dimension any value may match. A subscription with no filters matches nothing.
func (m *alertMatcher) Matches(sub *domain.AlertSubscription, job *domain.Job) bool {
	if sub == nil || job == nil || !sub.HasFilters() {
		return false
	}

	if nonEmpty(sub.Categories) && !anyValue(sub.Categories, func(v string) bool {
		return strings.EqualFold(v, job.Category)
	}) {
		return false
	}

	if nonEmpty(sub.Locations) && !anyValue(sub.Locations, func(v string) bool {
		return containsFold(job.Location, v) || strings.EqualFold(v, job.Country)
	}) {
		return false
	}

	if nonEmpty(sub.Organizations) && !anyValue(sub.Organizations, func(v string) bool {
		return containsFold(job.Organization, v)
	}) {
		return false
	}

	if len(sub.ExperienceLevels) > 0 && !matchesLevel(sub.ExperienceLevels, job.ExperienceLevel) {
		return false
	}

	if nonEmpty(sub.Keywords) {
		haystack := strings.ToLower(job.Title + " " + job.Description + " " + strings.Join(job.Skills, " "))
		if !anyValue(sub.Keywords, func(v string) bool {
			return strings.Contains(haystack, strings.ToLower(v))
		}) {
			return false
		}
	}

	if expression := strings.TrimSpace(sub.Expression); expression != "" {
		return m.evaluate(sub.ID, expression, job)
	}

	return true
}

func (m *alertMatcher) evaluate(subID, expression string, job *domain.Job) bool {
	program, err := m.compile(expression)
	if err != nil {
		return false
	}

	out, err := expr.Run(program, jobEnv(job))
	if err != nil {
		m.logger.Warn("subscription expression failed",
			logger.String("subscription_id", subID),
			logger.String("job_key", job.Key()),
			logger.Error(err))
		return false
	}

	matched, ok := out.(bool)
	return ok && matched
}

func (m *alertMatcher) compile(expression string) (*vm.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.programs[expression]; ok {
		return p, nil
	}
	if _, ok := m.invalid[expression]; ok {
		return nil, fmt.Errorf("invalid expression: %s", expression)
	}

	program, err := expr.Compile(expression, expr.Env(jobEnv(&domain.Job{})), expr.AsBool())
	if err != nil {
		m.invalid[expression] = struct{}{}
		m.logger.Warn("failed to compile subscription expression",
			logger.String("expression", expression),
			logger.Error(err))
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	m.programs[expression] = program
	return program, nil
}

// jobEnv exposes a listing to subscription expressions
func jobEnv(job *domain.Job) map[string]interface{} {
	skills := job.Skills
	if skills == nil {
		skills = []string{}
	}
	var salary string
	if job.Salary != nil {
		salary = *job.Salary
	}
	var closingAt int64
	if job.ClosingAt != nil {
		closingAt = *job.ClosingAt
	}

	return map[string]interface{}{
		"source":           job.Source,
		"title":            job.Title,
		"organization":     job.Organization,
		"location":         job.Location,
		"country":          job.Country,
		"category":         job.Category,
		"experience_level": string(job.ExperienceLevel),
		"description":      job.Description,
		"skills":           skills,
		"salary":           salary,
		"posted_at":        job.PostedAt,
		"closing_at":       closingAt,
	}
}

func matchesLevel(levels []domain.ExperienceLevel, level domain.ExperienceLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func anyValue(values []string, match func(string) bool) bool {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && match(v) {
			return true
		}
	}
	return false
}

func nonEmpty(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
