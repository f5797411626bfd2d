package source

import (
	"regexp"
	"strings"
	"unicode"

	"jobsync/internal/domain"
)

// Rule maps any of its keywords to Value
type Rule[T any] struct {
	Value    T
	Keywords []string
}

// FirstMatch returns the value of the first rule with a keyword contained in
// the normalized text. Rule order is significant. Keywords padded with spaces
// match whole words only.
func FirstMatch[T any](text string, rules []Rule[T], fallback T) T {
	normalized := normalizeText(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(normalized, kw) {
				return rule.Value
			}
		}
	}
	return fallback
}

// normalizeText lower-cases text, turns punctuation into spaces and pads it
// with a leading and trailing space
func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '+' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return b.String()
}

// categoryRules is shared by every source that lacks a native category.
// Monitoring and evaluation is checked before programme management since
// M&E titles usually mention a programme.
var categoryRules = []Rule[string]{
	{Value: "Information Technology", Keywords: []string{"software", "developer", " engineer", " data ", "database", " ict ", " it ", "information technology", "devops", "programmer", " web ", " cloud", "cyber"}},
	{Value: "Monitoring and Evaluation", Keywords: []string{"monitoring", "evaluation", " m&e ", " meal "}},
	{Value: "Finance", Keywords: []string{"finance", "financial", "accountant", "accounting", "budget", "audit", "treasury"}},
	{Value: "Health", Keywords: []string{"health", "medical", "nurse", "doctor", "epidemiolog", "clinical", "nutrition"}},
	{Value: "Education", Keywords: []string{"education", "teacher", "school", "training", "learning"}},
	{Value: "Human Resources", Keywords: []string{"human resources", " hr ", "recruitment", "talent"}},
	{Value: "Logistics", Keywords: []string{"logistics", "supply chain", "procurement", "warehouse", "fleet"}},
	{Value: "Communications", Keywords: []string{"communication", " media ", "advocacy", "journalist", "public information"}},
	{Value: "Programme Management", Keywords: []string{"programme", " program ", "project manager", "project officer", "coordinator"}},
	{Value: "Legal", Keywords: []string{" legal ", "lawyer", "counsel", "protection officer"}},
}

// experienceRules checks the most senior terms first
var experienceRules = []Rule[domain.ExperienceLevel]{
	{Value: domain.ExperienceDirector, Keywords: []string{"director", "head of", "chief", "country representative", "vice president"}},
	{Value: domain.ExperienceSenior, Keywords: []string{"senior", " lead ", "principal", " sr ", "manager"}},
	{Value: domain.ExperienceEntry, Keywords: []string{" intern ", "internship", "junior", "entry level", "graduate", "trainee", "assistant", " jr "}},
}

// InferCategory classifies free text into a category, defaulting to General
func InferCategory(text string) string {
	return FirstMatch(text, categoryRules, domain.DefaultCategory)
}

// InferExperience classifies free text into a level, defaulting to Mid
func InferExperience(text string) domain.ExperienceLevel {
	return FirstMatch(text, experienceRules, domain.ExperienceMid)
}

// reliefWebExperience maps ReliefWeb's experience ranges
var reliefWebExperience = map[string]domain.ExperienceLevel{
	"0-2 years": domain.ExperienceEntry,
	"3-4 years": domain.ExperienceMid,
	"5-9 years": domain.ExperienceSenior,
	"10+ years": domain.ExperienceDirector,
}

// ExperienceFromRange maps a ReliefWeb experience range, reporting whether it was known
func ExperienceFromRange(r string) (domain.ExperienceLevel, bool) {
	level, ok := reliefWebExperience[strings.ToLower(strings.TrimSpace(r))]
	return level, ok
}

var unGradePattern = regexp.MustCompile(`(?i)\b(P-?[1-5]|D-?[12]|NO-?[A-D]|G-?[1-7]|GS-?[1-7]|ASG|USG)\b`)

// ExperienceFromUNGrade reads a UN grade code (P3, NO-B, D1...) from text
func ExperienceFromUNGrade(text string) (domain.ExperienceLevel, bool) {
	m := unGradePattern.FindString(text)
	if m == "" {
		return "", false
	}
	grade := strings.ToUpper(strings.ReplaceAll(m, "-", ""))

	switch {
	case grade == "P1" || grade == "P2" || grade == "NOA" ||
		strings.HasPrefix(grade, "G"):
		return domain.ExperienceEntry, true
	case grade == "P3" || grade == "NOB" || grade == "NOC":
		return domain.ExperienceMid, true
	case grade == "P4" || grade == "P5" || grade == "NOD":
		return domain.ExperienceSenior, true
	case grade == "D1" || grade == "D2" || grade == "ASG" || grade == "USG":
		return domain.ExperienceDirector, true
	}
	return "", false
}
