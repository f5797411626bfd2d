package source

import (
	"testing"

	"jobsync/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestInferCategory(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Senior Software Developer", "Information Technology"},
		{"ICT Officer", "Information Technology"},
		{"Monitoring and Evaluation Officer, Health Programme", "Monitoring and Evaluation"},
		{"Finance Associate", "Finance"},
		{"District Health Coordinator", "Health"},
		{"Procurement Assistant", "Logistics"},
		{"Programme Officer", "Programme Management"},
		{"Driver", domain.DefaultCategory},
		{"", domain.DefaultCategory},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferCategory(tt.title))
		})
	}
}

func TestInferExperience(t *testing.T) {
	tests := []struct {
		title    string
		expected domain.ExperienceLevel
	}{
		{"Country Director", domain.ExperienceDirector},
		{"Head of Programmes", domain.ExperienceDirector},
		{"Senior Nutrition Advisor", domain.ExperienceSenior},
		{"Team Lead, Data", domain.ExperienceSenior},
		{"Junior Accountant", domain.ExperienceEntry},
		{"Internship - Communications", domain.ExperienceEntry},
		{"International Consultant", domain.ExperienceMid},
		{"Protection Officer", domain.ExperienceMid},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferExperience(tt.title))
		})
	}
}

func TestFirstMatch_OrderIsSignificant(t *testing.T) {
	rules := []Rule[string]{
		{Value: "first", Keywords: []string{"data"}},
		{Value: "second", Keywords: []string{"officer"}},
	}
	assert.Equal(t, "first", FirstMatch("Data Officer", rules, "none"))
	assert.Equal(t, "second", FirstMatch("Officer", rules, "none"))
	assert.Equal(t, "none", FirstMatch("Driver", rules, "none"))
}

func TestExperienceFromUNGrade(t *testing.T) {
	tests := []struct {
		text     string
		expected domain.ExperienceLevel
		ok       bool
	}{
		{"P-2", domain.ExperienceEntry, true},
		{"Programme Officer (P3)", domain.ExperienceMid, true},
		{"NO-B", domain.ExperienceMid, true},
		{"P5 Chief of Section", domain.ExperienceSenior, true},
		{"D-1", domain.ExperienceDirector, true},
		{"USG", domain.ExperienceDirector, true},
		{"G-5 Administrative Assistant", domain.ExperienceEntry, true},
		{"Consultant", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			level, ok := ExperienceFromUNGrade(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestExperienceFromRange(t *testing.T) {
	level, ok := ExperienceFromRange("0-2 years")
	assert.True(t, ok)
	assert.Equal(t, domain.ExperienceEntry, level)

	level, ok = ExperienceFromRange("10+ years")
	assert.True(t, ok)
	assert.Equal(t, domain.ExperienceDirector, level)

	_, ok = ExperienceFromRange("unspecified")
	assert.False(t, ok)
}
