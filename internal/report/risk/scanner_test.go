package risk

import (
	"testing"

	"health-report-workers/internal/report/parser"

	"github.com/stretchr/testify/assert"
)

const narrative = `# Personalized Health Analysis Report

## Sleep and Energy Assessment
**Risk Level:** MODERATE

Sleep is short.

## Cardiovascular Health Assessment
**Risk Level:** high

## Metabolic and Digestive Health
**Risk Level:** LOW

Cancer screening: Risk Level: low

## Conclusions
Overall fine.`

func TestScan(t *testing.T) {
	got := Scan(narrative, parser.SplitSections(narrative))

	assert.Equal(t, []Assessment{
		{Category: "Sleep", Level: LevelModerate},
		{Category: "Cardiovascular", Level: LevelHigh},
		{Category: "Metabolic", Level: LevelLow},
		{Category: "Digestive", Level: LevelLow},
		{Category: "Cancer", Level: LevelLow},
	}, got)
}

func TestScan_SameLineLabel(t *testing.T) {
	content := "Neurological health - Risk Level:** URGENT\nSleep Risk Level: LOW"

	got := Scan(content, nil)
	assert.Equal(t, []Assessment{
		{Category: "Sleep", Level: LevelLow},
		{Category: "Neurological", Level: LevelUrgent},
	}, got)
}

func TestScan_NothingFound(t *testing.T) {
	assert.Empty(t, Scan("No labels here.", parser.SplitSections("No labels here.")))
}

func TestRequiresPromptAttention(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		assessments []Assessment
		want        bool
	}{
		{"urgent level", "calm text", []Assessment{{Category: "Cancer", Level: LevelUrgent}}, true},
		{"urgent word", "> **URGENT:** see a doctor", nil, true},
		{"urgent substring", "a non-urgent follow-up", nil, true},
		{"calm", "all normal", []Assessment{{Category: "Sleep", Level: LevelLow}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresPromptAttention(tt.content, tt.assessments))
		})
	}
}
