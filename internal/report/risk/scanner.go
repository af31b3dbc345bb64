// Package risk reads per-category risk labels back out of a finished
// narrative.
package risk

import (
	"regexp"
	"strings"

	"health-report-workers/internal/models"
)

type Level string

const (
	LevelLow      Level = "LOW"
	LevelModerate Level = "MODERATE"
	LevelHigh     Level = "HIGH"
	LevelUrgent   Level = "URGENT"
)

type Assessment struct {
	Category string `json:"category"`
	Level    Level  `json:"level"`
}

// Categories are scanned in this order.
var Categories = []string{"Sleep", "Cardiovascular", "Metabolic", "Digestive", "Cancer", "Neurological"}

type categoryPattern struct {
	name     string
	sameLine *regexp.Regexp
}

var (
	patterns   = compilePatterns()
	levelLabel = regexp.MustCompile(`(?i)Risk Level:\**\s*(LOW|MODERATE|HIGH|URGENT)`)
)

func compilePatterns() []categoryPattern {
	out := make([]categoryPattern, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, categoryPattern{
			name:     c,
			sameLine: regexp.MustCompile(`(?i)` + c + `.*Risk Level:\**\s*(LOW|MODERATE|HIGH|URGENT)`),
		})
	}
	return out
}

// Scan returns one assessment per category that carries a risk label, in
// category order. A label on the category's own line wins; otherwise the
// first label inside a section whose title names the category is used.
func Scan(content string, sections []models.Section) []Assessment {
	var found []Assessment
	for _, p := range patterns {
		if m := p.sameLine.FindStringSubmatch(content); m != nil {
			found = append(found, Assessment{Category: p.name, Level: Level(strings.ToUpper(m[1]))})
			continue
		}
		if level, ok := sectionLevel(p.name, sections); ok {
			found = append(found, Assessment{Category: p.name, Level: level})
		}
	}
	return found
}

func sectionLevel(category string, sections []models.Section) (Level, bool) {
	lower := strings.ToLower(category)
	for _, s := range sections {
		if !strings.Contains(strings.ToLower(s.Title), lower) {
			continue
		}
		if m := levelLabel.FindStringSubmatch(s.Content); m != nil {
			return Level(strings.ToUpper(m[1])), true
		}
	}
	return "", false
}

// RequiresPromptAttention flags any URGENT level or any mention of "urgent".
func RequiresPromptAttention(content string, assessments []Assessment) bool {
	for _, a := range assessments {
		if a.Level == LevelUrgent {
			return true
		}
	}
	return strings.Contains(strings.ToLower(content), "urgent")
}
