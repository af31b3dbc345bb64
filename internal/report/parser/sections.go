package parser

import (
	"regexp"
	"strings"

	"health-report-workers/internal/models"
)

var headingPattern = regexp.MustCompile(`^#{1,3}\s+(.+)$`)

// SplitSections breaks text into titled sections in source order. Leading
// content before the first heading becomes an Introduction section. Input
// with no content at all yields a single fallback section holding the text
// verbatim, so the result is never empty.
func SplitSections(text string) []models.Section {
	lines := strings.Split(normalizeNewlines(text), "\n")

	var (
		sections []models.Section
		title    string
		body     []string
		open     bool
	)
	closeSection := func() {
		sections = append(sections, models.Section{
			Title:   title,
			Content: strings.TrimSpace(strings.Join(body, "\n")),
		})
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			if open {
				closeSection()
			}
			title, body, open = strings.TrimSpace(m[1]), nil, true
			continue
		}

		if !open {
			if trimmed == "" {
				continue
			}
			title, body, open = introductionTitle, nil, true
		}
		body = append(body, line)
	}
	if open {
		closeSection()
	}

	if len(sections) == 0 {
		return []models.Section{{Title: fallbackTitle, Content: text}}
	}
	return sections
}
