// Package parser recovers a structured report from free-form narrative
// text. Every function here is total: malformed input degrades to a
// fallback structure instead of an error.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"health-report-workers/internal/models"
)

const (
	MaxRecommendations  = 8
	MaxSummaryLength    = 500
	MaxConclusionLength = 500

	introductionTitle = "Introduction"
	fallbackTitle     = "Health Analysis Report"
)

// Parsed is everything derived from one narrative.
type Parsed struct {
	Sections        []models.Section
	Summary         string
	Recommendations []string
	Conclusions     string
}

func Parse(text string) Parsed {
	return Parsed{
		Sections:        SplitSections(text),
		Summary:         Summarize(text),
		Recommendations: ExtractRecommendations(text),
		Conclusions:     ExtractConclusions(text),
	}
}

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Summarize joins the first two paragraphs, capped at MaxSummaryLength runes.
func Summarize(text string) string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) > 2 {
		paragraphs = paragraphs[:2]
	}
	return truncateRunes(strings.Join(paragraphs, "\n\n"), MaxSummaryLength)
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func splitParagraphs(text string) []string {
	trimmed := strings.TrimSpace(normalizeNewlines(text))
	if trimmed == "" {
		return nil
	}
	return paragraphBreak.Split(trimmed, -1)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
