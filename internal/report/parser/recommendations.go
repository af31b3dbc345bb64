package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minRecommendationLength = 10

// recommendationTier pairs a cheap applicability check with the extractor
// that runs when it matches. Tiers are tried in order until one yields.
type recommendationTier struct {
	name    string
	matches func(text string) bool
	extract func(text string) []string
}

var recommendationTiers = []recommendationTier{
	{name: "targeted", matches: hasRecommendationMarker, extract: targetedRecommendations},
	{name: "general", matches: func(string) bool { return true }, extract: generalRecommendations},
}

var (
	recommendationMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)## Key Recommendations`),
		regexp.MustCompile(`(?i)### Immediate Actions`),
		regexp.MustCompile(`(?i)### Long-term Goals`),
		regexp.MustCompile(`(?i)Recommendations:`),
	}

	numberedItem = regexp.MustCompile(`^\d+\.\s+`)
	bulletItem   = regexp.MustCompile(`^[-•*]\s+`)

	regionKeywords = []string{"recommendation", "action", "next steps"}
)

// ExtractRecommendations returns at most MaxRecommendations actionable items
// in encounter order.
func ExtractRecommendations(text string) []string {
	text = normalizeNewlines(text)
	for _, tier := range recommendationTiers {
		if !tier.matches(text) {
			continue
		}
		if items := tier.extract(text); len(items) > 0 {
			if len(items) > MaxRecommendations {
				items = items[:MaxRecommendations]
			}
			return items
		}
	}
	return []string{}
}

func hasRecommendationMarker(text string) bool {
	for _, marker := range recommendationMarkers {
		if marker.MatchString(text) {
			return true
		}
	}
	return false
}

// targetedRecommendations collects list items under every recommendation
// marker. A marker's span runs to the next "##" or the end of text.
func targetedRecommendations(text string) []string {
	var items []string
	for _, marker := range recommendationMarkers {
		loc := marker.FindStringIndex(text)
		if loc == nil {
			continue
		}
		span := text[loc[1]:]
		if end := strings.Index(span, "##"); end >= 0 {
			span = span[:end]
		}
		for _, line := range strings.Split(span, "\n") {
			if item, ok := listItem(line); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

// generalRecommendations walks the text and collects list items inside a
// region opened by a recommendation-ish line and closed by a heading. The
// opening line itself is never collected, even when it is a list item.
func generalRecommendations(text string) []string {
	var items []string
	inRegion := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case mentionsRecommendation(trimmed):
			inRegion = true
		case strings.HasPrefix(trimmed, "#"):
			inRegion = false
		case inRegion:
			if item, ok := listItem(trimmed); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func mentionsRecommendation(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range regionKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// listItem strips a list prefix and applies the acceptance rule: at least
// minRecommendationLength runes, inclusive, and not a bold sub-label.
func listItem(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)

	var item string
	switch {
	case numberedItem.MatchString(trimmed):
		item = numberedItem.ReplaceAllString(trimmed, "")
	case bulletItem.MatchString(trimmed):
		item = bulletItem.ReplaceAllString(trimmed, "")
	default:
		return "", false
	}

	item = strings.TrimSpace(item)
	if utf8.RuneCountInString(item) < minRecommendationLength || strings.HasPrefix(item, "**") {
		return "", false
	}
	return item, true
}
