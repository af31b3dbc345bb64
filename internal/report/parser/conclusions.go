package parser

import (
	"regexp"
	"strings"
)

var (
	// Headings and emphasized labels may be numbered and may carry more
	// title words after the keyword. Plain lines must be the keyword alone or
	// the keyword followed by a colon.
	decoratedConclusionMarker = regexp.MustCompile(
		`(?i)^\s*(?:#{1,6}\s+[*_]*|[*_]+)\s*(?:\d+[.)]\s*)?(?:` + conclusionKeywords + `)\b[^:]*?[*_]*\s*(?::[*_]*\s*(.*))?$`)
	plainConclusionMarker = regexp.MustCompile(
		`(?i)^\s*(?:\d+[.)]\s*)?(?:` + conclusionKeywords + `)\s*(?::\s*(.*))?$`)
	anyHeading = regexp.MustCompile(`^\s*#{1,6}\s`)
)

const conclusionKeywords = `conclusions?|summary|final\s+thoughts|key\s+takeaways?`

func matchConclusionMarker(line string) []string {
	if m := decoratedConclusionMarker.FindStringSubmatch(line); m != nil {
		return m
	}
	return plainConclusionMarker.FindStringSubmatch(line)
}

// ExtractConclusions returns the paragraph introduced by the first
// conclusion-like marker line, or the last two paragraphs when there is no
// marker.
func ExtractConclusions(text string) string {
	lines := strings.Split(normalizeNewlines(text), "\n")

	for i, line := range lines {
		m := matchConclusionMarker(line)
		if m == nil {
			continue
		}
		if captured := captureAfterMarker(strings.TrimSpace(m[1]), lines[i+1:]); captured != "" {
			return truncateRunes(captured, MaxConclusionLength)
		}
		break
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) > 2 {
		paragraphs = paragraphs[len(paragraphs)-2:]
	}
	return strings.Join(paragraphs, "\n\n")
}

// captureAfterMarker reads from the marker's inline text through the
// following lines, stopping at a blank line or heading. Blank lines directly
// under a bare marker are skipped.
func captureAfterMarker(inline string, rest []string) string {
	var captured []string
	if inline != "" {
		captured = append(captured, inline)
	}

	for _, line := range rest {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(captured) == 0 {
				continue
			}
			break
		}
		if anyHeading.MatchString(line) {
			break
		}
		captured = append(captured, line)
	}
	return strings.TrimSpace(strings.Join(captured, "\n"))
}
