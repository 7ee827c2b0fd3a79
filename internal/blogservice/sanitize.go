package blogservice

import (
	"math"
	"regexp"
	"strings"
)

var (
	scriptTagRX   = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)
	slugInvalidRX = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRX  = regexp.MustCompile(`\s+`)
	hyphensRX     = regexp.MustCompile(`-+`)
)

func sanitizeMarkdown(markdown string) string {
	return scriptTagRX.ReplaceAllString(markdown, "")
}

// slugify lowercases title and reduces it to [a-z0-9-] with single hyphens
// between words.
func slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalidRX.ReplaceAllString(s, "")
	s = whitespaceRX.ReplaceAllString(s, "-")
	s = hyphensRX.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// readingTime is minutes at 200 words per minute, never less than one.
func readingTime(content string) int {
	words := len(strings.Fields(content))
	return max(1, int(math.Ceil(float64(words)/wordsPerMinute)))
}

// normalizeTags trims and lowercases tags and drops empty ones. Duplicates
// are kept.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
