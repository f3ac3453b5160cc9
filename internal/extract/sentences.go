package extract

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// SplitSentences splits text on runs of . ! ? followed by whitespace.
// Pieces are trimmed, empty pieces dropped, and a "." is appended to any
// piece that does not already end in terminal punctuation.
func SplitSentences(text string) []string {
	parts := sentenceBoundary.Split(strings.TrimSpace(text), -1)

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasSuffix(p, ".") && !strings.HasSuffix(p, "!") && !strings.HasSuffix(p, "?") {
			p += "."
		}
		sentences = append(sentences, p)
	}
	return sentences
}
