package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	numberedItem = regexp.MustCompile(`^\d+[.):]\s*(.+)`)
	bareNumber   = regexp.MustCompile(`^\d+[.):]?\s*$`)
)

// ParseNumberedList extracts items from a "1. foo" / "2) bar" / "3: baz" list.
// Unnumbered non-empty lines are kept as items; lines holding only a number are skipped.
func ParseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := numberedItem.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				items = append(items, item)
			}
			continue
		}
		if bareNumber.MatchString(line) {
			continue
		}
		items = append(items, line)
	}
	return items
}

// FitToCount pads items with placeholders or truncates them to exactly n
func FitToCount(items []string, n int) []string {
	if len(items) >= n {
		return items[:n]
	}
	out := make([]string, 0, n)
	out = append(out, items...)
	for i := len(items); i < n; i++ {
		out = append(out, Placeholder(i+1))
	}
	return out
}

// Placeholder is the content used for a fragment the generator did not return
func Placeholder(position int) string {
	return fmt.Sprintf("Fragment %d not extracted", position)
}

// CleanQuote strips whitespace and surrounding quote characters from a generated quotation
func CleanQuote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, "'")
	return s
}
