package score

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Weights controls how the four metrics are combined
type Weights struct {
	Ratio     float64 `json:"ratio"`
	Partial   float64 `json:"partial"`
	TokenSort float64 `json:"token_sort"`
	TokenSet  float64 `json:"token_set"`
}

// DefaultWeights favors partial matching, since fragments are compared against larger windows
var DefaultWeights = Weights{Ratio: 0.30, Partial: 0.40, TokenSort: 0.15, TokenSet: 0.15}

// Breakdown is the transparent result of a comparison.
// Every metric is in [0, 100].
type Breakdown struct {
	Ratio     float64 `json:"ratio"`
	Partial   float64 `json:"partial_ratio"`
	TokenSort float64 `json:"token_sort_ratio"`
	TokenSet  float64 `json:"token_set_ratio"`
	Combined  float64 `json:"combined"`
}

// Scorer compares two strings with several similarity metrics
type Scorer struct {
	Weights Weights
}

// NewScorer creates a scorer with the default weights
func NewScorer() *Scorer {
	return &Scorer{Weights: DefaultWeights}
}

// Score computes every metric for a and b and their weighted combination
func (s *Scorer) Score(a, b string) Breakdown {
	bd := Breakdown{
		Ratio:     Ratio(a, b),
		Partial:   PartialRatio(a, b),
		TokenSort: TokenSortRatio(a, b),
		TokenSet:  TokenSetRatio(a, b),
	}
	w := s.Weights
	bd.Combined = Clamp(w.Ratio*bd.Ratio + w.Partial*bd.Partial + w.TokenSort*bd.TokenSort + w.TokenSet*bd.TokenSet)
	return bd
}

// Ratio is the normalized similarity of a and b (0 when either is empty)
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return ratio(chars(a), chars(b))
}

func ratio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return newMatcher(a, b).Ratio() * 100
}

// PartialRatio is the best Ratio of the shorter string against
// equally long substrings of the longer one.
func PartialRatio(a, b string) float64 {
	short, long := chars(a), chars(b)
	if len(short) == 0 || len(long) == 0 {
		return 0
	}
	if len(short) > len(long) {
		short, long = long, short
	}

	best := 0.0
	for _, block := range newMatcher(short, long).GetMatchingBlocks() {
		start := block.B - block.A
		if start < 0 {
			start = 0
		}
		end := start + len(short)
		if end > len(long) {
			end = len(long)
		}
		r := ratio(short, long[start:end])
		if r > 99.5 {
			return 100
		}
		if r > best {
			best = r
		}
	}
	return best
}

// TokenSortRatio compares a and b after sorting their normalized tokens
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens of a and b against each side's remainder
func TokenSetRatio(a, b string) float64 {
	t1, t2 := tokenSet(a), tokenSet(b)
	if len(t1) == 0 || len(t2) == 0 {
		return 0
	}

	var inter, diff1, diff2 []string
	for tok := range t1 {
		if t2[tok] {
			inter = append(inter, tok)
		} else {
			diff1 = append(diff1, tok)
		}
	}
	for tok := range t2 {
		if !t1[tok] {
			diff2 = append(diff2, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(diff1)
	sort.Strings(diff2)

	sect := strings.Join(inter, " ")
	combined1 := strings.TrimSpace(sect + " " + strings.Join(diff1, " "))
	combined2 := strings.TrimSpace(sect + " " + strings.Join(diff2, " "))

	return math.Max(Ratio(sect, combined1), math.Max(Ratio(sect, combined2), Ratio(combined1, combined2)))
}

// LongestMatch returns the rune offsets and length of the longest common block
// of a and b. Size is 0 when nothing matches.
func LongestMatch(a, b string) (aStart, bStart, size int) {
	ca, cb := chars(a), chars(b)
	if len(ca) == 0 || len(cb) == 0 {
		return 0, 0, 0
	}
	for _, m := range newMatcher(ca, cb).GetMatchingBlocks() {
		if m.Size > size {
			aStart, bStart, size = m.A, m.B, m.Size
		}
	}
	return aStart, bStart, size
}

// Clamp limits v to [0, 100]
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Round2 rounds v to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func newMatcher(a, b []string) *difflib.SequenceMatcher {
	return difflib.NewMatcherWithJunk(a, b, false, nil)
}

// chars splits s into one element per rune
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// normalize lower-cases s and replaces anything that is not a letter or digit with a space
func normalize(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

func sortedTokens(s string) string {
	toks := strings.Fields(normalize(s))
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalize(s)) {
		set[tok] = true
	}
	return set
}
