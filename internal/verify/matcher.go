package verify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/score"
)

// VerifiedThreshold is the minimum fuzzy score for a fragment to count as verified
const VerifiedThreshold = 70.0

// Result is the outcome of checking one fragment against a source text
type Result struct {
	Score     float64          `json:"similarity_score"`
	Start     *int             `json:"start_position,omitempty"` // Byte offset
	End       *int             `json:"end_position,omitempty"`
	MatchType model.MatchType  `json:"match_type"`
	Verified  bool             `json:"verified"`
	Breakdown *score.Breakdown `json:"breakdown,omitempty"` // Set by the window tier only
}

// Apply copies the verification outcome onto a fragment
func (r Result) Apply(f *model.Fragment) {
	f.SimilarityScore = r.Score
	f.StartPosition = r.Start
	f.EndPosition = r.End
	f.MatchType = r.MatchType
	f.Verified = r.Verified
}

// NoMatch is the result when no tier matched
func NoMatch() Result {
	return Result{MatchType: model.MatchNone}
}

// Matcher is one tier of the verification chain.
// It reports false when it has nothing to say about the input.
type Matcher interface {
	Name() string
	Match(content, text string) (Result, bool)
}

// ExactMatcher finds the first verbatim occurrence of content
type ExactMatcher struct{}

func (ExactMatcher) Name() string { return "exact" }

func (ExactMatcher) Match(content, text string) (Result, bool) {
	if content == "" {
		return Result{}, false
	}
	i := strings.Index(text, content)
	if i < 0 {
		return Result{}, false
	}
	return Result{
		Score:     100,
		Start:     intPtr(i),
		End:       intPtr(i + len(content)),
		MatchType: model.MatchExact,
		Verified:  true,
	}, true
}

// CaseInsensitiveMatcher finds the first occurrence ignoring letter case.
// Offsets refer to the original text even when lower-casing changes byte widths.
type CaseInsensitiveMatcher struct {
	Score float64
}

func (CaseInsensitiveMatcher) Name() string { return "case_insensitive" }

func (m CaseInsensitiveMatcher) Match(content, text string) (Result, bool) {
	if content == "" {
		return Result{}, false
	}
	lowText := lowerRunes(text)
	lowContent := lowerRunes(content)

	i := strings.Index(lowText, lowContent)
	if i < 0 {
		return Result{}, false
	}
	startRune := utf8.RuneCountInString(lowText[:i])
	endRune := startRune + utf8.RuneCountInString(lowContent)
	start, end := byteRange(text, startRune, endRune)

	s := m.Score
	if s == 0 {
		s = 95
	}
	return Result{
		Score:     s,
		Start:     intPtr(start),
		End:       intPtr(end),
		MatchType: model.MatchCaseInsensitive,
		Verified:  true,
	}, true
}

// WindowMatcher slides a window slightly wider than the fragment across the
// text and keeps the best combined similarity score.
type WindowMatcher struct {
	Scorer *score.Scorer
	Slack  int // Extra runes added to the fragment length to size the window
}

// NewWindowMatcher creates a window matcher with the default scorer
func NewWindowMatcher() *WindowMatcher {
	return &WindowMatcher{Scorer: score.NewScorer(), Slack: 100}
}

func (m *WindowMatcher) Name() string { return "window" }

func (m *WindowMatcher) Match(content, text string) (Result, bool) {
	c := []rune(content)
	t := []rune(text)
	if len(c) == 0 || len(t) == 0 {
		return Result{}, false
	}
	// Without a single shared word stem no window can be meaningfully similar
	if !sharesStem(content, text) {
		return Result{}, false
	}

	window := len(c) + m.Slack
	if window > len(t) {
		window = len(t)
	}
	step := len(c) / 4
	if step < 1 {
		step = 1
	}

	bestStart := -1
	var best score.Breakdown
	for i := 0; i+window <= len(t); i += step {
		bd := m.Scorer.Score(content, string(t[i:i+window]))
		if bestStart < 0 || bd.Combined > best.Combined {
			best = bd
			bestStart = i
		}
	}
	if bestStart < 0 {
		return Result{}, false
	}

	best.Combined = score.Round2(score.Clamp(best.Combined))
	res := Result{
		Score:     best.Combined,
		MatchType: model.MatchPartial,
		Verified:  best.Combined >= VerifiedThreshold,
		Breakdown: &best,
	}

	_, b, size := score.LongestMatch(content, string(t[bestStart:bestStart+window]))
	if size > 0 {
		start, end := byteRange(text, bestStart+b, bestStart+b+size)
		res.Start = intPtr(start)
		res.End = intPtr(end)
	}
	return res, true
}

// WordOverlapMatcher scores the share of the fragment's distinct words found in the text
type WordOverlapMatcher struct{}

func (WordOverlapMatcher) Name() string { return "word_overlap" }

func (WordOverlapMatcher) Match(content, text string) (Result, bool) {
	cw := wordSet(content)
	if len(cw) == 0 {
		return Result{}, false
	}
	tw := wordSet(text)

	common := 0
	for w := range cw {
		if tw[w] {
			common++
		}
	}
	if common == 0 {
		return Result{}, false
	}

	s := score.Round2(float64(common) / float64(len(cw)) * 100)
	return Result{
		Score:     s,
		MatchType: model.MatchWordOverlap,
		Verified:  s >= VerifiedThreshold,
	}, true
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[w] = true
	}
	return set
}

// stemLen is the number of leading runes two words must share to count as related.
// Misspelled words usually keep their first letters.
const stemLen = 3

func stem(w string) string {
	r := []rune(w)
	if len(r) > stemLen {
		r = r[:stemLen]
	}
	return string(r)
}

// sharesStem reports whether any word of a starts like some word of b
func sharesStem(a, b string) bool {
	stems := make(map[string]bool)
	for w := range wordSet(a) {
		stems[stem(w)] = true
	}
	if len(stems) == 0 {
		return false
	}
	for w := range wordSet(b) {
		if stems[stem(w)] {
			return true
		}
	}
	return false
}

// lowerRunes lower-cases rune by rune so the rune count is preserved
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// byteRange converts rune offsets in s to byte offsets
func byteRange(s string, startRune, endRune int) (int, int) {
	start, end := len(s), len(s)
	n := 0
	for i := range s {
		if n == startRune {
			start = i
		}
		if n == endRune {
			end = i
			break
		}
		n++
	}
	return start, end
}

func intPtr(v int) *int {
	return &v
}
