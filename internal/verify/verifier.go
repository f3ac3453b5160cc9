package verify

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/verbatim/internal/model"
)

// FragmentVerifier checks a fragment against the text it claims to quote
type FragmentVerifier interface {
	Verify(content, text string) Result
}

// Mode selects which verifier implementation to use
type Mode string

const (
	ModeScored Mode = "scored" // Tiered chain with fuzzy scoring (default)
	ModeLegacy Mode = "legacy" // Substring checks with fixed scores
)

// ParseMode converts a name into a Mode; empty means scored
func ParseMode(v string) (Mode, error) {
	switch Mode(v) {
	case "", ModeScored:
		return ModeScored, nil
	case ModeLegacy:
		return ModeLegacy, nil
	}
	return "", fmt.Errorf("unknown verification mode %q", v)
}

// ForMode returns the verifier for mode
func ForMode(mode Mode) FragmentVerifier {
	if mode == ModeLegacy {
		return LegacyVerifier{}
	}
	return NewVerifier()
}

// tier is one step in the chain.
// A definitive tier ends the chain on its first result. A non-definitive tier is
// consulted only while the best result so far scores below consultBelow, and its
// result is kept only when it scores strictly higher.
type tier struct {
	matcher      Matcher
	definitive   bool
	consultBelow float64
}

// Verifier runs fragments through an ordered chain of matchers
type Verifier struct {
	tiers []tier
}

// NewVerifier creates the standard chain:
// exact, case-insensitive, sliding window, word overlap.
func NewVerifier() *Verifier {
	return &Verifier{tiers: []tier{
		{matcher: ExactMatcher{}, definitive: true},
		{matcher: CaseInsensitiveMatcher{Score: 95}, definitive: true},
		{matcher: NewWindowMatcher(), consultBelow: math.Inf(1)},
		{matcher: WordOverlapMatcher{}, consultBelow: 50},
	}}
}

// Verify scores content against text. Content is trimmed first.
func (v *Verifier) Verify(content, text string) Result {
	content = strings.TrimSpace(content)
	if content == "" || text == "" {
		return NoMatch()
	}

	var best *Result
	for _, t := range v.tiers {
		if best != nil && best.Score >= t.consultBelow {
			continue
		}
		r, ok := t.matcher.Match(content, text)
		if !ok {
			continue
		}
		if t.definitive {
			return r
		}
		if best == nil || r.Score > best.Score {
			best = &r
		}
	}
	if best == nil {
		return NoMatch()
	}
	return *best
}

// LegacyVerifier accepts only substring evidence: exact, case-insensitive,
// or a trailing run of the fragment's words.
type LegacyVerifier struct{}

// Verify implements FragmentVerifier with fixed scores of 100, 95 and 80
func (LegacyVerifier) Verify(content, text string) Result {
	content = strings.TrimSpace(content)
	if content == "" || text == "" {
		return NoMatch()
	}
	if r, ok := (ExactMatcher{}).Match(content, text); ok {
		return r
	}
	if r, ok := (CaseInsensitiveMatcher{Score: 95}).Match(content, text); ok {
		return r
	}

	words := strings.Fields(content)
	if len(words) > 3 {
		for i := 0; i < len(words)-2; i++ {
			suffix := strings.Join(words[i:], " ")
			if len(suffix) <= 20 {
				continue
			}
			if pos := strings.Index(text, suffix); pos >= 0 {
				return Result{
					Score:     80,
					Start:     intPtr(pos),
					End:       intPtr(pos + len(suffix)),
					MatchType: model.MatchPartial,
					Verified:  true,
				}
			}
		}
	}
	return NoMatch()
}

// BulkItem is the outcome for one fragment in a bulk run
type BulkItem struct {
	FragmentID string          `json:"fragment_id"`
	Verified   bool            `json:"verified"`
	Score      float64         `json:"similarity_score"`
	MatchType  model.MatchType `json:"match_type"`
	Start      *int            `json:"start_position"`
	End        *int            `json:"end_position"`
}

// BulkReport summarizes a bulk verification run
type BulkReport struct {
	Results          []BulkItem `json:"results"`
	TotalFragments   int        `json:"total_fragments"`
	VerifiedCount    int        `json:"verified_count"`
	VerificationRate float64    `json:"verification_rate"`
}

// Bulk verifies every fragment against text, updating the fragments in place
func Bulk(v FragmentVerifier, fragments []model.Fragment, text string) BulkReport {
	rep := BulkReport{
		Results:        make([]BulkItem, 0, len(fragments)),
		TotalFragments: len(fragments),
	}
	for i := range fragments {
		r := v.Verify(fragments[i].Content, text)
		r.Apply(&fragments[i])
		if r.Verified {
			rep.VerifiedCount++
		}
		rep.Results = append(rep.Results, BulkItem{
			FragmentID: fragments[i].ID,
			Verified:   r.Verified,
			Score:      r.Score,
			MatchType:  r.MatchType,
			Start:      r.Start,
			End:        r.End,
		})
	}
	if rep.TotalFragments > 0 {
		rep.VerificationRate = float64(rep.VerifiedCount) / float64(rep.TotalFragments)
	}
	return rep
}
