package model

import "time"

// SummaryKind distinguishes the two generated summaries
type SummaryKind string

const (
	SummaryS1 SummaryKind = "S1" // Summary of the original text
	SummaryS2 SummaryKind = "S2" // Summary of the F1 fragments
)

// FragmentKind distinguishes the two fragment sets
type FragmentKind string

const (
	FragmentF1 FragmentKind = "F1" // Key fragments quoted from the original
	FragmentF2 FragmentKind = "F2" // Justifications for each S1 sentence
)

// MatchType records which verification tier produced a fragment's score
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchCaseInsensitive MatchType = "case_insensitive"
	MatchPartial         MatchType = "partial"
	MatchWordOverlap     MatchType = "word_overlap"
	MatchNone            MatchType = "no_match"
)

// Summary is a generated summary attached to a submission
type Summary struct {
	ID           string      `json:"id"`
	SubmissionID string      `json:"submission_id"`
	Kind         SummaryKind `json:"kind"`
	Content      string      `json:"content"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Fragment is a claimed quotation and its verification outcome
type Fragment struct {
	ID              string       `json:"id"`
	SubmissionID    string       `json:"submission_id"`
	Kind            FragmentKind `json:"kind"`
	Content         string       `json:"content"`
	StartPosition   *int         `json:"start_position,omitempty"` // Byte offset into the original text
	EndPosition     *int         `json:"end_position,omitempty"`   // Exclusive byte offset
	Verified        bool         `json:"verified"`
	SimilarityScore float64      `json:"similarity_score"` // 0-100
	MatchType       MatchType    `json:"match_type"`
	RelatedSentence *string      `json:"related_sentence,omitempty"` // S1 sentence, F2 only
	SequenceNumber  int          `json:"sequence_number"`            // 1-based within (submission, kind)
	CreatedAt       time.Time    `json:"created_at"`
}
