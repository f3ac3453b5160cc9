package model

import "time"

// Results is the compiled view of a submission and everything generated for it
type Results struct {
	SubmissionID          string              `json:"submission_id"`
	Status                Status              `json:"status"`
	CreatedAt             time.Time           `json:"created_at"`
	ProcessingStartedAt   *time.Time          `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time          `json:"processing_completed_at"`
	ErrorMessage          *string             `json:"error_message,omitempty"`
	OriginalText          string              `json:"original_text"`
	Summaries             SummariesView       `json:"summaries"`
	Fragments             FragmentsView       `json:"fragments"`
	VerificationSummary   VerificationSummary `json:"verification_summary"`
}

// SummariesView holds the S1 and S2 summaries, each possibly absent
type SummariesView struct {
	S1 SummaryView `json:"S1"`
	S2 SummaryView `json:"S2"`
}

// SummaryView is a summary as reported in results; both fields are nil when absent
type SummaryView struct {
	Content   *string    `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

// NewSummaryView builds a view from a stored summary (nil-safe)
func NewSummaryView(s *Summary) SummaryView {
	if s == nil {
		return SummaryView{}
	}
	content := s.Content
	created := s.CreatedAt
	return SummaryView{Content: &content, CreatedAt: &created}
}

// FragmentsView holds both fragment sets ordered by sequence number
type FragmentsView struct {
	F1 []FragmentView `json:"F1"`
	F2 []FragmentView `json:"F2"`
}

// FragmentView is a fragment as reported in results
type FragmentView struct {
	ID              string    `json:"id"`
	SequenceNumber  int       `json:"sequence_number"`
	Content         string    `json:"content"`
	RelatedSentence *string   `json:"related_sentence,omitempty"`
	Verified        bool      `json:"verified"`
	SimilarityScore float64   `json:"similarity_score"`
	MatchType       MatchType `json:"match_type"`
	StartPosition   *int      `json:"start_position"`
	EndPosition     *int      `json:"end_position"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewFragmentView converts a stored fragment
func NewFragmentView(f Fragment) FragmentView {
	return FragmentView{
		ID:              f.ID,
		SequenceNumber:  f.SequenceNumber,
		Content:         f.Content,
		RelatedSentence: f.RelatedSentence,
		Verified:        f.Verified,
		SimilarityScore: f.SimilarityScore,
		MatchType:       f.MatchType,
		StartPosition:   f.StartPosition,
		EndPosition:     f.EndPosition,
		CreatedAt:       f.CreatedAt,
	}
}

// VerificationSummary aggregates verification counts and rates
type VerificationSummary struct {
	F1Total                 int     `json:"F1_total"`
	F1Verified              int     `json:"F1_verified"`
	F1VerificationRate      float64 `json:"F1_verification_rate"`
	F2Total                 int     `json:"F2_total"`
	F2Verified              int     `json:"F2_verified"`
	F2VerificationRate      float64 `json:"F2_verification_rate"`
	OverallVerificationRate float64 `json:"overall_verification_rate"`
}

// NewVerificationSummary computes counts and rates over the given fragments.
// Rates are 0 when there is nothing to divide by.
func NewVerificationSummary(fragments []Fragment) VerificationSummary {
	var vs VerificationSummary
	for _, f := range fragments {
		switch f.Kind {
		case FragmentF1:
			vs.F1Total++
			if f.Verified {
				vs.F1Verified++
			}
		case FragmentF2:
			vs.F2Total++
			if f.Verified {
				vs.F2Verified++
			}
		}
	}
	vs.F1VerificationRate = rate(vs.F1Verified, vs.F1Total)
	vs.F2VerificationRate = rate(vs.F2Verified, vs.F2Total)
	vs.OverallVerificationRate = rate(vs.F1Verified+vs.F2Verified, vs.F1Total+vs.F2Total)
	return vs
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// StatusView is the status document returned while a submission is being processed
type StatusView struct {
	SubmissionID          string     `json:"submission_id"`
	Status                Status     `json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`
	ErrorMessage          *string    `json:"error_message"`
}

// NewStatusView builds a status document from a submission
func NewStatusView(s *Submission) StatusView {
	return StatusView{
		SubmissionID:          s.ID,
		Status:                s.Status,
		CreatedAt:             s.CreatedAt,
		ProcessingStartedAt:   s.ProcessingStartedAt,
		ProcessingCompletedAt: s.ProcessingCompletedAt,
		ErrorMessage:          s.ErrorMessage,
	}
}

// SubmissionListItem is one row of the submission listing
type SubmissionListItem struct {
	SubmissionID          string     `json:"submission_id"`
	Status                Status     `json:"status"`
	CreatedAt             time.Time  `json:"created_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`
	TextPreview           string     `json:"text_preview"`
	ErrorMessage          *string    `json:"error_message"`
}

// NewSubmissionListItem builds a listing row with a 100-rune preview
func NewSubmissionListItem(s *Submission) SubmissionListItem {
	return SubmissionListItem{
		SubmissionID:          s.ID,
		Status:                s.Status,
		CreatedAt:             s.CreatedAt,
		ProcessingStartedAt:   s.ProcessingStartedAt,
		ProcessingCompletedAt: s.ProcessingCompletedAt,
		TextPreview:           s.Preview(100),
		ErrorMessage:          s.ErrorMessage,
	}
}
