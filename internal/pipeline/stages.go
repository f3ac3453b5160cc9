package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/extract"
	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/store"
	"github.com/ppiankov/verbatim/internal/verify"
)

// Stage names one step of processing
type Stage string

const (
	StageS1       Stage = "S1"
	StageF1       Stage = "F1"
	StageS2       Stage = "S2"
	StageF2       Stage = "F2"
	StageFinalize Stage = "finalize"
)

// ParseStage accepts s1|f1|s2|f2|finalize in any case
func ParseStage(v string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "s1":
		return StageS1, nil
	case "f1":
		return StageF1, nil
	case "s2":
		return StageS2, nil
	case "f2":
		return StageF2, nil
	case "finalize":
		return StageFinalize, nil
	}
	return "", fmt.Errorf("unknown stage %q (expected s1, f1, s2, f2 or finalize)", v)
}

// StageOutput carries whatever a progressive stage produced
type StageOutput struct {
	Stage        Stage                      `json:"stage"`
	SubmissionID string                     `json:"submission_id"`
	Summary      *model.Summary             `json:"summary,omitempty"`
	Fragments    []model.Fragment           `json:"fragments,omitempty"`
	Verification *model.VerificationSummary `json:"verification_summary,omitempty"`
}

// RunStage dispatches one progressive stage
func (p *Pipeline) RunStage(ctx context.Context, submissionID string, stage Stage) (*StageOutput, error) {
	out := &StageOutput{Stage: stage, SubmissionID: submissionID}
	var err error

	switch stage {
	case StageS1:
		out.Summary, err = p.GenerateS1(ctx, submissionID)
	case StageF1:
		out.Fragments, err = p.ExtractF1(ctx, submissionID)
	case StageS2:
		out.Summary, err = p.GenerateS2(ctx, submissionID)
	case StageF2:
		out.Fragments, err = p.ExtractF2(ctx, submissionID)
	case StageFinalize:
		out.Verification, err = p.FinalizeVerification(ctx, submissionID)
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateS1 generates and stores the primary summary
func (p *Pipeline) GenerateS1(ctx context.Context, submissionID string) (*model.Summary, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return p.runS1(ctx, sub)
}

// ExtractF1 extracts, stores and verifies the key fragments
func (p *Pipeline) ExtractF1(ctx context.Context, submissionID string) ([]model.Fragment, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return p.runF1(ctx, sub)
}

// GenerateS2 summarizes the stored F1 fragments. Without F1 it returns ErrPrecondition.
func (p *Pipeline) GenerateS2(ctx context.Context, submissionID string) (*model.Summary, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return p.runS2(ctx, sub)
}

// ExtractF2 finds a justification for every S1 sentence. Without S1 it returns ErrPrecondition.
func (p *Pipeline) ExtractF2(ctx context.Context, submissionID string) ([]model.Fragment, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return p.runF2(ctx, sub)
}

// FinalizeVerification computes the verification summary over stored
// fragments and marks the submission completed. Finalizing a completed
// submission again only recomputes the summary.
func (p *Pipeline) FinalizeVerification(ctx context.Context, submissionID string) (*model.VerificationSummary, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	summary, err := p.verificationSummary(ctx, sub.ID)
	if err != nil {
		return nil, err
	}

	if sub.Status != model.StatusCompleted {
		if err := sub.Complete(p.now()); err != nil {
			return nil, fmt.Errorf("complete %s: %w", sub.ID, err)
		}
		if err := p.store.SaveTransition(ctx, sub); err != nil {
			return nil, fmt.Errorf("save transition: %w", err)
		}
	}

	p.logger.Info("verification finalized",
		zap.String("submission_id", sub.ID),
		zap.Int("F1_total", summary.F1Total),
		zap.Int("F2_total", summary.F2Total),
		zap.Float64("overall_verification_rate", summary.OverallVerificationRate))
	return &summary, nil
}

func (p *Pipeline) runS1(ctx context.Context, sub *model.Submission) (*model.Summary, error) {
	content, err := p.gen.GeneratePrimarySummary(ctx, sub.OriginalText)
	if err != nil {
		return nil, err
	}
	return p.saveSummary(ctx, sub.ID, model.SummaryS1, content)
}

func (p *Pipeline) runS2(ctx context.Context, sub *model.Submission) (*model.Summary, error) {
	f1, err := p.store.ListFragments(ctx, sub.ID, model.FragmentF1)
	if err != nil {
		return nil, fmt.Errorf("list F1: %w", err)
	}
	if len(f1) == 0 {
		return nil, fmt.Errorf("S2 needs F1 fragments: %w", ErrPrecondition)
	}

	contents := make([]string, len(f1))
	for i, f := range f1 {
		contents[i] = f.Content
	}

	content, err := p.gen.GenerateSecondarySummary(ctx, contents)
	if err != nil {
		return nil, err
	}
	return p.saveSummary(ctx, sub.ID, model.SummaryS2, content)
}

func (p *Pipeline) saveSummary(ctx context.Context, submissionID string, kind model.SummaryKind, content string) (*model.Summary, error) {
	sum := &model.Summary{
		SubmissionID: submissionID,
		Kind:         kind,
		Content:      content,
		CreatedAt:    p.now(),
	}
	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.CreateSummary(ctx, sum)
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

func (p *Pipeline) runF1(ctx context.Context, sub *model.Submission) ([]model.Fragment, error) {
	contents, err := p.gen.ExtractFragments(ctx, sub.OriginalText)
	if err != nil {
		return nil, err
	}

	items := make([]fragmentInput, len(contents))
	for i, c := range contents {
		items[i] = fragmentInput{content: c, verify: true}
	}
	return p.saveFragments(ctx, sub, model.FragmentF1, items)
}

// justification is the tagged outcome of one F2 generation call
type justification struct {
	Sentence string
	Content  string
	Err      error
}

func (p *Pipeline) runF2(ctx context.Context, sub *model.Submission) ([]model.Fragment, error) {
	s1, err := p.store.GetSummary(ctx, sub.ID, model.SummaryS1)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("F2 needs an S1 summary: %w", ErrPrecondition)
	}
	if err != nil {
		return nil, fmt.Errorf("get S1: %w", err)
	}

	sentences := extract.SplitSentences(s1.Content)
	results := make([]justification, 0, len(sentences))
	for _, sentence := range sentences {
		quote, err := p.gen.ExtractJustification(ctx, sub.OriginalText, sentence)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		results = append(results, justification{Sentence: sentence, Content: quote, Err: err})
	}

	items := make([]fragmentInput, len(results))
	for i, j := range results {
		sentence := j.Sentence
		item := fragmentInput{content: j.Content, relatedSentence: &sentence, verify: true}
		if j.Err != nil {
			p.logger.Warn("justification failed",
				zap.String("submission_id", sub.ID),
				zap.Int("sentence", i+1),
				zap.Error(j.Err))
			item.content = fmt.Sprintf("[Error extracting justification: %v]", j.Err)
			item.verify = false
		}
		items[i] = item
	}
	return p.saveFragments(ctx, sub, model.FragmentF2, items)
}

type fragmentInput struct {
	content         string
	relatedSentence *string
	verify          bool
}

// saveFragments creates and verifies a stage's fragments in one transaction,
// numbering them after any fragments of the same kind already stored.
func (p *Pipeline) saveFragments(ctx context.Context, sub *model.Submission, kind model.FragmentKind, items []fragmentInput) ([]model.Fragment, error) {
	now := p.now()
	out := make([]model.Fragment, len(items))

	err := p.store.WithTx(ctx, func(tx *store.Tx) error {
		next, err := tx.NextSequence(ctx, sub.ID, kind)
		if err != nil {
			return err
		}

		for i, item := range items {
			f := model.Fragment{
				SubmissionID:    sub.ID,
				Kind:            kind,
				Content:         item.content,
				RelatedSentence: item.relatedSentence,
				SequenceNumber:  next + i,
				MatchType:       model.MatchNone,
				CreatedAt:       now,
			}
			if err := tx.CreateFragment(ctx, &f); err != nil {
				return err
			}

			if item.verify {
				p.verifier.Verify(f.Content, sub.OriginalText).Apply(&f)
			} else {
				verify.NoMatch().Apply(&f)
			}
			if err := tx.UpdateVerification(ctx, &f); err != nil {
				return err
			}
			out[i] = f
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save %s fragments: %w", kind, err)
	}
	return out, nil
}
