package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/verbatim/internal/model"
	"github.com/ppiankov/verbatim/internal/store"
	"github.com/ppiankov/verbatim/internal/validate"
	"github.com/ppiankov/verbatim/internal/verify"
)

// Store is the persistence the pipeline needs; *store.Store implements it
type Store interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	SaveTransition(ctx context.Context, sub *model.Submission) error
	ClaimProcessing(ctx context.Context, sub *model.Submission) error
	GetSummary(ctx context.Context, submissionID string, kind model.SummaryKind) (*model.Summary, error)
	ListFragments(ctx context.Context, submissionID string, kind model.FragmentKind) ([]model.Fragment, error)
	WithTx(ctx context.Context, fn func(*store.Tx) error) error
}

// Generator produces the summaries and fragments; *llm.Generator implements it
type Generator interface {
	GeneratePrimarySummary(ctx context.Context, text string) (string, error)
	ExtractFragments(ctx context.Context, text string) ([]string, error)
	GenerateSecondarySummary(ctx context.Context, fragments []string) (string, error)
	ExtractJustification(ctx context.Context, original, sentence string) (string, error)
}

// Pipeline orchestrates generation, verification and persistence for submissions
type Pipeline struct {
	store     Store
	gen       Generator
	verifier  verify.FragmentVerifier
	validator *validate.Validator
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithVerifier replaces the scored verifier used during stages
func WithVerifier(v verify.FragmentVerifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithValidator sets the input validator
func WithValidator(v *validate.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// NewPipeline creates a pipeline over a store and a generator
func NewPipeline(st Store, gen Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		gen:       gen,
		verifier:  verify.NewVerifier(),
		validator: validate.New(),
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit validates text and stores it as a pending submission
func (p *Pipeline) Submit(ctx context.Context, text string) (*model.Submission, error) {
	clean, err := p.validator.Text(text)
	if err != nil {
		return nil, err
	}

	sub := model.NewSubmission(uuid.NewString(), clean, p.now())
	if err := p.store.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	p.logger.Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.Int("text_length", len([]rune(clean))))
	return sub, nil
}

// Process runs every stage for a submission and returns the compiled results.
// On a stage failure the submission is marked failed and a *StageError is returned.
func (p *Pipeline) Process(ctx context.Context, submissionID string) (*model.Results, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if sub.Status == model.StatusProcessing {
		return nil, fmt.Errorf("process %s: %w", submissionID, ErrInProgress)
	}
	if err := sub.Start(p.now()); err != nil {
		return nil, fmt.Errorf("start %s: %w", submissionID, err)
	}
	if err := p.store.ClaimProcessing(ctx, sub); err != nil {
		return nil, fmt.Errorf("process %s: %w", submissionID, err)
	}

	log := p.logger.With(zap.String("submission_id", sub.ID))
	started := time.Now()
	log.Info("processing started")

	steps := []struct {
		stage Stage
		run   func(context.Context, *model.Submission) error
	}{
		{StageS1, func(ctx context.Context, s *model.Submission) error { _, err := p.runS1(ctx, s); return err }},
		{StageF1, func(ctx context.Context, s *model.Submission) error { _, err := p.runF1(ctx, s); return err }},
		{StageS2, func(ctx context.Context, s *model.Submission) error { _, err := p.runS2(ctx, s); return err }},
		{StageF2, func(ctx context.Context, s *model.Submission) error { _, err := p.runF2(ctx, s); return err }},
	}

	for _, step := range steps {
		stageStart := time.Now()
		if err := step.run(ctx, sub); err != nil {
			return nil, p.fail(ctx, sub, step.stage, err)
		}
		log.Debug("stage completed",
			zap.String("stage", string(step.stage)),
			zap.Duration("duration", time.Since(stageStart)))
	}

	summary, err := p.verificationSummary(ctx, sub.ID)
	if err != nil {
		return nil, p.fail(ctx, sub, StageFinalize, err)
	}

	if err := sub.Complete(p.now()); err != nil {
		return nil, fmt.Errorf("complete %s: %w", sub.ID, err)
	}
	if err := p.store.SaveTransition(ctx, sub); err != nil {
		return nil, fmt.Errorf("save transition: %w", err)
	}

	log.Info("processing completed",
		zap.Duration("duration", time.Since(started)),
		zap.Float64("overall_verification_rate", summary.OverallVerificationRate))

	return p.CompileResults(ctx, sub.ID)
}

// fail marks the submission failed once and wraps err in a StageError.
// The transition is saved even when ctx is already cancelled.
func (p *Pipeline) fail(ctx context.Context, sub *model.Submission, stage Stage, err error) error {
	p.logger.Error("processing failed",
		zap.String("submission_id", sub.ID),
		zap.String("stage", string(stage)),
		zap.Error(err))

	if ferr := sub.Fail(err.Error(), p.now()); ferr == nil {
		if serr := p.store.SaveTransition(context.WithoutCancel(ctx), sub); serr != nil {
			p.logger.Error("save failed status",
				zap.String("submission_id", sub.ID),
				zap.Error(serr))
		}
	}
	return &StageError{Stage: stage, Err: err}
}

// CompileResults assembles everything stored for a submission
func (p *Pipeline) CompileResults(ctx context.Context, submissionID string) (*model.Results, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	s1, err := p.optionalSummary(ctx, sub.ID, model.SummaryS1)
	if err != nil {
		return nil, err
	}
	s2, err := p.optionalSummary(ctx, sub.ID, model.SummaryS2)
	if err != nil {
		return nil, err
	}

	f1, err := p.store.ListFragments(ctx, sub.ID, model.FragmentF1)
	if err != nil {
		return nil, fmt.Errorf("list F1: %w", err)
	}
	f2, err := p.store.ListFragments(ctx, sub.ID, model.FragmentF2)
	if err != nil {
		return nil, fmt.Errorf("list F2: %w", err)
	}

	res := &model.Results{
		SubmissionID:          sub.ID,
		Status:                sub.Status,
		CreatedAt:             sub.CreatedAt,
		ProcessingStartedAt:   sub.ProcessingStartedAt,
		ProcessingCompletedAt: sub.ProcessingCompletedAt,
		ErrorMessage:          sub.ErrorMessage,
		OriginalText:          sub.OriginalText,
		Summaries: model.SummariesView{
			S1: model.NewSummaryView(s1),
			S2: model.NewSummaryView(s2),
		},
		Fragments: model.FragmentsView{
			F1: make([]model.FragmentView, 0, len(f1)),
			F2: make([]model.FragmentView, 0, len(f2)),
		},
		VerificationSummary: model.NewVerificationSummary(append(append([]model.Fragment{}, f1...), f2...)),
	}
	for _, f := range f1 {
		res.Fragments.F1 = append(res.Fragments.F1, model.NewFragmentView(f))
	}
	for _, f := range f2 {
		res.Fragments.F2 = append(res.Fragments.F2, model.NewFragmentView(f))
	}
	return res, nil
}

// Reverify re-scores every stored fragment with the verifier for mode and
// writes the outcomes back in one transaction. Status is left unchanged.
func (p *Pipeline) Reverify(ctx context.Context, submissionID string, mode verify.Mode) (*verify.BulkReport, error) {
	sub, err := p.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	fragments, err := p.store.ListFragments(ctx, sub.ID, "")
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}

	report := verify.Bulk(verify.ForMode(mode), fragments, sub.OriginalText)

	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		for i := range fragments {
			if err := tx.UpdateVerification(ctx, &fragments[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save verification: %w", err)
	}

	p.logger.Info("fragments reverified",
		zap.String("submission_id", sub.ID),
		zap.String("mode", string(mode)),
		zap.Int("total", report.TotalFragments),
		zap.Int("verified", report.VerifiedCount))
	return &report, nil
}

func (p *Pipeline) verificationSummary(ctx context.Context, submissionID string) (model.VerificationSummary, error) {
	fragments, err := p.store.ListFragments(ctx, submissionID, "")
	if err != nil {
		return model.VerificationSummary{}, fmt.Errorf("list fragments: %w", err)
	}
	return model.NewVerificationSummary(fragments), nil
}

func (p *Pipeline) optionalSummary(ctx context.Context, submissionID string, kind model.SummaryKind) (*model.Summary, error) {
	s, err := p.store.GetSummary(ctx, submissionID, kind)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	return s, nil
}
