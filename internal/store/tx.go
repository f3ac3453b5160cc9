package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ppiankov/verbatim/internal/model"
)

// Tx is the write scope of a single pipeline stage
type Tx struct {
	tx *sql.Tx
}

// CreateSummary inserts a summary, assigning an id when empty.
// A second summary of the same kind for a submission fails with ErrDuplicate.
func (t *Tx) CreateSummary(ctx context.Context, sum *model.Summary) error {
	if sum.ID == "" {
		sum.ID = uuid.NewString()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO summaries(id, submission_id, kind, content, created_at) VALUES(?,?,?,?,?)`,
		sum.ID, sum.SubmissionID, string(sum.Kind), sum.Content, formatTime(sum.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert %s summary: %w", sum.Kind, classify(err))
	}
	return nil
}

// CreateFragment inserts a fragment, assigning an id when empty
func (t *Tx) CreateFragment(ctx context.Context, f *model.Fragment) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.MatchType == "" {
		f.MatchType = model.MatchNone
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO fragments(id, submission_id, kind, content, start_position, end_position, verified,
			similarity_score, match_type, related_sentence, sequence_number, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.SubmissionID, string(f.Kind), f.Content, nullInt(f.StartPosition), nullInt(f.EndPosition),
		f.Verified, f.SimilarityScore, string(f.MatchType), nullString(f.RelatedSentence),
		f.SequenceNumber, formatTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert %s fragment %d: %w", f.Kind, f.SequenceNumber, classify(err))
	}
	return nil
}

// UpdateVerification writes back a fragment's verification outcome
func (t *Tx) UpdateVerification(ctx context.Context, f *model.Fragment) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE fragments SET start_position = ?, end_position = ?, verified = ?, similarity_score = ?, match_type = ?
		 WHERE id = ?`,
		nullInt(f.StartPosition), nullInt(f.EndPosition), f.Verified, f.SimilarityScore, string(f.MatchType), f.ID)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("fragment %s: %w", f.ID, ErrNotFound)
	}
	return nil
}

// NextSequence returns the next free sequence number for (submission, kind), starting at 1
func (t *Tx) NextSequence(ctx context.Context, submissionID string, kind model.FragmentKind) (int, error) {
	var last sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		`SELECT MAX(sequence_number) FROM fragments WHERE submission_id = ? AND kind = ?`,
		submissionID, string(kind)).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return int(last.Int64) + 1, nil
}

// ListFragments reads fragments within the transaction
func (t *Tx) ListFragments(ctx context.Context, submissionID string, kind model.FragmentKind) ([]model.Fragment, error) {
	return listFragments(ctx, t.tx, submissionID, kind)
}
