package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ppiankov/verbatim/internal/model"
)

var (
	// ErrNotFound is returned when a submission or summary does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write
	ErrDuplicate = errors.New("already exists")
	// ErrNotPending is returned when a submission can no longer be claimed for processing
	ErrNotPending = errors.New("submission is not pending")
)

// timeLayout is fixed-width so that stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    original_text TEXT NOT NULL,
    status TEXT NOT NULL,
    error_message TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    processing_started_at TEXT,
    processing_completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);

CREATE TABLE IF NOT EXISTS summaries (
    id TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL REFERENCES submissions(id),
    kind TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (submission_id, kind)
);

CREATE TABLE IF NOT EXISTS fragments (
    id TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL REFERENCES submissions(id),
    kind TEXT NOT NULL,
    content TEXT NOT NULL,
    start_position INTEGER,
    end_position INTEGER,
    verified INTEGER NOT NULL DEFAULT 0,
    similarity_score REAL NOT NULL DEFAULT 0,
    match_type TEXT NOT NULL DEFAULT 'no_match',
    related_sentence TEXT,
    sequence_number INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (submission_id, kind, sequence_number)
);
CREATE INDEX IF NOT EXISTS idx_fragments_submission ON fragments(submission_id, kind);
`

// Store persists submissions, summaries and fragments in SQLite
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers; SQLite allows only one at a time anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug("store opened", zap.String("path", path))
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// CreateSubmission inserts a new submission
func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions(id, original_text, status, error_message, created_at, updated_at, processing_started_at, processing_completed_at)
		 VALUES(?,?,?,?,?,?,?,?)`,
		sub.ID, sub.OriginalText, string(sub.Status), nullString(sub.ErrorMessage),
		formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt),
		nullTime(sub.ProcessingStartedAt), nullTime(sub.ProcessingCompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", classify(err))
	}
	return nil
}

// GetSubmission loads a submission by id
func (s *Store) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, original_text, status, error_message, created_at, updated_at, processing_started_at, processing_completed_at
		 FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// SaveTransition writes a submission's lifecycle fields in a single statement
func (s *Store) SaveTransition(ctx context.Context, sub *model.Submission) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, error_message = ?, processing_started_at = ?, processing_completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(sub.Status), nullString(sub.ErrorMessage),
		nullTime(sub.ProcessingStartedAt), nullTime(sub.ProcessingCompletedAt),
		formatTime(sub.UpdatedAt), sub.ID,
	)
	if err != nil {
		return fmt.Errorf("save transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save transition: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", sub.ID, ErrNotFound)
	}
	s.logger.Debug("submission transition",
		zap.String("submission_id", sub.ID),
		zap.String("status", string(sub.Status)))
	return nil
}

// ClaimProcessing persists a pending -> processing transition.
// Only one caller can claim a given submission; the rest get ErrNotPending.
func (s *Store) ClaimProcessing(ctx context.Context, sub *model.Submission) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, processing_started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(sub.Status), nullTime(sub.ProcessingStartedAt), formatTime(sub.UpdatedAt),
		sub.ID, string(model.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("claim submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim submission: %w", err)
	}
	if n == 0 {
		if _, err := s.GetSubmission(ctx, sub.ID); err != nil {
			return err
		}
		return fmt.Errorf("submission %s: %w", sub.ID, ErrNotPending)
	}
	s.logger.Debug("submission claimed", zap.String("submission_id", sub.ID))
	return nil
}

// ListOptions filters ListSubmissions
type ListOptions struct {
	Limit  int          // <= 0 means no limit
	Status model.Status // Empty means any status
}

// ListSubmissions returns submissions newest first
func (s *Store) ListSubmissions(ctx context.Context, opts ListOptions) ([]*model.Submission, error) {
	query := `SELECT id, original_text, status, error_message, created_at, updated_at, processing_started_at, processing_completed_at
		FROM submissions`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// GetSummary loads the summary of the given kind
func (s *Store) GetSummary(ctx context.Context, submissionID string, kind model.SummaryKind) (*model.Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, submission_id, kind, content, created_at FROM summaries WHERE submission_id = ? AND kind = ?`,
		submissionID, string(kind))

	var (
		sum       model.Summary
		kindStr   string
		createdAt string
	)
	err := row.Scan(&sum.ID, &sum.SubmissionID, &kindStr, &sum.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s summary for %s: %w", kind, submissionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	sum.Kind = model.SummaryKind(kindStr)
	if sum.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &sum, nil
}

// ListFragments returns fragments of the given kind ordered by sequence number.
// An empty kind returns F1 then F2.
func (s *Store) ListFragments(ctx context.Context, submissionID string, kind model.FragmentKind) ([]model.Fragment, error) {
	return listFragments(ctx, s.db, submissionID, kind)
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// fn must use only the Tx it is given.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listFragments(ctx context.Context, q queryer, submissionID string, kind model.FragmentKind) ([]model.Fragment, error) {
	query := `SELECT id, submission_id, kind, content, start_position, end_position, verified,
		similarity_score, match_type, related_sentence, sequence_number, created_at
		FROM fragments WHERE submission_id = ?`
	args := []any{submissionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY kind, sequence_number`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var frags []model.Fragment
	for rows.Next() {
		var (
			f         model.Fragment
			kindStr   string
			matchType string
			start     sql.NullInt64
			end       sql.NullInt64
			related   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.SubmissionID, &kindStr, &f.Content, &start, &end, &f.Verified,
			&f.SimilarityScore, &matchType, &related, &f.SequenceNumber, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.Kind = model.FragmentKind(kindStr)
		f.MatchType = model.MatchType(matchType)
		f.StartPosition = intFromNull(start)
		f.EndPosition = intFromNull(end)
		if related.Valid {
			f.RelatedSentence = &related.String
		}
		if f.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	return frags, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (*model.Submission, error) {
	var (
		sub                  model.Submission
		status               string
		errMsg               sql.NullString
		createdAt, updatedAt string
		started, completed   sql.NullString
	)
	if err := sc.Scan(&sub.ID, &sub.OriginalText, &status, &errMsg, &createdAt, &updatedAt, &started, &completed); err != nil {
		return nil, err
	}
	sub.Status = model.Status(status)
	if errMsg.Valid {
		sub.ErrorMessage = &errMsg.String
	}

	var err error
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if sub.ProcessingStartedAt, err = parseNullTime(started); err != nil {
		return nil, err
	}
	if sub.ProcessingCompletedAt, err = parseNullTime(completed); err != nil {
		return nil, err
	}
	return &sub, nil
}

// classify maps driver constraint errors onto package sentinels
func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
