package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrTerminalState is returned when a transition is attempted from completed or failed
var ErrTerminalState = errors.New("submission is in a terminal state")

// Status is the lifecycle state of a submission
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus converts a wire value into a Status
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q", v)
	}
	return s, nil
}

// Submission is one source text and its processing lifecycle
type Submission struct {
	ID                    string     `json:"id"`
	OriginalText          string     `json:"original_text"`
	Status                Status     `json:"status"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
}

// NewSubmission creates a pending submission
func NewSubmission(id, text string, now time.Time) *Submission {
	return &Submission{
		ID:           id,
		OriginalText: text,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Start moves the submission into processing.
// Calling Start on a submission that is already processing refreshes nothing.
func (s *Submission) Start(now time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("start %s: %w", s.Status, ErrTerminalState)
	}
	if s.Status == StatusProcessing {
		return nil
	}
	s.Status = StatusProcessing
	s.ProcessingStartedAt = &now
	s.UpdatedAt = now
	return nil
}

// Complete marks the submission completed
func (s *Submission) Complete(now time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("complete %s: %w", s.Status, ErrTerminalState)
	}
	s.Status = StatusCompleted
	s.ProcessingCompletedAt = &now
	s.UpdatedAt = now
	return nil
}

// Fail marks the submission failed with the given message
func (s *Submission) Fail(message string, now time.Time) error {
	if s.Status.Terminal() {
		return fmt.Errorf("fail %s: %w", s.Status, ErrTerminalState)
	}
	s.Status = StatusFailed
	s.ErrorMessage = &message
	s.ProcessingCompletedAt = &now
	s.UpdatedAt = now
	return nil
}

// Preview returns the first n runes of the original text, with "..." when truncated
func (s *Submission) Preview(n int) string {
	r := []rune(s.OriginalText)
	if len(r) <= n {
		return s.OriginalText
	}
	return string(r[:n]) + "..."
}
