package pipeline

import (
	"errors"
	"fmt"

	"github.com/ppiankov/verbatim/internal/store"
)

var (
	// ErrNotFound is returned for an unknown submission id
	ErrNotFound = store.ErrNotFound

	// ErrPrecondition is returned when a progressive stage runs before its inputs exist
	ErrPrecondition = errors.New("stage precondition not met")

	// ErrInProgress is returned when a full run is requested for a submission that is not pending
	ErrInProgress = store.ErrNotPending
)

// StageError reports which stage of a full run failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
