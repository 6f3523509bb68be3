package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pharmatext/csrgen/internal/models"
)

// ErrInvalidConfiguration indicates the loop was constructed with options
// that fail validation (e.g. max iterations below one). No evaluator or
// reviser call is made in that case.
var ErrInvalidConfiguration = errors.New("invalid loop configuration")

// Phase identifies the pipeline stage where an error occurred.
type Phase int

const (
	// PhaseExtract covers structured-content extraction from clinical data.
	PhaseExtract Phase = iota
	// PhaseCompose covers initial document composition (v0).
	PhaseCompose
	// PhaseEvaluate covers completeness/compliance evaluation.
	PhaseEvaluate
	// PhaseRevise covers document revision.
	PhaseRevise
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseExtract:
		return "extract"
	case PhaseCompose:
		return "compose"
	case PhaseEvaluate:
		return "evaluate"
	case PhaseRevise:
		return "revise"
	default:
		return "unknown"
	}
}

// EmptyDocumentError indicates a document resolved to blank text. Evaluating
// an empty document is an input error, not a low score.
type EmptyDocumentError struct {
	Path string
}

// Error implements the error interface for EmptyDocumentError.
func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("document is empty: %s", e.Path)
}

// TimeoutError represents a generation call that exceeded its deadline
// during a specific pipeline phase.
type TimeoutError struct {
	Phase     Phase
	Rubric    string // set for evaluation timeouts
	Duration  time.Duration
	Timestamp time.Time
}

// NewTimeoutError creates a TimeoutError with the current timestamp.
func NewTimeoutError(phase Phase, rubric string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		Phase:     phase,
		Rubric:    rubric,
		Duration:  duration,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s timed out", e.Phase))
	if e.Rubric != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Rubric))
	}
	if e.Duration > 0 {
		sb.WriteString(fmt.Sprintf(" after %v", e.Duration))
	}
	return sb.String()
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// LoopError is the terminal failure state of the improvement loop. It is
// distinguishable from normal termination and carries the partial score
// history accumulated before the failure for diagnostic reporting.
type LoopError struct {
	Phase     Phase
	Iteration int // 0 when the failure precedes the first iteration
	History   []models.IterationRecord
	Err       error
}

// Error implements the error interface for LoopError.
func (e *LoopError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("improvement loop aborted in %s phase", e.Phase))
	if e.Iteration > 0 {
		sb.WriteString(fmt.Sprintf(" at iteration %d", e.Iteration))
	}
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *LoopError) Unwrap() error {
	return e.Err
}

// IsEmptyDocumentError checks if the error is or wraps an EmptyDocumentError.
func IsEmptyDocumentError(err error) bool {
	var ede *EmptyDocumentError
	return errors.As(err, &ede)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError or
// context.DeadlineExceeded.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// wrapTimeout converts deadline errors into phase-tagged TimeoutErrors and
// leaves everything else untouched.
func wrapTimeout(err error, phase Phase, rubric string, budget time.Duration) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(phase, rubric, budget)
	}
	return err
}
