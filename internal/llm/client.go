// Package llm provides the text-generation client used by every pipeline
// component. The concrete client is selected at construction time; no
// component branches on provider at runtime.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single text-generation request: a system-style instruction
// plus a user-style payload, with optional reference material.
type Request struct {
	// Instructions is the rubric- or role-specific system instruction.
	Instructions string

	// Input is the subject payload, typically the document text plus any
	// task-specific framing.
	Input string

	// Reference is optional supporting material (e.g. a sample report or a
	// regulatory checklist) appended to the payload.
	Reference string
}

// Client generates text for a request. Implementations must be safe for
// concurrent use: the two evaluators may call Generate simultaneously.
type Client interface {
	// Generate returns the generated text for the request.
	// Blocking; honors ctx cancellation and deadlines.
	Generate(ctx context.Context, req Request) (string, error)

	// Model returns the configured model identifier.
	Model() string
}

// APIError is a non-2xx response from the generation endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("generation service returned status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Temporary reports whether the failure is worth retrying: rate limiting
// and server-side errors are transient, client errors are not.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsTemporary reports whether err represents a transient transport failure
// that a retrying caller may attempt again.
func IsTemporary(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var tempErr interface{ Temporary() bool }
	if errors.As(err, &tempErr) {
		return tempErr.Temporary()
	}
	return false
}

// truncate returns s truncated to maxLen characters with "..." suffix if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
