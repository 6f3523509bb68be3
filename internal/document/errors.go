package document

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the requested document does not exist.
type NotFoundError struct {
	Path string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.Path)
}

// ParseError indicates a document exists but could not be read or decoded.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse document %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// VersionExistsError indicates a write was attempted to a version path that
// already holds a document. Version paths are write-once: each document
// version is immutable once produced.
type VersionExistsError struct {
	Path string
}

// Error implements the error interface for VersionExistsError.
func (e *VersionExistsError) Error() string {
	return fmt.Sprintf("document version already exists (version paths are write-once): %s", e.Path)
}

// IsNotFound checks if the error is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsVersionExists checks if the error is or wraps a VersionExistsError.
func IsVersionExists(err error) bool {
	var ve *VersionExistsError
	return errors.As(err, &ve)
}
