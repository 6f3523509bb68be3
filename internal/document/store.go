package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Store reads and writes plain-text documents on the local filesystem.
// Reads are idempotent; writes are atomic (temp file + rename) and version
// paths are write-once. The zero value is ready to use.
type Store struct{}

// NewStore creates a document Store.
func NewStore() *Store {
	return &Store{}
}

// Read resolves a document path to its text content.
// Supported formats are Markdown and plain text; anything that does not
// decode as UTF-8 text fails with a ParseError.
func (s *Store) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &NotFoundError{Path: path}
		}
		return "", &ParseError{Path: path, Err: err}
	}

	if !utf8.Valid(data) {
		return "", &ParseError{Path: path, Err: fmt.Errorf("content is not valid UTF-8 text")}
	}

	return string(data), nil
}

// Write persists text at path, creating parent directories as needed.
// Writing to an existing path fails with a VersionExistsError: version paths
// are write-once so a partial rewrite can never be mistaken for a valid
// prior version.
//
// The write itself goes through a temp file in the target directory followed
// by a rename, so readers never observe a half-written document.
func (s *Store) Write(path, text string) error {
	if _, err := os.Stat(path); err == nil {
		return &VersionExistsError{Path: path}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.WriteString(text); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Rename is atomic within the same filesystem. The existence check above
	// makes the path write-once for cooperating writers; cross-process
	// exclusion is handled by the run lock on the output directory.
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}

// IsBlank reports whether text contains no non-whitespace content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
