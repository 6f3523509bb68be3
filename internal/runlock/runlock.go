// Package runlock serializes pipeline runs over an output directory.
// Version paths are write-once; a second process writing into the same
// directory could race the existence checks, so runs take an exclusive
// advisory lock for their duration.
package runlock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName is the advisory lock file created inside the output directory.
const lockFileName = ".csrgen.lock"

// Lock is a held run lock on an output directory.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes the run lock for dir without blocking. It fails immediately
// when another run holds the lock, so two pipelines can never interleave
// writes to the same version files.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, lockFileName)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock on %s: %w", path, err)
	}
	if !acquired {
		return nil, fmt.Errorf("another run is already in progress in %s", dir)
	}

	return &Lock{flock: fl, path: path}, nil
}

// Release releases the run lock.
func (l *Lock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release run lock on %s: %w", l.path, err)
	}
	return nil
}
