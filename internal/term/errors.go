package term

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an operation against an id absent from the
	// registry.
	ErrNotFound = errors.New("terminal not found")
	// ErrNotRunning reports a send or interrupt against a session whose
	// process has already exited.
	ErrNotRunning = errors.New("terminal is not running")
)

// SpawnError wraps a failed PTY or process allocation.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn terminal: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// WriteError reports a failed or partial write to the PTY input side,
// including the number of bytes actually written.
type WriteError struct {
	Written int
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("terminal write failed after %d bytes: %v", e.Written, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
