package screening

import (
	"fmt"
	"strings"
)

// ValidationError is returned for malformed or incomplete ingress requests.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: missing or invalid fields: %s", strings.Join(e.Fields, ", "))
}

// SecurityViolation is a content inspection rejection.
type SecurityViolation struct {
	Reason string
}

func (e *SecurityViolation) Error() string {
	return fmt.Sprintf("security violation: %s", e.Reason)
}

// StageUnavailable reports a downstream stage that could not be reached,
// timed out or answered with an error.
type StageUnavailable struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *StageUnavailable) Error() string {
	return fmt.Sprintf("stage %s unavailable after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageUnavailable) Unwrap() error { return e.Err }

// StorageCorruption reports persisted audit state that could not be parsed.
type StorageCorruption struct {
	Path string
	Err  error
}

func (e *StorageCorruption) Error() string {
	return fmt.Sprintf("audit storage %q is corrupted: %v", e.Path, e.Err)
}

func (e *StorageCorruption) Unwrap() error { return e.Err }
