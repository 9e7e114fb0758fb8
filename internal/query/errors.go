package query

import (
	"errors"
	"fmt"
)

// FormatError reports a cache record that cannot be decoded or that fails
// structural validation. The two categories matter to callers: corrupt
// records are skipped with a warning during a cache load, while a version
// mismatch means the record was written by a newer preflight and the fix is
// an upgrade, not a re-prepare.
type FormatError struct {
	// Code identifies the failure category.
	Code FormatErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// FormatErrorCode categorizes record format failures.
type FormatErrorCode string

const (
	// ErrCodeCorrupt indicates the record is not valid JSON or violates a
	// structural invariant.
	ErrCodeCorrupt FormatErrorCode = "CORRUPT_RECORD"

	// ErrCodeVersionMismatch indicates the record's schema_version is newer
	// than this build understands.
	ErrCodeVersionMismatch FormatErrorCode = "VERSION_MISMATCH"
)

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsCorrupt returns true if the error is a corrupt record error.
// Uses errors.As to handle wrapped errors.
func IsCorrupt(err error) bool {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeCorrupt
	}
	return false
}

// IsVersionMismatch returns true if the error is a schema version mismatch.
// Uses errors.As to handle wrapped errors.
func IsVersionMismatch(err error) bool {
	var fe *FormatError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeVersionMismatch
	}
	return false
}

// NewCorruptError creates a FormatError for a structurally invalid record.
func NewCorruptError(msg string, err error) *FormatError {
	return &FormatError{Code: ErrCodeCorrupt, Message: msg, Err: err}
}

// NewVersionMismatchError creates a FormatError for a record written by a
// newer schema version.
func NewVersionMismatchError(got int) *FormatError {
	return &FormatError{
		Code:    ErrCodeVersionMismatch,
		Message: fmt.Sprintf("record schema_version %d is newer than supported version %d", got, RecordSchemaVersion),
	}
}
