package introspect

import (
	"errors"
	"fmt"
)

// DBError represents a failure while describing a query against a live
// database.
//
// The categories drive recovery: connection loss is retried once with
// backoff, permission problems name the missing privilege and stop,
// syntax errors carry the engine's position when it reports one, and
// unknown types name the engine type the catalog cannot express.
type DBError struct {
	// Code identifies the error category.
	Code DBErrorCode

	// Message is a human-readable description, usually the engine's own.
	Message string

	// Position is the 1-based offset into the query text where the engine
	// located the problem, or 0 when it reported none.
	Position int

	// Err is the underlying driver error, if any.
	Err error
}

// DBErrorCode categorizes database errors.
type DBErrorCode string

const (
	// ErrCodeSyntax indicates the engine rejected the query text.
	ErrCodeSyntax DBErrorCode = "SYNTAX_ERROR"

	// ErrCodeUnknownType indicates an engine type with no catalog
	// equivalent.
	ErrCodeUnknownType DBErrorCode = "UNKNOWN_TYPE"

	// ErrCodeConnectionLost indicates the database was unreachable or the
	// connection dropped mid-describe.
	ErrCodeConnectionLost DBErrorCode = "CONNECTION_LOST"

	// ErrCodePermissionDenied indicates missing privileges on a relation
	// the query touches.
	ErrCodePermissionDenied DBErrorCode = "PERMISSION_DENIED"
)

// Error implements the error interface.
func (e *DBError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("%s: %s (position %d)", e.Code, e.Message, e.Position)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying driver error.
func (e *DBError) Unwrap() error {
	return e.Err
}

// IsSyntaxError returns true if the error is an engine rejection of the
// query text. Uses errors.As to handle wrapped errors.
func IsSyntaxError(err error) bool {
	return hasCode(err, ErrCodeSyntax)
}

// IsUnknownType returns true if the error is an unmappable engine type.
// Uses errors.As to handle wrapped errors.
func IsUnknownType(err error) bool {
	return hasCode(err, ErrCodeUnknownType)
}

// IsConnectionLost returns true if the error is a connectivity failure.
// Uses errors.As to handle wrapped errors.
func IsConnectionLost(err error) bool {
	return hasCode(err, ErrCodeConnectionLost)
}

// IsPermissionDenied returns true if the error is a privilege failure.
// Uses errors.As to handle wrapped errors.
func IsPermissionDenied(err error) bool {
	return hasCode(err, ErrCodePermissionDenied)
}

func hasCode(err error, code DBErrorCode) bool {
	var de *DBError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// NewSyntaxError creates a DBError for a rejected query. pos is the
// engine-reported 1-based offset, 0 when unknown.
func NewSyntaxError(msg string, pos int, err error) *DBError {
	return &DBError{Code: ErrCodeSyntax, Message: msg, Position: pos, Err: err}
}

// NewUnknownTypeError creates a DBError naming an engine type outside the
// catalog and where it appeared.
func NewUnknownTypeError(where, typeName string) *DBError {
	return &DBError{
		Code:    ErrCodeUnknownType,
		Message: fmt.Sprintf("%s: engine type %q has no catalog equivalent", where, typeName),
	}
}

// NewConnectionLostError creates a DBError for a connectivity failure.
func NewConnectionLostError(msg string, err error) *DBError {
	return &DBError{Code: ErrCodeConnectionLost, Message: msg, Err: err}
}

// NewPermissionDeniedError creates a DBError for a privilege failure.
func NewPermissionDeniedError(msg string, err error) *DBError {
	return &DBError{Code: ErrCodePermissionDenied, Message: msg, Err: err}
}
