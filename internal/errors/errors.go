package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseFailure indicates the input is not a single valid JSON document
	ParseFailure ErrorCode = "PARSE_FAILURE"
	// PersistenceFailure indicates the storage engine rejected or lost a read or write
	PersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"
	// NotFound indicates the referenced record does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// InvalidInput indicates a caller-supplied argument is unusable
	InvalidInput ErrorCode = "INVALID_INPUT"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error carries a stable code, a message and an optional cause.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// Sentinels for errors.Is; matching is by code only.
var (
	ErrParseFailure       = &Error{Code: ParseFailure}
	ErrPersistenceFailure = &Error{Code: PersistenceFailure}
	ErrNotFound           = &Error{Code: NotFound}
	ErrInvalidInput       = &Error{Code: InvalidInput}
)

// New creates an Error with the default suggested fixes for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ParseFailure: {
		{
			Type:        RunCommand,
			Command:     "jq . ${input}",
			Safe:        true,
			Description: "Locate the syntax error in the input document",
		},
	},
	PersistenceFailure: {
		{
			Type:        RunCommand,
			Command:     "jsonorder config show",
			Safe:        true,
			Description: "Check the configured database path and busy timeout",
		},
	},
	NotFound: {
		{
			Type:        RunCommand,
			Command:     "jsonorder list",
			Safe:        true,
			Description: "List stored record IDs",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
