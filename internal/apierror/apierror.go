// Package apierror turns failed stories API calls into a small, stable
// taxonomy of user-facing errors. Classification is pure: no logging, no
// side effects, immutable results.
package apierror

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. The set is open; servers may emit
// codes beyond these and they pass through classification verbatim.
type Code string

const (
	CodeAuthenticationRequired Code = "AUTHENTICATION_REQUIRED"
	CodeAuthenticationExpired  Code = "AUTHENTICATION_EXPIRED"
	CodePermissionDenied       Code = "PERMISSION_DENIED"
	CodeNotFound               Code = "NOT_FOUND"
	CodeValidationFailed       Code = "VALIDATION_FAILED"
	CodeUploadTooLarge         Code = "UPLOAD_TOO_LARGE"
	CodeUploadInvalidFormat    Code = "UPLOAD_INVALID_FORMAT"
	CodeTransportUnreachable   Code = "TRANSPORT_UNREACHABLE"
	CodeServerError            Code = "SERVER_ERROR"
	CodeUnknown                Code = "UNKNOWN"

	// CodeMutationPending is produced locally when a mutation is attempted
	// while another one is still in flight. It never crosses the wire.
	CodeMutationPending Code = "MUTATION_PENDING"
)

// Severity grades how loudly a failure should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// DomainError is the classified form of any failed API call. UserMessage
// is always a complete sentence safe to show directly; Raw carries the
// technical payload and is shown only on explicit request.
type DomainError struct {
	Code        Code
	HTTPStatus  int // 0 when no response was received
	UserMessage string
	Severity    Severity
	Suggestions []string
	Raw         string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.HTTPStatus, e.UserMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.UserMessage)
}

// userMessages holds the canonical sentence for codes the client produces
// itself or substitutes for terse server detail.
var userMessages = map[Code]string{
	CodeAuthenticationRequired: "You need to be logged in to perform this action.",
	CodeAuthenticationExpired:  "Your session has expired. Please log in again.",
	CodePermissionDenied:       "You don't have permission to perform this action.",
	CodeNotFound:               "The requested resource was not found.",
	CodeValidationFailed:       "Please check your input and try again.",
	CodeUploadTooLarge:         "The file is too large to upload.",
	CodeUploadInvalidFormat:    "This file format is not supported.",
	CodeTransportUnreachable:   "The server could not be reached. Please check your connection and try again.",
	CodeServerError:            "Something went wrong on our end. Please try again later.",
	CodeUnknown:                "An unexpected error occurred. Please try again later.",
	CodeMutationPending:        "Another change is still being saved. Please wait for it to finish.",
}

// MessageFor returns the canonical user message for a code.
func MessageFor(code Code) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[CodeUnknown]
}

// AuthenticationRequired builds the local error reported when a mutation
// is attempted without a credential. No network call is involved, so
// HTTPStatus stays 0.
func AuthenticationRequired() *DomainError {
	return &DomainError{
		Code:        CodeAuthenticationRequired,
		UserMessage: MessageFor(CodeAuthenticationRequired),
		Severity:    SeverityError,
		Suggestions: []string{"Log in and try again."},
	}
}

// MutationPending builds the local error reported when a mutation is
// rejected because another one has not settled yet.
func MutationPending() *DomainError {
	return &DomainError{
		Code:        CodeMutationPending,
		UserMessage: MessageFor(CodeMutationPending),
		Severity:    SeverityWarning,
		Suggestions: []string{"Wait a moment and try again."},
	}
}

// FromError returns the DomainError carried by err, or wraps an arbitrary
// error as UNKNOWN so callers above the classifier never see a raw error.
func FromError(err error) *DomainError {
	var derr *DomainError
	if errors.As(err, &derr) {
		return derr
	}
	raw := ""
	if err != nil {
		raw = err.Error()
	}
	return &DomainError{
		Code:        CodeUnknown,
		UserMessage: MessageFor(CodeUnknown),
		Severity:    SeverityError,
		Raw:         raw,
	}
}
