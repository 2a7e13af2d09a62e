package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a SaveKeep error with a structured error code.
//
// Codes follow the format SK-<CATEGORY>-<NUMBER>. Two DomainErrors
// match under errors.Is when their codes are equal, so callers compare
// against the sentinels below regardless of attached details or cause.
type DomainError struct {
	Code    string // Error code (e.g., "SK-INTG-4220")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithDetailsf is WithDetails with formatting.
func (e *DomainError) WithDetailsf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Data errors. Raised when persisted bytes cannot be trusted or parsed.
var (
	// ErrIntegrity indicates a hash or HMAC mismatch.
	ErrIntegrity = NewDomainError("SK-INTG-4220", "integrity check failed")

	// ErrCorrupted indicates a truncated or structurally invalid stream.
	ErrCorrupted = NewDomainError("SK-CORR-4221", "corrupted data")

	// ErrVersionMismatch indicates an unexpected payload or record version.
	ErrVersionMismatch = NewDomainError("SK-VERS-4260", "version mismatch")

	// ErrCrypto indicates ciphertext that verified but could not be decrypted.
	ErrCrypto = NewDomainError("SK-CRPT-4000", "malformed ciphertext")
)

// Lookup errors.
var (
	// ErrNotFound is the generic lookup failure.
	ErrNotFound = NewDomainError("SK-NTFD-4040", "not found")

	// ErrSlotNotFound indicates an unknown slot id.
	ErrSlotNotFound = NewDomainError("SK-NTFD-4041", "slot not found")

	// ErrSavePointNotFound indicates an unknown serial id within a slot.
	ErrSavePointNotFound = NewDomainError("SK-NTFD-4042", "save point not found")

	// ErrBackupNotFound indicates an unknown backup archive name.
	ErrBackupNotFound = NewDomainError("SK-NTFD-4043", "backup not found")
)

// Filesystem errors.
var (
	// ErrIO indicates a filesystem failure.
	ErrIO = NewDomainError("SK-IOER-5000", "io error")
)

// Validation errors. These are programmer errors and are always returned
// to the caller, never absorbed into a boolean result.
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SK-VALD-4000", "invalid argument")

	// ErrInvalidKey indicates an empty payload key.
	ErrInvalidKey = NewDomainError("SK-VALD-4001", "key is invalid")

	// ErrInvalidValue indicates a nil or otherwise unusable value.
	ErrInvalidValue = NewDomainError("SK-VALD-4002", "value is invalid")

	// ErrUnsupportedKind indicates a value whose type is outside the
	// payload's closed set of kinds.
	ErrUnsupportedKind = NewDomainError("SK-VALD-4003", "unsupported value kind")
)
