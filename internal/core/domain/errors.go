package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes follow the PC-<AREA>-<NNNN> format; the last four digits mirror the
// closest HTTP status so the history server can map them directly.
type DomainError struct {
	Code    string // Error code (e.g., "PC-CHAN-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
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
			return true // Only check if it's a DomainError
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

// Input errors (INPT) are produced while reading textual snapshots.
var (
	// ErrMalformedInput indicates a line that is not a JSON array of integers.
	ErrMalformedInput = NewDomainError("PC-INPT-4000", "malformed snapshot line")

	// ErrLabelOutOfRange indicates a partition label outside [0, MaxLabel].
	ErrLabelOutOfRange = NewDomainError("PC-INPT-4001", "partition label out of range")

	// ErrTooManyNodes indicates a snapshot longer than the wire format can address.
	ErrTooManyNodes = NewDomainError("PC-INPT-4002", "too many nodes")
)

// Wire errors (WIRE) are produced by the binary codec.
var (
	// ErrReservedNodeID indicates a node id that collides with a reserved sentinel.
	ErrReservedNodeID = NewDomainError("PC-WIRE-4001", "node id collides with reserved sentinel")

	// ErrTruncatedStream indicates the stream ended inside a word, an escape or a record.
	ErrTruncatedStream = NewDomainError("PC-WIRE-4002", "truncated chain stream")

	// ErrZeroSkip indicates a skip escape with a zero count.
	ErrZeroSkip = NewDomainError("PC-WIRE-4003", "skip escape with zero count")
)

// Chain catalog errors (CHAN).
var (
	// ErrChainNotFound indicates the requested chain is not in the catalog.
	ErrChainNotFound = NewDomainError("PC-CHAN-4040", "chain not found")

	// ErrInvalidChainID indicates a chain id that is not a valid ULID.
	ErrInvalidChainID = NewDomainError("PC-CHAN-4000", "invalid chain id")

	// ErrChainValidation indicates chain metadata failed validation.
	ErrChainValidation = NewDomainError("PC-CHAN-4001", "chain validation failed")

	// ErrStepNotFound indicates a requested step is beyond the end of the chain.
	ErrStepNotFound = NewDomainError("PC-CHAN-4041", "step not found")
)

// System errors (SYS).
var (
	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("PC-SYS-5000", "internal error")

	// ErrStorage indicates a storage layer failure.
	ErrStorage = NewDomainError("PC-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("PC-SYS-4000", "bad request")

	// ErrUnauthorized indicates a missing or wrong API key.
	ErrUnauthorized = NewDomainError("PC-SYS-4010", "unauthorized")

	// ErrPayloadTooLarge indicates an upload above the configured limit.
	ErrPayloadTooLarge = NewDomainError("PC-SYS-4130", "payload too large")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("PC-SYS-4290", "too many requests")
)
