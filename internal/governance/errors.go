package governance

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes governance failures. Every precondition violation
// aborts the whole call with one of these codes and no partial effect.
type ErrorCode string

const (
	// CodeUnauthorized means the caller lacks the owner, role, or
	// acceptance-flag precondition for the operation.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInvalidArgument covers null addresses, empty selectors, and
	// implementation targets with no deployed code.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeNotReady means the timelock interval (or contingency cooldown)
	// has not yet elapsed.
	CodeNotReady ErrorCode = "NOT_READY"

	// CodeExpired means the timelock's validity window has lapsed.
	CodeExpired ErrorCode = "EXPIRED"

	// CodeAlreadyInState covers double activation and transitions out of a
	// state the record is not in.
	CodeAlreadyInState ErrorCode = "ALREADY_IN_STATE"

	// CodeUnsupportedBeacon means contingency activation targeted a beacon
	// outside the two recognized governed beacons.
	CodeUnsupportedBeacon ErrorCode = "UNSUPPORTED_BEACON"

	// CodeNoPriorImplementation means rollback found nothing recorded for
	// the (controller, beacon) pair.
	CodeNoPriorImplementation ErrorCode = "NO_PRIOR_IMPLEMENTATION"

	// CodeBoundViolation means an interval or expiration fell outside the
	// configured hard caps.
	CodeBoundViolation ErrorCode = "BOUND_VIOLATION"
)

// Error is a governance failure with a discriminable reason.
// All failures surface synchronously to the caller; retries are the caller's
// responsibility.
type Error struct {
	Code    ErrorCode
	Message string

	// Details carries optional operation context (selector, addresses).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf extracts the governance error code from err, unwrapping as needed.
// Returns "" for non-governance errors.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsCode reports whether err carries the given governance error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
