// Package domainerrors provides coded errors shared by every layer.
//
// Services return *Error values carrying a Code that transports translate into
// status codes. Infrastructure facts (not found, version conflict) are modelled
// as sentinels in pkg/platform/sentinel and translated into coded errors at
// service boundaries.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeBadRequest      Code = "bad_request"
	CodeValidation      Code = "validation_error"
	CodeInvalidInput    Code = "invalid_input"
	CodeNotFound        Code = "not_found"
	CodeConflict        Code = "conflict"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeTimeout         Code = "timeout"
	CodeInternal        Code = "internal_error"
	CodeVersionConflict Code = "version_conflict"

	// Result lifecycle
	CodeInvalidStateTransition Code = "invalid_state_transition"
	CodeContestLocked          Code = "contest_locked"
	CodeInvariantViolation     Code = "invariant_violation"
	CodeBundlesInProgress      Code = "bundles_in_progress"

	// Lot decisions
	CodeLotDecisionsNotAllowed     Code = "lot_decisions_not_allowed"
	CodeRequiredLotDecisionMissing Code = "required_lot_decision_missing"
	CodeDuplicateCandidate         Code = "duplicate_candidate"
	CodeInvalidRank                Code = "invalid_rank"
	CodePartialGroupResolution     Code = "partial_group_resolution"
	CodePrimaryLotDecisionsPending Code = "primary_lot_decisions_pending"

	// Finalization
	CodeCountingCirclesNotDone Code = "counting_circles_not_done"
	CodeOpenLotDecisions       Code = "open_lot_decisions"
	CodeVerificationRequired   Code = "verification_required"
	CodeDataChanged            Code = "data_changed"
	CodeNotVerified            Code = "not_verified"
)

// Error is a coded domain error. Details carry the facts a client needs to
// explain the violated rule (candidate id, rank, state).
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// With attaches a detail to the error and returns it for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = fmt.Sprint(value)
	return e
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. A nil err yields a plain coded error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the caller may retry the command unchanged
// against fresh state. Business rule violations are never retryable.
func IsRetryable(err error) bool {
	return HasCode(err, CodeVersionConflict)
}

// HTTPStatus maps a code to the status transports should answer with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput,
		CodeInvariantViolation, CodeDuplicateCandidate, CodeInvalidRank,
		CodeRequiredLotDecisionMissing, CodePartialGroupResolution:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeContestLocked:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeVersionConflict:
		return http.StatusConflict
	case CodeInvalidStateTransition, CodeBundlesInProgress, CodeLotDecisionsNotAllowed,
		CodePrimaryLotDecisionsPending, CodeCountingCirclesNotDone, CodeOpenLotDecisions,
		CodeVerificationRequired, CodeDataChanged, CodeNotVerified:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
