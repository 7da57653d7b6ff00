package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: stream, projection or configuration does not exist
//   - ErrVersionConflict: an append was built against a stale stream version
//   - ErrExpired: verification token has expired
//   - ErrUnknownEvent: a stored event type has no registered decoder
//   - ErrUnavailable: backing service temporarily unavailable
//
// For rule violations (bad input, illegal transitions), use pkg/domain-errors directly.
var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrExpired         = errors.New("expired")
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrUnavailable     = errors.New("unavailable")
)
