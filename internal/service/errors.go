// Package service implements the reservation lifecycle managers: payment
// (creation, slip intake, verification, expiry, waitlist admission),
// reservation (cancel, reschedule, extend) and usage (start, complete,
// verify plus the periodic sweeps).  Every mutating operation runs inside
// a single database transaction; audit-log failures are logged and
// swallowed so they never abort the primary operation, and notifications
// go through the transactional outbox so they are delivered only after
// the state change commits.
package service

import "errors"

// ErrInvalidTransition is returned when the precondition for a requested
// state change is not met, e.g. verifying a payment that is no longer
// pending.  Handlers translate it into an HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation is returned for malformed input, e.g. an interval whose
// end does not come after its start.  Handlers translate it into an
// HTTP 400 response.
var ErrValidation = errors.New("validation failed")
