package visit

import "errors"

// Failure results returned by the state-transition handlers. These are
// descriptive and non-fatal; HTTP handlers map them onto 4xx responses.
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotActive           = errors.New("reservation is not active")
	ErrNotPaused           = errors.New("reservation is not paused")
	ErrDefinitivePause     = errors.New("institution policy forbids resuming a paused reservation")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
	ErrReasonTooLong       = errors.New("cancellation reason exceeds 150 characters")
	ErrStaleRecalculation  = errors.New("recalculation confirmation window has elapsed")
)
