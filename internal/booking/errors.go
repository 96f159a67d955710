package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrPastStart rejects candidates whose start has already elapsed in
	// the facility zone. Surfaced separately from conflicts so the caller
	// can tell the user why the slot is unusable.
	ErrPastStart = errors.New("booking start is in the past")

	// ErrNotFound indicates no booking with the requested id exists.
	ErrNotFound = errors.New("booking not found")

	// ErrNotCancellable rejects cancelling a booking that has already
	// started or finished.
	ErrNotCancellable = errors.New("booking start has already passed")

	// ErrTerminalStatus rejects modifying a cancelled or completed booking;
	// those statuses are terminal.
	ErrTerminalStatus = errors.New("booking is in a terminal status")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ConflictError reports an overlap with an existing active booking. The
// conflicting range is included so the caller can retry with a different
// slot.
type ConflictError struct {
	BookingID int64
	Start     string
	End       string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("time range conflicts with booking %d (%s-%s)", e.BookingID, e.Start, e.End)
}
