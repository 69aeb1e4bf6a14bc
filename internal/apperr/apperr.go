// Package apperr defines the error taxonomy shared by the marketplace
// services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can tell "fix your input" apart from
// "you may not do this" and "refresh and try again".
type Kind int

const (
	KindValidation Kind = iota + 1
	KindForbidden
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is a user-facing failure. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	base    *Error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the sentinel a dynamic error was derived from.
func (e *Error) Unwrap() error {
	if e.base == nil {
		return nil
	}
	return e.base
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }

// Wrap derives an error with a more specific message that still matches base
// under errors.Is.
func Wrap(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Message: fmt.Sprintf(format, args...), base: base}
}

// KindOf returns the Kind of err, or 0 for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

var (
	ErrJobNotFound = NotFound("Job not found")
	ErrBidNotFound = NotFound("Bid not found")

	ErrInvalidAmount     = Validation("Bid amount must be greater than 0")
	ErrAmountTooLarge    = Validation("Bid amount cannot exceed 9999999999.99")
	ErrAmountPrecision   = Validation("Bid amount can have at most 2 decimal places")
	ErrDurationTooLong   = Validation("Estimated duration must be at most 100 characters long")
	ErrProposalTooShort  = Validation("Proposal must be at least 10 characters long")
	ErrOwnJob            = Conflict("You cannot bid on your own job")
	ErrJobNotOpen        = Conflict("This job is no longer accepting bids")
	ErrDuplicateBid      = Conflict("You have already placed a bid on this job")
	ErrProfileIncomplete = Conflict("Please complete your worker profile before placing bids")

	// ErrBidNotPending is wrapped with the bid's current status.
	ErrBidNotPending      = Conflict("This bid is no longer pending")
	ErrWithdrawNotPending = Conflict("You can only withdraw pending bids")

	ErrJobHasAcceptedBid   = Conflict("Cannot edit job with accepted bids")
	ErrJobHasActiveBooking = Conflict("Cannot cancel job with active bookings")
	// ErrJobClosed is wrapped with the job's current status.
	ErrJobClosed       = Conflict("This job can no longer be changed")
	ErrProfileNotFound = NotFound("Worker profile not found")
	ErrEmailTaken      = Conflict("A user with this email already exists")
)

// BidNotPending reports the bid's actual status so the client can refresh.
func BidNotPending(status string) *Error {
	return Wrap(ErrBidNotPending, "This bid has already been %s", status)
}

// JobClosed reports the job's actual status on an edit or cancel attempt.
func JobClosed(status string) *Error {
	return Wrap(ErrJobClosed, "This job is already %s", status)
}
