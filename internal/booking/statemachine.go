package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid booking status transition")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrLedgerTimeout     = errors.New("ledger operation timed out, retry")
	ErrAlreadyDisputed   = errors.New("booking already disputed")
	ErrNotAllowed        = errors.New("actor not allowed to perform this transition")
	ErrSessionNotEnded   = errors.New("session has not ended yet")
)

// ValidationError marks bad input that never reaches storage or the ledger.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// transitions is the full edge set of the escrow state machine. Anything
// not listed here is invalid; terminal states have no outgoing edges.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusAccepted:  true,
		StatusRejected:  true,
		StatusCancelled: true,
		StatusExpired:   true,
	},
	StatusAccepted: {
		StatusCompleted: true,
		StatusDisputed:  true,
		StatusCancelled: true,
	},
	StatusDisputed: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
}

func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted,
		StatusCancelled, StatusDisputed, StatusExpired:
		return true
	}
	return false
}

// SettlementEffect describes what a transition does to the escrowed funds.
type SettlementEffect int

const (
	// SettleNone keeps the funds held.
	SettleNone SettlementEffect = iota
	// SettleRefund releases the full amount back to the buyer.
	SettleRefund
	// SettlePayout pays the KOL minus the platform fee.
	SettlePayout
)

// EffectOf returns the settlement effect of a valid transition. Funds are
// held from creation until the first refund or payout effect fires.
func EffectOf(from, to Status) SettlementEffect {
	switch to {
	case StatusRejected, StatusCancelled, StatusExpired:
		return SettleRefund
	case StatusCompleted:
		return SettlePayout
	}
	return SettleNone
}

// AcceptanceDeadline is the instant after which a still-pending booking
// may be expired by the sweep.
func AcceptanceDeadline(b *Booking, acceptanceWindow time.Duration) time.Time {
	return b.CreatedAt.Add(acceptanceWindow)
}

// CanAutoExpire reports whether the sweep may expire the booking. Pure in
// now; already-resolved bookings never qualify.
func CanAutoExpire(b *Booking, now time.Time, acceptanceWindow time.Duration) bool {
	return b.Status == StatusPending && now.After(AcceptanceDeadline(b, acceptanceWindow))
}

// CanAutoComplete reports whether the sweep may complete the booking.
func CanAutoComplete(b *Booking, now time.Time) bool {
	return b.Status == StatusAccepted && !now.Before(b.SessionEndTime)
}

// ValidateWindow checks the session window against the slot length and a
// KOL's configured duration bounds (both in minutes). It returns the slot
// count on success.
func ValidateWindow(fromTime, toTime time.Time, minDuration, maxDuration int) (int, error) {
	if !toTime.After(fromTime) {
		return 0, validationErrorf("to_time must be after from_time")
	}

	duration := toTime.Sub(fromTime)
	if duration%SlotLength != 0 {
		return 0, validationErrorf("session duration must be a multiple of %d minutes", int(SlotLength.Minutes()))
	}

	minutes := int(duration.Minutes())
	if minutes < minDuration || minutes > maxDuration {
		return 0, validationErrorf("session duration %d minutes outside allowed range [%d, %d]", minutes, minDuration, maxDuration)
	}

	return int(duration / SlotLength), nil
}
