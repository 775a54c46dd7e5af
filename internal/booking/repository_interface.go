package booking

import (
	"context"
	"time"
)

// Change is what a transition decision wants written to the booking row.
type Change struct {
	To              Status
	RejectionReason *string
	DisputeReported bool
}

// DecideFunc runs with the booking row locked. It validates the
// transition and settles the escrow before the status is written; an
// error aborts the transaction and leaves the booking untouched.
type DecideFunc func(ctx context.Context, b *Booking) (*Change, error)

// FundFunc runs after the booking row is inserted but before the
// transaction commits. An error rolls the insert back so an unfunded
// booking never becomes visible.
type FundFunc func(ctx context.Context, b *Booking) error

type Repository interface {
	Create(ctx context.Context, b *Booking, fund FundFunc) (*Booking, error)
	GetByID(ctx context.Context, id int) (*Booking, error)
	Transition(ctx context.Context, id int, decide DecideFunc) (*Booking, error)
	ListByBuyer(ctx context.Context, buyerID int) ([]Booking, error)
	ListByKOL(ctx context.Context, kolID int, status *Status) ([]Booking, error)
	DueForSweep(ctx context.Context, pendingBefore, endedBefore time.Time, limit int) ([]int, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
