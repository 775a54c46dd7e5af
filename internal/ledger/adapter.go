package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrNoHold            = errors.New("no escrow hold for booking")
)

// Adapter is the escrow boundary the booking service settles against.
// Every operation is idempotent keyed by booking id: calling it again
// after a timeout returns the settlement recorded by the first call.
//
// Lock debits the buyer and holds the amount in escrow. Release returns
// the full held amount to the given account (refund paths). Payout moves
// the held amount to the given account minus the platform fee.
// ReleaseOrphaned refunds holds whose booking never became visible (the
// lock commits before the booking insert does) and reports how many it
// released.
type Adapter interface {
	Lock(ctx context.Context, bookingID, buyerID int, amountCents int64) (*Settlement, error)
	Release(ctx context.Context, bookingID, toUserID int) (*Settlement, error)
	Payout(ctx context.Context, bookingID, toUserID int, feePercent int64) (*Settlement, error)
	ReleaseOrphaned(ctx context.Context, olderThan time.Time) (int, error)
}
