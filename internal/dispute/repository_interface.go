package dispute

import "context"

type Repository interface {
	Create(ctx context.Context, bookingID, reporterID int, reason string) (*Dispute, error)
	GetByID(ctx context.Context, id int) (*Dispute, error)
	GetOpenByBooking(ctx context.Context, bookingID int) (*Dispute, error)
	MarkResolved(ctx context.Context, id int, outcome, resolution string, resolvedBy int) (*Dispute, error)
	ListOpen(ctx context.Context) ([]Dispute, error)
}
