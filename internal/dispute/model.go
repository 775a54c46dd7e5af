package dispute

import "time"

const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

const (
	// Resolution outcomes map onto the booking transitions a resolved
	// dispute drives: completed pays the KOL, cancelled refunds the buyer.
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

type Dispute struct {
	ID         int        `db:"id" json:"id"`
	BookingID  int        `db:"booking_id" json:"booking_id"`
	ReporterID int        `db:"reporter_id" json:"reporter_id"`
	Reason     string     `db:"reason" json:"reason"`
	Status     string     `db:"status" json:"status"`
	Outcome    *string    `db:"outcome" json:"outcome,omitempty"`
	Resolution *string    `db:"resolution" json:"resolution,omitempty"`
	ResolvedBy *int       `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

type ResolveRequest struct {
	Outcome    string `json:"outcome" binding:"required,oneof=completed cancelled"`
	Resolution string `json:"resolution" binding:"required"`
}
