package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDisputed  Status = "disputed"
	StatusExpired   Status = "expired"
)

// SlotLength is the granularity of a bookable session. Session windows
// must be a positive multiple of it.
const SlotLength = 30 * time.Minute

type Booking struct {
	ID              int       `db:"id" json:"id"`
	BuyerID         int       `db:"buyer_id" json:"buyer_id"`
	KOLID           int       `db:"kol_id" json:"kol_id"`
	PricePerSlot    int64     `db:"price_per_slot_cents" json:"price_per_slot_cents"`
	TotalSlots      int       `db:"total_slots" json:"total_slots"`
	TotalAmount     int64     `db:"total_amount_cents" json:"total_amount_cents"`
	FromTime        time.Time `db:"from_time" json:"from_time"`
	ToTime          time.Time `db:"to_time" json:"to_time"`
	Reason          string    `db:"reason" json:"reason"`
	Status          Status    `db:"status" json:"status"`
	SessionEndTime  time.Time `db:"session_end_time" json:"session_end_time"`
	DisputeReported bool      `db:"dispute_reported" json:"dispute_reported"`
	RejectionReason *string   `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type CreateBookingRequest struct {
	KOLID    int       `json:"kol_id" binding:"required"`
	FromTime time.Time `json:"from_time" binding:"required"`
	ToTime   time.Time `json:"to_time" binding:"required"`
	Reason   string    `json:"reason" binding:"required"`
}

type UpdateStatusRequest struct {
	Status          Status `json:"status" binding:"required"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type DisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// SweepResult reports what one auto-resolution pass did. Running the
// sweep again over the same data yields zeros.
type SweepResult struct {
	Expired   int `json:"expired"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
