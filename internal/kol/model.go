package kol

import "time"

// KOL is a seller profile: a user who offers paid consultation slots.
// Pricing fields apply only to bookings created after they change;
// in-flight bookings keep the price they were created with.
type KOL struct {
	ID                 int       `db:"id" json:"id"`
	UserID             int       `db:"user_id" json:"user_id"`
	DisplayName        string    `db:"display_name" json:"display_name"`
	Bio                string    `db:"bio" json:"bio"`
	PricePerSlotCents  int64     `db:"price_per_slot_cents" json:"price_per_slot_cents"`
	IsAvailable        bool      `db:"is_available" json:"is_available"`
	MinBookingDuration int       `db:"min_booking_duration" json:"min_booking_duration"`
	MaxBookingDuration int       `db:"max_booking_duration" json:"max_booking_duration"`
	ReputationScore    int64     `db:"reputation_score" json:"reputation_score"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

type CreateKOLRequest struct {
	DisplayName        string `json:"display_name" binding:"required"`
	Bio                string `json:"bio"`
	PricePerSlotCents  int64  `json:"price_per_slot_cents" binding:"required"`
	MinBookingDuration int    `json:"min_booking_duration" binding:"required"`
	MaxBookingDuration int    `json:"max_booking_duration" binding:"required"`
}

type PricingUpdate struct {
	PricePerSlotCents  int64 `json:"price_per_slot_cents" binding:"required"`
	IsAvailable        bool  `json:"is_available"`
	MinBookingDuration int   `json:"min_booking_duration" binding:"required"`
	MaxBookingDuration int   `json:"max_booking_duration" binding:"required"`
}

type ReputationUpdate struct {
	Score int64 `json:"score" binding:"gte=0"`
}

// LeaderboardResult is explicit about where its data came from. When the
// cache is unreachable the result is flagged degraded and served from the
// database instead of silently substituting anything.
type LeaderboardResult struct {
	Data     []KOL  `json:"data"`
	Source   string `json:"source"` // cache or database
	Degraded bool   `json:"degraded"`
}
