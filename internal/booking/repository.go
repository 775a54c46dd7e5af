package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, buyer_id, kol_id, price_per_slot_cents, total_slots, total_amount_cents, from_time, to_time, reason, status, session_end_time, dispute_reported, rejection_reason, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts the booking and runs fund before committing. The escrow
// lock happens inside fund; if it fails the insert is rolled back and the
// caller never sees a booking id.
func (r *repository) Create(ctx context.Context, b *Booking, fund FundFunc) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (buyer_id, kol_id, price_per_slot_cents, total_slots, total_amount_cents, from_time, to_time, reason, status, session_end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9)
		RETURNING ` + bookingColumns

	var created Booking
	err = tx.GetContext(ctx, &created, query,
		b.BuyerID, b.KOLID, b.PricePerSlot, b.TotalSlots, b.TotalAmount,
		b.FromTime, b.ToTime, b.Reason, b.SessionEndTime)
	if err != nil {
		return nil, err
	}

	if fund != nil {
		if err := fund(ctx, &created); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Transition serializes all status changes for one booking behind a row
// lock. The status predicate on the update is a second guard: even if a
// decision raced past the lock somehow, a stale expected status writes
// nothing.
func (r *repository) Transition(ctx context.Context, id int, decide DecideFunc) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b Booking
	err = tx.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}

	change, err := decide(ctx, &b)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE bookings
		SET status = $1, rejection_reason = COALESCE($2, rejection_reason), dispute_reported = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + bookingColumns

	var updated Booking
	err = tx.GetContext(ctx, &updated, query,
		change.To, change.RejectionReason, change.DisputeReported || b.DisputeReported, id, b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID int) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`

	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings, query, buyerID)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListByKOL(ctx context.Context, kolID int, status *Status) ([]Booking, error) {
	var bookings []Booking
	var err error

	if status != nil {
		query := `
			SELECT ` + bookingColumns + `
			FROM bookings
			WHERE kol_id = $1 AND status = $2
			ORDER BY from_time
		`
		err = r.db.SelectContext(ctx, &bookings, query, kolID, *status)
	} else {
		query := `
			SELECT ` + bookingColumns + `
			FROM bookings
			WHERE kol_id = $1
			ORDER BY created_at DESC
		`
		err = r.db.SelectContext(ctx, &bookings, query, kolID)
	}

	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// DueForSweep scans for bookings the sweep should look at: pending ones
// created before the acceptance cutoff and accepted ones whose session
// has ended. Candidates are re-checked under the row lock before any
// funds move.
func (r *repository) DueForSweep(ctx context.Context, pendingBefore, endedBefore time.Time, limit int) ([]int, error) {
	query := `
		SELECT id
		FROM bookings
		WHERE (status = 'pending' AND created_at < $1)
		   OR (status = 'accepted' AND session_end_time <= $2)
		ORDER BY id
		LIMIT $3
	`

	var ids []int
	err := r.db.SelectContext(ctx, &ids, query, pendingBefore, endedBefore, limit)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
