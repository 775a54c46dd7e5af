package dispute

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrAlreadyResolved = errors.New("dispute already resolved")
)

const disputeColumns = `id, booking_id, reporter_id, reason, status, outcome, resolution, resolved_by, created_at, resolved_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) Create(ctx context.Context, bookingID, reporterID int, reason string) (*Dispute, error) {
	query := `
		INSERT INTO disputes (booking_id, reporter_id, reason, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING ` + disputeColumns

	var d Dispute
	err := r.db.GetContext(ctx, &d, query, bookingID, reporterID, reason)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) GetOpenByBooking(ctx context.Context, bookingID int) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d,
		`SELECT `+disputeColumns+` FROM disputes WHERE booking_id = $1 AND status = 'open'`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkResolved records the arbiter's outcome. The status predicate makes
// a second resolution attempt fail instead of overwriting the first.
func (r *repository) MarkResolved(ctx context.Context, id int, outcome, resolution string, resolvedBy int) (*Dispute, error) {
	query := `
		UPDATE disputes
		SET status = 'resolved', outcome = $1, resolution = $2, resolved_by = $3, resolved_at = NOW()
		WHERE id = $4 AND status = 'open'
		RETURNING ` + disputeColumns

	var d Dispute
	err := r.db.GetContext(ctx, &d, query, outcome, resolution, resolvedBy, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListOpen(ctx context.Context) ([]Dispute, error) {
	var disputes []Dispute
	err := r.db.SelectContext(ctx, &disputes,
		`SELECT `+disputeColumns+` FROM disputes WHERE status = 'open' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return disputes, nil
}
