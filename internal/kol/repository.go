package kol

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"sore/internal/db"
)

var (
	ErrKOLNotFound   = errors.New("kol not found")
	ErrAlreadyKOL    = errors.New("user already has a kol profile")
	ErrInvalidPolicy = errors.New("invalid pricing policy")
)

const kolColumns = `id, user_id, display_name, bio, price_per_slot_cents, is_available,
		min_booking_duration, max_booking_duration, reputation_score, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(database *sqlx.DB) Repository {
	return &repository{db: database}
}

func (r *repository) CreateKOL(ctx context.Context, userID int, req CreateKOLRequest) (*KOL, error) {
	exists, err := db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM kols WHERE user_id = $1)`, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyKOL
	}

	query := `
		INSERT INTO kols (user_id, display_name, bio, price_per_slot_cents, is_available,
			min_booking_duration, max_booking_duration)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		RETURNING ` + kolColumns

	var k KOL
	err = r.db.GetContext(ctx, &k, query, userID, req.DisplayName, req.Bio,
		req.PricePerSlotCents, req.MinBookingDuration, req.MaxBookingDuration)
	if err != nil {
		return nil, err
	}

	return &k, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*KOL, error) {
	var k KOL
	err := r.db.GetContext(ctx, &k, `SELECT `+kolColumns+` FROM kols WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKOLNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *repository) GetByUserID(ctx context.Context, userID int) (*KOL, error) {
	var k KOL
	err := r.db.GetContext(ctx, &k, `SELECT `+kolColumns+` FROM kols WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKOLNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *repository) UpdatePricing(ctx context.Context, id int, p PricingUpdate) (*KOL, error) {
	query := `
		UPDATE kols
		SET price_per_slot_cents = $1, is_available = $2,
			min_booking_duration = $3, max_booking_duration = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + kolColumns

	var k KOL
	err := r.db.GetContext(ctx, &k, query, p.PricePerSlotCents, p.IsAvailable,
		p.MinBookingDuration, p.MaxBookingDuration, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKOLNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *repository) UpdateReputation(ctx context.Context, id int, score int64) (*KOL, error) {
	query := `
		UPDATE kols
		SET reputation_score = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + kolColumns

	var k KOL
	err := r.db.GetContext(ctx, &k, query, score, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKOLNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *repository) ListAvailable(ctx context.Context) ([]KOL, error) {
	var kols []KOL
	err := r.db.SelectContext(ctx, &kols,
		`SELECT `+kolColumns+` FROM kols WHERE is_available = TRUE ORDER BY reputation_score DESC, id`)
	if err != nil {
		return nil, err
	}
	return kols, nil
}

func (r *repository) TopByReputation(ctx context.Context, limit int) ([]KOL, error) {
	var kols []KOL
	err := r.db.SelectContext(ctx, &kols,
		`SELECT `+kolColumns+` FROM kols ORDER BY reputation_score DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return kols, nil
}
