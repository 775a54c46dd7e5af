package kol

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func kolRowColumns() []string {
	return []string{
		"id", "user_id", "display_name", "bio", "price_per_slot_cents", "is_available",
		"min_booking_duration", "max_booking_duration", "reputation_score", "created_at", "updated_at",
	}
}

func kolRow(id, userID int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(kolRowColumns()).
		AddRow(id, userID, "Test KOL", "bio", 10000, true, 30, 120, 0, now, now)
}

func TestRepositoryCreateKOL(t *testing.T) {
	repo, mock, closer := setupRepo(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM kols WHERE user_id = $1)")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO kols (user_id, display_name, bio, price_per_slot_cents, is_available, min_booking_duration, max_booking_duration) VALUES ($1, $2, $3, $4, TRUE, $5, $6) RETURNING "+kolColumns)).
		WithArgs(20, "Test KOL", "bio", int64(10000), 30, 120).
		WillReturnRows(kolRow(3, 20))

	k, err := repo.CreateKOL(context.Background(), 20, CreateKOLRequest{
		DisplayName:        "Test KOL",
		Bio:                "bio",
		PricePerSlotCents:  10000,
		MinBookingDuration: 30,
		MaxBookingDuration: 120,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, k.ID)
	assert.True(t, k.IsAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateKOLAlreadyExists(t *testing.T) {
	repo, mock, closer := setupRepo(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM kols WHERE user_id = $1)")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.CreateKOL(context.Background(), 20, CreateKOLRequest{})

	assert.ErrorIs(t, err, ErrAlreadyKOL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock, closer := setupRepo(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+kolColumns+" FROM kols WHERE id = $1")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(kolRowColumns()))

	_, err := repo.GetByID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrKOLNotFound)
}

func TestRepositoryUpdatePricing(t *testing.T) {
	repo, mock, closer := setupRepo(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE kols SET price_per_slot_cents = $1, is_available = $2, min_booking_duration = $3, max_booking_duration = $4, updated_at = NOW() WHERE id = $5 RETURNING "+kolColumns)).
		WithArgs(int64(5000), false, 30, 60, 3).
		WillReturnRows(kolRow(3, 20))

	k, err := repo.UpdatePricing(context.Background(), 3, PricingUpdate{
		PricePerSlotCents:  5000,
		IsAvailable:        false,
		MinBookingDuration: 30,
		MaxBookingDuration: 60,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, k.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTopByReputation(t *testing.T) {
	repo, mock, closer := setupRepo(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+kolColumns+" FROM kols ORDER BY reputation_score DESC, id LIMIT $1")).
		WithArgs(50).
		WillReturnRows(kolRow(3, 20))

	kols, err := repo.TopByReputation(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, kols, 1)
	assert.Equal(t, 3, kols[0].ID)
}
