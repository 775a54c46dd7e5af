package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"sore/internal/metrics"
)

// WalletLedger implements Adapter on top of internal wallets in Postgres.
// Escrow is modelled as a hold row per booking plus a settlement row per
// (booking, kind); the unique settlement row is what makes retries safe.
//
// Construct one per process with an explicit operation timeout and the
// caller-owned DB handle. There is no package-level instance.
type WalletLedger struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewWalletLedger(db *sqlx.DB, timeout time.Duration) *WalletLedger {
	return &WalletLedger{db: db, timeout: timeout}
}

func (l *WalletLedger) Lock(ctx context.Context, bookingID, buyerID int, amountCents int64) (*Settlement, error) {
	if amountCents <= 0 {
		return nil, errors.New("lock amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s, err := l.findSettlement(ctx, tx, bookingID, KindLock); err != nil {
		return nil, err
	} else if s != nil {
		return s, nil
	}

	w, err := l.walletForUpdate(ctx, tx, buyerID)
	if err != nil {
		return nil, err
	}

	newBalance := w.BalanceCents - amountCents
	if newBalance < 0 {
		return nil, ErrInsufficientFunds
	}

	if err := l.applyTransaction(ctx, tx, w.ID, -amountCents, newBalance, "escrow_lock", bookingID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO escrow_holds (booking_id, buyer_wallet_id, amount_cents, status)
		 VALUES ($1, $2, $3, 'held')`,
		bookingID, w.ID, amountCents,
	)
	if err != nil {
		return nil, err
	}

	s, err := l.insertSettlement(ctx, tx, bookingID, KindLock, amountCents, 0, buyerID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.EscrowLockedCents.Add(float64(amountCents))
	metrics.RecordSettlement(string(KindLock))
	return s, nil
}

func (l *WalletLedger) Release(ctx context.Context, bookingID, toUserID int) (*Settlement, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s, err := l.findSettlement(ctx, tx, bookingID, KindRelease); err != nil {
		return nil, err
	} else if s != nil {
		return s, nil
	}

	hold, err := l.holdForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	w, err := l.walletForUpdate(ctx, tx, toUserID)
	if err != nil {
		return nil, err
	}

	if err := l.applyTransaction(ctx, tx, w.ID, hold.AmountCents, w.BalanceCents+hold.AmountCents, "escrow_release", bookingID); err != nil {
		return nil, err
	}

	if err := l.closeHold(ctx, tx, bookingID, "released"); err != nil {
		return nil, err
	}

	s, err := l.insertSettlement(ctx, tx, bookingID, KindRelease, hold.AmountCents, 0, toUserID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.EscrowLockedCents.Sub(float64(hold.AmountCents))
	metrics.RecordSettlement(string(KindRelease))
	return s, nil
}

func (l *WalletLedger) Payout(ctx context.Context, bookingID, toUserID int, feePercent int64) (*Settlement, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if s, err := l.findSettlement(ctx, tx, bookingID, KindPayout); err != nil {
		return nil, err
	} else if s != nil {
		return s, nil
	}

	hold, err := l.holdForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	fee := PlatformFee(hold.AmountCents, feePercent)
	payout := hold.AmountCents - fee

	w, err := l.walletForUpdate(ctx, tx, toUserID)
	if err != nil {
		return nil, err
	}

	if err := l.applyTransaction(ctx, tx, w.ID, payout, w.BalanceCents+payout, "escrow_payout", bookingID); err != nil {
		return nil, err
	}

	if fee > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO platform_revenue (booking_id, fee_cents) VALUES ($1, $2)`,
			bookingID, fee,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := l.closeHold(ctx, tx, bookingID, "paid_out"); err != nil {
		return nil, err
	}

	s, err := l.insertSettlement(ctx, tx, bookingID, KindPayout, payout, fee, toUserID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.EscrowLockedCents.Sub(float64(hold.AmountCents))
	metrics.RecordSettlement(string(KindPayout))
	return s, nil
}

type orphanedHold struct {
	BookingID int `db:"booking_id"`
	UserID    int `db:"user_id"`
}

// ReleaseOrphaned refunds held escrow whose booking row never became
// visible: a crash between the lock commit and the booking-insert commit
// leaves a hold keyed to a booking id that does not exist. Only holds
// older than olderThan are touched, so in-flight creates are never raced.
func (l *WalletLedger) ReleaseOrphaned(ctx context.Context, olderThan time.Time) (int, error) {
	scanCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var orphans []orphanedHold
	err := l.db.SelectContext(scanCtx, &orphans,
		`SELECT h.booking_id, w.user_id
		 FROM escrow_holds h
		 JOIN wallets w ON w.id = h.buyer_wallet_id
		 LEFT JOIN bookings b ON b.id = h.booking_id
		 WHERE h.status = 'held' AND b.id IS NULL AND h.created_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, o := range orphans {
		if _, err := l.Release(ctx, o.BookingID, o.UserID); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

type escrowHold struct {
	ID            int    `db:"id"`
	BookingID     int    `db:"booking_id"`
	BuyerWalletID int    `db:"buyer_wallet_id"`
	AmountCents   int64  `db:"amount_cents"`
	Status        string `db:"status"`
}

func (l *WalletLedger) findSettlement(ctx context.Context, tx *sqlx.Tx, bookingID int, kind SettlementKind) (*Settlement, error) {
	var s Settlement
	err := tx.GetContext(ctx, &s,
		`SELECT id, booking_id, kind, amount_cents, fee_cents, to_user_id, created_at
		 FROM escrow_settlements
		 WHERE booking_id = $1 AND kind = $2`,
		bookingID, string(kind),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *WalletLedger) insertSettlement(ctx context.Context, tx *sqlx.Tx, bookingID int, kind SettlementKind, amountCents, feeCents int64, toUserID int) (*Settlement, error) {
	var s Settlement
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO escrow_settlements (booking_id, kind, amount_cents, fee_cents, to_user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, booking_id, kind, amount_cents, fee_cents, to_user_id, created_at`,
		bookingID, string(kind), amountCents, feeCents, toUserID,
	).StructScan(&s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *WalletLedger) walletForUpdate(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_cents, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		err = tx.QueryRowxContext(ctx,
			`INSERT INTO wallets (user_id)
			 VALUES ($1)
			 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
			userID,
		).StructScan(&w)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (l *WalletLedger) holdForUpdate(ctx context.Context, tx *sqlx.Tx, bookingID int) (*escrowHold, error) {
	var h escrowHold
	err := tx.QueryRowxContext(ctx,
		`SELECT id, booking_id, buyer_wallet_id, amount_cents, status
		 FROM escrow_holds
		 WHERE booking_id = $1 AND status = 'held'
		 FOR UPDATE`,
		bookingID,
	).StructScan(&h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoHold
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (l *WalletLedger) closeHold(ctx context.Context, tx *sqlx.Tx, bookingID int, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE escrow_holds SET status = $1 WHERE booking_id = $2`,
		status, bookingID,
	)
	return err
}

func (l *WalletLedger) applyTransaction(ctx context.Context, tx *sqlx.Tx, walletID int, amountCents, balanceAfter int64, txType string, bookingID int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2`,
		balanceAfter, walletID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, amount_cents, type, balance_after, booking_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		walletID, amountCents, txType, balanceAfter, bookingID,
	)
	return err
}
