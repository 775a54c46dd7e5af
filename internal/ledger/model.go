package ledger

import "time"

type Wallet struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID           int       `db:"id" json:"id"`
	WalletID     int       `db:"wallet_id" json:"wallet_id"`
	AmountCents  int64     `db:"amount_cents" json:"amount_cents"`
	Type         string    `db:"type" json:"type"` // topup, escrow_lock, escrow_release, escrow_payout
	BalanceAfter int64     `db:"balance_after" json:"balance_after"`
	BookingID    *int      `db:"booking_id" json:"booking_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type SettlementKind string

const (
	KindLock    SettlementKind = "lock"
	KindRelease SettlementKind = "release"
	KindPayout  SettlementKind = "payout"
)

// Settlement is the typed confirmation returned by every ledger operation.
// Retries with the same booking id get the originally recorded settlement
// back instead of moving funds twice.
type Settlement struct {
	ID          int            `db:"id" json:"id"`
	BookingID   int            `db:"booking_id" json:"booking_id"`
	Kind        SettlementKind `db:"kind" json:"kind"`
	AmountCents int64          `db:"amount_cents" json:"amount_cents"`
	FeeCents    int64          `db:"fee_cents" json:"fee_cents"`
	ToUserID    int            `db:"to_user_id" json:"to_user_id"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// PlatformFee computes the fee on a payout with truncating integer
// division. The remainder of the division stays with the payee.
func PlatformFee(amountCents, feePercent int64) int64 {
	return amountCents * feePercent / 100
}
