package ledger

import (
	"context"
	"database/sql"
	"errors"
)

// User-facing wallet operations. Escrow settlement lives in wallet.go;
// these back the /wallet endpoints.

func (l *WalletLedger) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	w := &Wallet{}
	err := l.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = l.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_cents, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (l *WalletLedger) TopUp(ctx context.Context, userID int, amountCents int64) error {
	if amountCents <= 0 {
		return errors.New("top up amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	w, err := l.walletForUpdate(ctx, tx, userID)
	if err != nil {
		return err
	}

	newBalance := w.BalanceCents + amountCents

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, amount_cents, type, balance_after)
		 VALUES ($1, $2, 'topup', $3)`,
		w.ID, amountCents, newBalance,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (l *WalletLedger) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var walletID int
	err := l.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = l.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, amount_cents, type, balance_after, booking_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
