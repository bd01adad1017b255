package walletrepo

import (
	"context"
	"database/sql"

	"cafeorder/model"
)

type Repo interface {
	// Wallet row
	GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)

	// Balance / coins mutations. All are single conditional UPDATEs so two
	// concurrent debits can never both succeed on one affordable balance.
	// ok=false means the guard failed (insufficient funds/coins or no row).
	CreditBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (newBalance float64, err error)
	DebitBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (newBalance float64, ok bool, err error)
	CreditCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (newCoins int64, err error)
	DebitCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (newCoins int64, ok bool, err error)

	// Transactions
	InsertTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction) (int64, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error)

	// Top-ups
	InsertTopUp(ctx context.Context, userID int64, amount float64, method string) (int64, error)
	SetTopUpSession(ctx context.Context, topUpID int64, sessionID, checkoutURL string) error
	GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error)
	// MarkTopUpCompleted flips pending -> completed; ok=false when the
	// top-up was already completed (or does not exist).
	MarkTopUpCompleted(ctx context.Context, tx *sql.Tx, topUpID int64) (ok bool, err error)
	ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetOrCreateWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	const q = `
INSERT INTO wallets (user_id, balance, coins, updated_at)
VALUES ($1, 0, 0, NOW())
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING user_id, balance, coins, updated_at`
	var w model.Wallet
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&w.UserID, &w.Balance, &w.Coins, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repo) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	const q = `SELECT user_id, balance, coins, updated_at FROM wallets WHERE user_id=$1`
	var w model.Wallet
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&w.UserID, &w.Balance, &w.Coins, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repo) CreditBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (float64, error) {
	const q = `
UPDATE wallets SET balance = balance + $2, updated_at = NOW()
WHERE user_id = $1
RETURNING balance`
	var bal float64
	err := tx.QueryRowContext(ctx, q, userID, amount).Scan(&bal)
	return bal, err
}

func (r *repo) DebitBalance(ctx context.Context, tx *sql.Tx, userID int64, amount float64) (float64, bool, error) {
	const q = `
UPDATE wallets SET balance = balance - $2, updated_at = NOW()
WHERE user_id = $1 AND balance >= $2
RETURNING balance`
	var bal float64
	err := tx.QueryRowContext(ctx, q, userID, amount).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return bal, true, nil
}

func (r *repo) CreditCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (int64, error) {
	const q = `
UPDATE wallets SET coins = coins + $2, updated_at = NOW()
WHERE user_id = $1
RETURNING coins`
	var c int64
	err := tx.QueryRowContext(ctx, q, userID, coins).Scan(&c)
	return c, err
}

func (r *repo) DebitCoins(ctx context.Context, tx *sql.Tx, userID int64, coins int64) (int64, bool, error) {
	const q = `
UPDATE wallets SET coins = coins - $2, updated_at = NOW()
WHERE user_id = $1 AND coins >= $2
RETURNING coins`
	var c int64
	err := tx.QueryRowContext(ctx, q, userID, coins).Scan(&c)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return c, true, nil
}

func (r *repo) InsertTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction) (int64, error) {
	const q = `
INSERT INTO transactions (user_id, type, amount, description, reference_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, q, t.UserID, t.Type, t.Amount, t.Description, t.ReferenceID).Scan(&id)
	return id, err
}

func (r *repo) ListTransactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	const q = `
SELECT id, user_id, type, amount, description, reference_id, created_at
FROM transactions
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repo) InsertTopUp(ctx context.Context, userID int64, amount float64, method string) (int64, error) {
	const q = `
INSERT INTO topups (user_id, amount, payment_method, status)
VALUES ($1,$2,$3,'pending')
RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q, userID, amount, method).Scan(&id)
	return id, err
}

func (r *repo) SetTopUpSession(ctx context.Context, topUpID int64, sessionID, checkoutURL string) error {
	const q = `UPDATE topups SET session_id=$2, checkout_url=$3 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, topUpID, sessionID, checkoutURL)
	return err
}

func (r *repo) GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	const q = `
SELECT id, user_id, amount, payment_method, status, session_id, checkout_url, created_at, completed_at
FROM topups WHERE id=$1`
	var t model.TopUp
	err := r.db.QueryRowContext(ctx, q, topUpID).Scan(
		&t.ID, &t.UserID, &t.Amount, &t.PaymentMethod, &t.Status,
		&t.SessionID, &t.CheckoutURL, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) MarkTopUpCompleted(ctx context.Context, tx *sql.Tx, topUpID int64) (bool, error) {
	const q = `
UPDATE topups SET status='completed', completed_at=NOW()
WHERE id=$1 AND status='pending'`
	res, err := tx.ExecContext(ctx, q, topUpID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error) {
	const q = `
SELECT id, user_id, amount, payment_method, status, session_id, checkout_url, created_at, completed_at
FROM topups
WHERE user_id=$1
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TopUp
	for rows.Next() {
		var t model.TopUp
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.PaymentMethod, &t.Status,
			&t.SessionID, &t.CheckoutURL, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
