package orderrepo

import (
	"context"
	"database/sql"

	"cafeorder/model"
)

type Repo interface {
	InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) (int64, error)
	InsertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []model.OrderItem) error
	SetCheckout(ctx context.Context, orderID int64, sessionID, checkoutURL string) error
	SetDiscounts(ctx context.Context, tx *sql.Tx, o *model.Order) error

	Get(ctx context.Context, orderID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// MarkCompleted flips pending -> completed; ok=false when the order was
	// already completed. This is the idempotency guard the webhook and
	// verify paths both race on.
	MarkCompleted(ctx context.Context, tx *sql.Tx, orderID int64) (ok bool, err error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) InsertOrder(ctx context.Context, tx *sql.Tx, o *model.Order) (int64, error) {
	const q = `
INSERT INTO orders
  (user_id, branch, status, payment_method, voucher_code, voucher_discount,
   coins_used, coins_discount, final_amount, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at`
	var id int64
	err := tx.QueryRowContext(ctx, q,
		o.UserID, o.Branch, o.Status, o.PaymentMethod, o.VoucherCode, o.VoucherDiscount,
		o.CoinsUsed, o.CoinsDiscount, o.FinalAmount, o.CompletedAt,
	).Scan(&id, &o.CreatedAt)
	if err != nil {
		return 0, err
	}
	o.ID = id
	return id, nil
}

func (r *repo) InsertItems(ctx context.Context, tx *sql.Tx, orderID int64, items []model.OrderItem) error {
	const q = `
INSERT INTO order_items (order_id, name, quantity, price)
VALUES ($1,$2,$3,$4)`
	for i := range items {
		if _, err := tx.ExecContext(ctx, q, orderID, items[i].Name, items[i].Quantity, items[i].Price); err != nil {
			return err
		}
		items[i].OrderID = orderID
	}
	return nil
}

func (r *repo) SetCheckout(ctx context.Context, orderID int64, sessionID, checkoutURL string) error {
	const q = `UPDATE orders SET session_id=$2, checkout_url=$3 WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, orderID, sessionID, checkoutURL)
	return err
}

// SetDiscounts persists discount fields recomputed by the resume-checkout
// (pay) flow on an existing pending order.
func (r *repo) SetDiscounts(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `
UPDATE orders
SET payment_method=$2, voucher_code=$3, voucher_discount=$4,
    coins_used=$5, coins_discount=$6, final_amount=$7
WHERE id=$1`
	_, err := tx.ExecContext(ctx, q,
		o.ID, o.PaymentMethod, o.VoucherCode, o.VoucherDiscount,
		o.CoinsUsed, o.CoinsDiscount, o.FinalAmount,
	)
	return err
}

func (r *repo) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	const q = `
SELECT id, user_id, branch, status, payment_method, voucher_code, voucher_discount,
       coins_used, coins_discount, final_amount, session_id, checkout_url,
       created_at, completed_at
FROM orders WHERE id=$1`
	var o model.Order
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&o.ID, &o.UserID, &o.Branch, &o.Status, &o.PaymentMethod, &o.VoucherCode, &o.VoucherDiscount,
		&o.CoinsUsed, &o.CoinsDiscount, &o.FinalAmount, &o.SessionID, &o.CheckoutURL,
		&o.CreatedAt, &o.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	items, err := r.listItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *repo) listItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	const q = `SELECT id, order_id, name, quantity, price FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	const q = `
SELECT id, user_id, branch, status, payment_method, voucher_code, voucher_discount,
       coins_used, coins_discount, final_amount, session_id, checkout_url,
       created_at, completed_at
FROM orders
WHERE user_id=$1
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Branch, &o.Status, &o.PaymentMethod, &o.VoucherCode, &o.VoucherDiscount,
			&o.CoinsUsed, &o.CoinsDiscount, &o.FinalAmount, &o.SessionID, &o.CheckoutURL,
			&o.CreatedAt, &o.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repo) MarkCompleted(ctx context.Context, tx *sql.Tx, orderID int64) (bool, error) {
	const q = `
UPDATE orders SET status='completed', completed_at=NOW()
WHERE id=$1 AND status='pending'`
	res, err := tx.ExecContext(ctx, q, orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
