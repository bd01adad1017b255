package voucherrepo

import (
	"context"
	"database/sql"

	"cafeorder/model"
)

type Repo interface {
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
	Insert(ctx context.Context, v *model.Voucher) (int64, error)
	ListActive(ctx context.Context) ([]model.Voucher, error)

	// IncrementUsage bumps the usage counter atomically; ok=false when the
	// voucher is exhausted (or gone). Runs inside the order transaction so
	// abandoned attempts are never counted.
	IncrementUsage(ctx context.Context, tx *sql.Tx, code string) (ok bool, err error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const voucherCols = `
id, code, discount_type, discount_value, min_purchase, max_discount,
valid_from, valid_until, active, usage_limit, usage_count, created_at
`

func (r *repo) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	const q = `SELECT` + voucherCols + `FROM vouchers WHERE code=$1`
	var v model.Voucher
	err := r.db.QueryRowContext(ctx, q, code).Scan(
		&v.ID, &v.Code, &v.DiscountType, &v.DiscountValue, &v.MinPurchase, &v.MaxDiscount,
		&v.ValidFrom, &v.ValidUntil, &v.Active, &v.UsageLimit, &v.UsageCount, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repo) Insert(ctx context.Context, v *model.Voucher) (int64, error) {
	const q = `
INSERT INTO vouchers
  (code, discount_type, discount_value, min_purchase, max_discount,
   valid_from, valid_until, active, usage_limit, usage_count)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0)
RETURNING id, created_at`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		v.Code, v.DiscountType, v.DiscountValue, v.MinPurchase, v.MaxDiscount,
		v.ValidFrom, v.ValidUntil, v.Active, v.UsageLimit,
	).Scan(&id, &v.CreatedAt)
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

func (r *repo) ListActive(ctx context.Context) ([]model.Voucher, error) {
	const q = `SELECT` + voucherCols + `FROM vouchers WHERE active ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Voucher
	for rows.Next() {
		var v model.Voucher
		if err := rows.Scan(
			&v.ID, &v.Code, &v.DiscountType, &v.DiscountValue, &v.MinPurchase, &v.MaxDiscount,
			&v.ValidFrom, &v.ValidUntil, &v.Active, &v.UsageLimit, &v.UsageCount, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repo) IncrementUsage(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	const q = `
UPDATE vouchers SET usage_count = usage_count + 1
WHERE code=$1 AND usage_count < usage_limit`
	res, err := tx.ExecContext(ctx, q, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
