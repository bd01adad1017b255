package refundrepo

import (
	"context"
	"database/sql"

	"cafeorder/model"
)

type Repo interface {
	Insert(ctx context.Context, rr *model.RefundRequest) (int64, error)
	Get(ctx context.Context, id int64) (*model.RefundRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]model.RefundRequest, error)
	ListPending(ctx context.Context) ([]model.RefundRequest, error)

	// SetReviewed moves Pending/UnderReview into Approved or Rejected;
	// ok=false when the request was not reviewable anymore.
	SetReviewed(ctx context.Context, id int64, status model.RefundStatus, reviewer string, notes, rejectionReason *string) (ok bool, err error)

	// MarkCredited is the double-payout guard: a single conditional update
	// on status='Approved' AND wallet_credited=false.
	MarkCredited(ctx context.Context, tx *sql.Tx, id int64) (ok bool, err error)
	SetTransactionID(ctx context.Context, tx *sql.Tx, id, txnID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const refundCols = `
id, user_id, order_id, amount, reason, category, status, admin_notes,
rejection_reason, reviewed_by, wallet_credited, transaction_id,
created_at, reviewed_at, processed_at
`

func (r *repo) Insert(ctx context.Context, rr *model.RefundRequest) (int64, error) {
	const q = `
INSERT INTO refund_requests (user_id, order_id, amount, reason, category, status)
VALUES ($1,$2,$3,$4,$5,'Pending')
RETURNING id, created_at`
	var id int64
	err := r.db.QueryRowContext(ctx, q, rr.UserID, rr.OrderID, rr.Amount, rr.Reason, rr.Category).
		Scan(&id, &rr.CreatedAt)
	if err != nil {
		return 0, err
	}
	rr.ID = id
	rr.Status = model.RefundPending
	return id, nil
}

func (r *repo) scanOne(row *sql.Row) (*model.RefundRequest, error) {
	var rr model.RefundRequest
	err := row.Scan(
		&rr.ID, &rr.UserID, &rr.OrderID, &rr.Amount, &rr.Reason, &rr.Category, &rr.Status,
		&rr.AdminNotes, &rr.RejectionReason, &rr.ReviewedBy, &rr.WalletCredited, &rr.TransactionID,
		&rr.CreatedAt, &rr.ReviewedAt, &rr.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.RefundRequest, error) {
	const q = `SELECT` + refundCols + `FROM refund_requests WHERE id=$1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) list(ctx context.Context, q string, args ...any) ([]model.RefundRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RefundRequest
	for rows.Next() {
		var rr model.RefundRequest
		if err := rows.Scan(
			&rr.ID, &rr.UserID, &rr.OrderID, &rr.Amount, &rr.Reason, &rr.Category, &rr.Status,
			&rr.AdminNotes, &rr.RejectionReason, &rr.ReviewedBy, &rr.WalletCredited, &rr.TransactionID,
			&rr.CreatedAt, &rr.ReviewedAt, &rr.ProcessedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func (r *repo) ListByUser(ctx context.Context, userID int64) ([]model.RefundRequest, error) {
	const q = `SELECT` + refundCols + `FROM refund_requests WHERE user_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *repo) ListPending(ctx context.Context) ([]model.RefundRequest, error) {
	const q = `SELECT` + refundCols + `
FROM refund_requests WHERE status IN ('Pending','UnderReview') ORDER BY created_at`
	return r.list(ctx, q)
}

func (r *repo) SetReviewed(ctx context.Context, id int64, status model.RefundStatus, reviewer string, notes, rejectionReason *string) (bool, error) {
	const q = `
UPDATE refund_requests
SET status=$2, reviewed_by=$3, admin_notes=$4, rejection_reason=$5, reviewed_at=NOW()
WHERE id=$1 AND status IN ('Pending','UnderReview')`
	res, err := r.db.ExecContext(ctx, q, id, status, reviewer, notes, rejectionReason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) MarkCredited(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	const q = `
UPDATE refund_requests
SET wallet_credited=TRUE, status='Completed', processed_at=NOW()
WHERE id=$1 AND status='Approved' AND wallet_credited=FALSE`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) SetTransactionID(ctx context.Context, tx *sql.Tx, id, txnID int64) error {
	const q = `UPDATE refund_requests SET transaction_id=$2 WHERE id=$1`
	_, err := tx.ExecContext(ctx, q, id, txnID)
	return err
}
