package refund

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cafeorder/model"
	orderrepo "cafeorder/repository/order"
	refundrepo "cafeorder/repository/refund"
	walletrepo "cafeorder/repository/wallet"
)

type ErrCode string

const (
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrNotOwner        ErrCode = "NOT_OWNER"
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrBadInput        ErrCode = "BAD_INPUT"
	ErrAlreadyCredited ErrCode = "ALREADY_CREDITED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type Service interface {
	Create(ctx context.Context, userID, orderID int64, amount float64, reason, category string) (*model.RefundRequest, error)
	// Review moves a Pending/UnderReview request to Approved or Rejected.
	Review(ctx context.Context, refundID int64, reviewer, action, notes string) (*model.RefundRequest, error)
	// ProcessToWallet credits the wallet for an approved refund exactly
	// once; a repeated call reports ALREADY_CREDITED instead of paying out
	// again.
	ProcessToWallet(ctx context.Context, refundID int64) (*model.RefundRequest, error)
	Get(ctx context.Context, refundID int64) (*model.RefundRequest, error)
	ListByUser(ctx context.Context, userID int64) ([]model.RefundRequest, error)
	ListPending(ctx context.Context) ([]model.RefundRequest, error)
}

type service struct {
	db *sql.DB
	r  refundrepo.Repo
	or orderrepo.Repo
	wr walletrepo.Repo
}

func New(db *sql.DB, r refundrepo.Repo, or orderrepo.Repo, wr walletrepo.Repo) Service {
	return &service{db: db, r: r, or: or, wr: wr}
}

func (s *service) Create(ctx context.Context, userID, orderID int64, amount float64, reason, category string) (*model.RefundRequest, error) {
	if amount <= 0 || strings.TrimSpace(reason) == "" {
		return nil, makeErr(ErrBadInput)
	}
	o, err := s.or.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if o.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	if o.Status != model.OrderCompleted {
		return nil, makeErr(ErrInvalidState)
	}
	if amount > o.FinalAmount {
		return nil, makeErr(ErrBadInput)
	}

	rr := &model.RefundRequest{
		UserID:   userID,
		OrderID:  orderID,
		Amount:   amount,
		Reason:   strings.TrimSpace(reason),
		Category: category,
	}
	if _, err := s.r.Insert(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}

func (s *service) Review(ctx context.Context, refundID int64, reviewer, action, notes string) (*model.RefundRequest, error) {
	notes = strings.TrimSpace(notes)

	var status model.RefundStatus
	var adminNotes, rejectionReason *string
	switch action {
	case ActionApprove:
		// Approval needs a resolution path for the payout.
		if notes == "" {
			return nil, makeErr(ErrBadInput)
		}
		status = model.RefundApproved
		adminNotes = &notes
	case ActionReject:
		if notes == "" {
			return nil, makeErr(ErrBadInput)
		}
		status = model.RefundRejected
		rejectionReason = &notes
	default:
		return nil, makeErr(ErrBadInput)
	}

	ok, err := s.r.SetReviewed(ctx, refundID, status, reviewer, adminNotes, rejectionReason)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.get(ctx, refundID); err != nil {
			return nil, err
		}
		return nil, makeErr(ErrInvalidState)
	}
	return s.get(ctx, refundID)
}

func (s *service) ProcessToWallet(ctx context.Context, refundID int64) (*model.RefundRequest, error) {
	rr, err := s.get(ctx, refundID)
	if err != nil {
		return nil, err
	}
	if rr.WalletCredited {
		return nil, makeErr(ErrAlreadyCredited)
	}
	if rr.Status != model.RefundApproved {
		return nil, makeErr(ErrInvalidState)
	}
	if _, err := s.wr.GetOrCreateWallet(ctx, rr.UserID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.r.MarkCredited(ctx, tx, refundID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Raced with another processor; the flag check above was stale.
		err = makeErr(ErrAlreadyCredited)
		return nil, err
	}

	if _, err = s.wr.CreditBalance(ctx, tx, rr.UserID, rr.Amount); err != nil {
		return nil, err
	}
	ref := strconv.FormatInt(refundID, 10)
	txnID, err := s.wr.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      rr.UserID,
		Type:        model.TxRefund,
		Amount:      rr.Amount,
		Description: fmt.Sprintf("Refund #%d for order #%d", refundID, rr.OrderID),
		ReferenceID: &ref,
	})
	if err != nil {
		return nil, err
	}
	if err = s.r.SetTransactionID(ctx, tx, refundID, txnID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.get(ctx, refundID)
}

func (s *service) Get(ctx context.Context, refundID int64) (*model.RefundRequest, error) {
	return s.get(ctx, refundID)
}

func (s *service) get(ctx context.Context, refundID int64) (*model.RefundRequest, error) {
	rr, err := s.r.Get(ctx, refundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return rr, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]model.RefundRequest, error) {
	return s.r.ListByUser(ctx, userID)
}

func (s *service) ListPending(ctx context.Context) ([]model.RefundRequest, error) {
	return s.r.ListPending(ctx)
}
