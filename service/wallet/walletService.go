package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"cafeorder/model"
	"cafeorder/repository/paygate"
	walletrepo "cafeorder/repository/wallet"
)

type ErrCode string

const (
	ErrInvalidAmount     ErrCode = "INVALID_AMOUNT"
	ErrInsufficientFunds ErrCode = "INSUFFICIENT_FUNDS"
	ErrInsufficientCoins ErrCode = "INSUFFICIENT_COINS"
	ErrNotFound          ErrCode = "NOT_FOUND"
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

type Service interface {
	// GetWallet returns the wallet, creating a zero-balance one on first
	// access.
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	AddBalance(ctx context.Context, userID int64, amount float64, refID *string, description string, txType model.TxType) (*model.Wallet, error)
	DeductBalance(ctx context.Context, userID int64, amount float64, refID *string, description string) (*model.Wallet, error)
	UseCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error)
	AddCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error)
	Transactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error)

	// Top-up lifecycle: create a pending intent with a gateway checkout,
	// complete it exactly once when the payment confirms.
	CreateTopUp(ctx context.Context, userID int64, amount float64, method string) (*model.TopUp, error)
	CompleteTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error)
	GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error)
	ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error)
}

type service struct {
	db         *sql.DB
	r          walletrepo.Repo
	x          paygate.Repo
	successURL string
	cancelURL  string
}

func New(db *sql.DB, r walletrepo.Repo, x paygate.Repo, successURL, cancelURL string) Service {
	return &service{db: db, r: r, x: x, successURL: successURL, cancelURL: cancelURL}
}

func (s *service) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.r.GetOrCreateWallet(ctx, userID)
}

func (s *service) AddBalance(ctx context.Context, userID int64, amount float64, refID *string, description string, txType model.TxType) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	if _, err := s.r.GetOrCreateWallet(ctx, userID); err != nil {
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

	if _, err = s.r.CreditBalance(ctx, tx, userID, amount); err != nil {
		return nil, err
	}
	_, err = s.r.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		ReferenceID: refID,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.GetWallet(ctx, userID)
}

func (s *service) DeductBalance(ctx context.Context, userID int64, amount float64, refID *string, description string) (*model.Wallet, error) {
	if amount <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	if _, err := s.r.GetOrCreateWallet(ctx, userID); err != nil {
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

	_, ok, err := s.r.DebitBalance(ctx, tx, userID, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = makeErr(ErrInsufficientFunds)
		return nil, err
	}
	_, err = s.r.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      userID,
		Type:        model.TxOrder,
		Amount:      -amount,
		Description: description,
		ReferenceID: refID,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.GetWallet(ctx, userID)
}

func (s *service) UseCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error) {
	if coins <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	if _, err := s.r.GetOrCreateWallet(ctx, userID); err != nil {
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

	_, ok, err := s.r.DebitCoins(ctx, tx, userID, coins)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = makeErr(ErrInsufficientCoins)
		return nil, err
	}
	_, err = s.r.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      userID,
		Type:        model.TxCoins,
		Amount:      -float64(coins),
		Description: description,
		ReferenceID: refID,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.GetWallet(ctx, userID)
}

func (s *service) AddCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error) {
	if coins <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	if _, err := s.r.GetOrCreateWallet(ctx, userID); err != nil {
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

	if _, err = s.r.CreditCoins(ctx, tx, userID, coins); err != nil {
		return nil, err
	}
	_, err = s.r.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      userID,
		Type:        model.TxCoins,
		Amount:      float64(coins),
		Description: description,
		ReferenceID: refID,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.GetWallet(ctx, userID)
}

func (s *service) Transactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.r.ListTransactions(ctx, userID, limit)
}

func (s *service) CreateTopUp(ctx context.Context, userID int64, amount float64, method string) (*model.TopUp, error) {
	if amount <= 0 {
		return nil, makeErr(ErrInvalidAmount)
	}
	id, err := s.r.InsertTopUp(ctx, userID, amount, method)
	if err != nil {
		return nil, err
	}

	ref := model.TopupRefPrefix + strconv.FormatInt(id, 10)
	sess, err := s.x.CreateCheckout(ctx, paygate.CheckoutReq{
		Amount:      amount,
		Description: fmt.Sprintf("Wallet top-up #%d", id),
		ReferenceID: ref,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		// The pending intent stays behind with no session; nothing has
		// moved and a later attempt starts fresh.
		return nil, err
	}
	if err := s.r.SetTopUpSession(ctx, id, sess.SessionID, sess.CheckoutURL); err != nil {
		return nil, err
	}
	return s.r.GetTopUp(ctx, id)
}

// CompleteTopUp credits the wallet exactly once per top-up. Replayed webhook
// deliveries and verify polls land on the conditional status flip and no-op.
func (s *service) CompleteTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	t, err := s.r.GetTopUp(ctx, topUpID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if t.Status == model.TopupCompleted {
		return t, nil
	}
	if _, err := s.r.GetOrCreateWallet(ctx, t.UserID); err != nil {
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

	ok, err := s.r.MarkTopUpCompleted(ctx, tx, topUpID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race: someone else completed it between the read above
		// and this update.
		_ = tx.Rollback()
		return s.r.GetTopUp(ctx, topUpID)
	}

	if _, err = s.r.CreditBalance(ctx, tx, t.UserID, t.Amount); err != nil {
		return nil, err
	}
	ref := model.TopupRefPrefix + strconv.FormatInt(topUpID, 10)
	_, err = s.r.InsertTransaction(ctx, tx, &model.Transaction{
		UserID:      t.UserID,
		Type:        model.TxTopup,
		Amount:      t.Amount,
		Description: fmt.Sprintf("Top-up #%d confirmed", topUpID),
		ReferenceID: &ref,
	})
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.GetTopUp(ctx, topUpID)
}

func (s *service) GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	t, err := s.r.GetTopUp(ctx, topUpID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

func (s *service) ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error) {
	return s.r.ListTopUps(ctx, userID)
}
