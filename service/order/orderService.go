package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"cafeorder/model"
	orderrepo "cafeorder/repository/order"
	"cafeorder/repository/paygate"
	voucherrepo "cafeorder/repository/voucher"
	walletrepo "cafeorder/repository/wallet"
	"cafeorder/service/voucher"
)

type ErrCode string

const (
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrNotOwner          ErrCode = "NOT_OWNER"
	ErrInvalidState      ErrCode = "INVALID_STATE"
	ErrBadInput          ErrCode = "BAD_INPUT"
	ErrInsufficientFunds ErrCode = "INSUFFICIENT_FUNDS"
	ErrInsufficientCoins ErrCode = "INSUFFICIENT_COINS"
	ErrVoucherRejected   ErrCode = "VOUCHER_REJECTED"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode          { return e.code }
func makeErr(c ErrCode) error               { return codedError{code: c} }
func makeErrMsg(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type ItemIn struct {
	Name     string
	Quantity int64
	Price    float64
}

type CreateIn struct {
	UserID        int64
	Branch        string
	Items         []ItemIn
	VoucherCode   string
	PaymentMethod string
	CoinsToUse    int64
}

type PayIn struct {
	PaymentMethod string
	VoucherCode   string
	CoinsToUse    int64
}

type Service interface {
	Create(ctx context.Context, in CreateIn) (*model.Order, error)
	// Pay resumes checkout on an existing pending order.
	Pay(ctx context.Context, userID, orderID int64, in PayIn) (*model.Order, error)
	// Complete transitions pending -> completed exactly once; calling it on
	// an already-completed order returns the order unchanged.
	Complete(ctx context.Context, orderID int64) (*model.Order, error)
	// Verify polls the gateway for a pending order's session and completes
	// it if the payment went through. Safe to call repeatedly.
	Verify(ctx context.Context, orderID int64) (*model.Order, string, error)
	Get(ctx context.Context, orderID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
}

type service struct {
	db         *sql.DB
	r          orderrepo.Repo
	wr         walletrepo.Repo
	vr         voucherrepo.Repo
	x          paygate.Repo
	successURL string
	cancelURL  string
	now        func() time.Time
}

func New(db *sql.DB, r orderrepo.Repo, wr walletrepo.Repo, vr voucherrepo.Repo, x paygate.Repo, successURL, cancelURL string) Service {
	return &service{
		db: db, r: r, wr: wr, vr: vr, x: x,
		successURL: successURL, cancelURL: cancelURL,
		now: time.Now,
	}
}

// discounts holds the resolved promotion amounts for one settlement attempt.
type discounts struct {
	voucherCode     *string
	voucherDiscount float64
	coinsUsed       int64
	coinsDiscount   float64
	finalAmount     float64
}

// resolveDiscounts applies the voucher, caps coin redemption by what is left
// to pay, and floors the final amount at zero. consumed is the discount a
// pending order already carries; it shrinks the remaining payable amount but
// is not part of the returned discounts.
func (s *service) resolveDiscounts(ctx context.Context, subtotal float64, voucherCode string, coinsToUse int64, consumed float64) (*discounts, error) {
	d := &discounts{}

	if voucherCode != "" {
		v, err := s.vr.GetByCode(ctx, voucherCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, makeErrMsg(ErrVoucherRejected, "voucher not found")
			}
			return nil, err
		}
		res := voucher.Evaluate(v, subtotal, s.now())
		if !res.Success {
			return nil, makeErrMsg(ErrVoucherRejected, res.Message)
		}
		d.voucherCode = &v.Code
		d.voucherDiscount = res.Discount
	}

	remaining := subtotal - consumed - d.voucherDiscount
	if coinsToUse > 0 && remaining > 0 {
		maxCoins := int64(math.Ceil(remaining))
		d.coinsUsed = coinsToUse
		if d.coinsUsed > maxCoins {
			d.coinsUsed = maxCoins
		}
		d.coinsDiscount = float64(d.coinsUsed)
	}

	d.finalAmount = subtotal - consumed - d.voucherDiscount - d.coinsDiscount
	if d.finalAmount < 0 {
		d.finalAmount = 0
	}
	return d, nil
}

func (s *service) Create(ctx context.Context, in CreateIn) (*model.Order, error) {
	if in.UserID <= 0 || len(in.Items) == 0 || in.CoinsToUse < 0 {
		return nil, makeErr(ErrBadInput)
	}
	if in.PaymentMethod != model.PaymentWallet && in.PaymentMethod != model.PaymentGateway {
		return nil, makeErrMsg(ErrBadInput, "unknown payment method")
	}
	items := make([]model.OrderItem, 0, len(in.Items))
	var subtotal float64
	for _, it := range in.Items {
		if it.Name == "" || it.Quantity <= 0 || it.Price < 0 {
			return nil, makeErrMsg(ErrBadInput, "invalid order item")
		}
		items = append(items, model.OrderItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
		subtotal += it.Price * float64(it.Quantity)
	}

	d, err := s.resolveDiscounts(ctx, subtotal, in.VoucherCode, in.CoinsToUse, 0)
	if err != nil {
		return nil, err
	}

	if _, err := s.wr.GetOrCreateWallet(ctx, in.UserID); err != nil {
		return nil, err
	}

	// Wallet settlement and a fully-discounted total both complete
	// synchronously; everything else waits for the gateway.
	settleNow := in.PaymentMethod == model.PaymentWallet || d.finalAmount == 0

	o := &model.Order{
		UserID:          in.UserID,
		Branch:          in.Branch,
		Items:           items,
		Status:          model.OrderPending,
		PaymentMethod:   in.PaymentMethod,
		VoucherCode:     d.voucherCode,
		VoucherDiscount: d.voucherDiscount,
		CoinsUsed:       d.coinsUsed,
		CoinsDiscount:   d.coinsDiscount,
		FinalAmount:     d.finalAmount,
	}
	if settleNow {
		now := s.now()
		o.Status = model.OrderCompleted
		o.CompletedAt = &now
	}

	// One transaction for coins, voucher usage, the debit, and the order
	// row itself: an InsufficientFunds failure rolls everything back and
	// leaves no promotion consumed.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if d.coinsUsed > 0 {
		var ok bool
		if _, ok, err = s.wr.DebitCoins(ctx, tx, in.UserID, d.coinsUsed); err != nil {
			return nil, err
		} else if !ok {
			err = makeErr(ErrInsufficientCoins)
			return nil, err
		}
	}
	if settleNow && in.PaymentMethod == model.PaymentWallet && d.finalAmount > 0 {
		var ok bool
		if _, ok, err = s.wr.DebitBalance(ctx, tx, in.UserID, d.finalAmount); err != nil {
			return nil, err
		} else if !ok {
			err = makeErr(ErrInsufficientFunds)
			return nil, err
		}
	}

	if _, err = s.r.InsertOrder(ctx, tx, o); err != nil {
		return nil, err
	}
	if err = s.r.InsertItems(ctx, tx, o.ID, o.Items); err != nil {
		return nil, err
	}

	ref := strconv.FormatInt(o.ID, 10)
	if d.coinsUsed > 0 {
		_, err = s.wr.InsertTransaction(ctx, tx, &model.Transaction{
			UserID:      in.UserID,
			Type:        model.TxCoins,
			Amount:      -float64(d.coinsUsed),
			Description: fmt.Sprintf("Coins redeemed on order #%d", o.ID),
			ReferenceID: &ref,
		})
		if err != nil {
			return nil, err
		}
	}
	if settleNow && in.PaymentMethod == model.PaymentWallet && d.finalAmount > 0 {
		_, err = s.wr.InsertTransaction(ctx, tx, &model.Transaction{
			UserID:      in.UserID,
			Type:        model.TxOrder,
			Amount:      -d.finalAmount,
			Description: fmt.Sprintf("Order #%d paid from wallet", o.ID),
			ReferenceID: &ref,
		})
		if err != nil {
			return nil, err
		}
	}
	if d.voucherCode != nil {
		var ok bool
		if ok, err = s.vr.IncrementUsage(ctx, tx, *d.voucherCode); err != nil {
			return nil, err
		} else if !ok {
			err = makeErrMsg(ErrVoucherRejected, "voucher usage limit reached")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if !settleNow {
		if err := s.attachCheckout(ctx, o); err != nil {
			return nil, err
		}
	}
	return s.r.Get(ctx, o.ID)
}

// attachCheckout opens a gateway session for a pending order and stores the
// session on it. On gateway failure the order stays pending and unchanged.
func (s *service) attachCheckout(ctx context.Context, o *model.Order) error {
	ref := strconv.FormatInt(o.ID, 10)
	sess, err := s.x.CreateCheckout(ctx, paygate.CheckoutReq{
		Amount:      o.FinalAmount,
		Description: fmt.Sprintf("Order #%d (%s)", o.ID, o.Branch),
		ReferenceID: ref,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return err
	}
	return s.r.SetCheckout(ctx, o.ID, sess.SessionID, sess.CheckoutURL)
}

func (s *service) Pay(ctx context.Context, userID, orderID int64, in PayIn) (*model.Order, error) {
	if in.PaymentMethod != model.PaymentWallet && in.PaymentMethod != model.PaymentGateway {
		return nil, makeErrMsg(ErrBadInput, "unknown payment method")
	}
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	if o.Status != model.OrderPending {
		return nil, makeErr(ErrInvalidState)
	}

	subtotal := o.Subtotal()

	// Promotions already sitting on the order stay as they are; only ones
	// not yet consumed may be added on this attempt. The consumed discounts
	// still count against the coin cap.
	voucherCode := ""
	consumed := 0.0
	if o.VoucherCode == nil {
		voucherCode = in.VoucherCode
	} else {
		consumed += o.VoucherDiscount
	}
	coinsToUse := int64(0)
	if o.CoinsUsed == 0 {
		coinsToUse = in.CoinsToUse
	} else {
		consumed += o.CoinsDiscount
	}

	d, err := s.resolveDiscounts(ctx, subtotal, voucherCode, coinsToUse, consumed)
	if err != nil {
		return nil, err
	}
	if o.VoucherCode != nil {
		d.voucherCode = o.VoucherCode
		d.voucherDiscount = o.VoucherDiscount
	}
	if o.CoinsUsed > 0 {
		d.coinsUsed = o.CoinsUsed
		d.coinsDiscount = o.CoinsDiscount
	}
	d.finalAmount = subtotal - d.voucherDiscount - d.coinsDiscount
	if d.finalAmount < 0 {
		d.finalAmount = 0
	}

	newCoins := coinsToUse > 0 && d.coinsUsed > 0 && o.CoinsUsed == 0
	newVoucher := voucherCode != "" && d.voucherCode != nil && o.VoucherCode == nil
	settleNow := in.PaymentMethod == model.PaymentWallet || d.finalAmount == 0

	if _, err := s.wr.GetOrCreateWallet(ctx, userID); err != nil {
		return nil, err
	}

	o.PaymentMethod = in.PaymentMethod
	o.VoucherCode = d.voucherCode
	o.VoucherDiscount = d.voucherDiscount
	o.CoinsUsed = d.coinsUsed
	o.CoinsDiscount = d.coinsDiscount
	o.FinalAmount = d.finalAmount

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ref := strconv.FormatInt(o.ID, 10)
	if newCoins {
		var ok bool
		if _, ok, err = s.wr.DebitCoins(ctx, tx, userID, d.coinsUsed); err != nil {
			return nil, err
		} else if !ok {
			err = makeErr(ErrInsufficientCoins)
			return nil, err
		}
		_, err = s.wr.InsertTransaction(ctx, tx, &model.Transaction{
			UserID:      userID,
			Type:        model.TxCoins,
			Amount:      -float64(d.coinsUsed),
			Description: fmt.Sprintf("Coins redeemed on order #%d", o.ID),
			ReferenceID: &ref,
		})
		if err != nil {
			return nil, err
		}
	}
	if newVoucher {
		var ok bool
		if ok, err = s.vr.IncrementUsage(ctx, tx, *d.voucherCode); err != nil {
			return nil, err
		} else if !ok {
			err = makeErrMsg(ErrVoucherRejected, "voucher usage limit reached")
			return nil, err
		}
	}
	if err = s.r.SetDiscounts(ctx, tx, o); err != nil {
		return nil, err
	}

	if settleNow {
		if in.PaymentMethod == model.PaymentWallet && d.finalAmount > 0 {
			var ok bool
			if _, ok, err = s.wr.DebitBalance(ctx, tx, userID, d.finalAmount); err != nil {
				return nil, err
			} else if !ok {
				err = makeErr(ErrInsufficientFunds)
				return nil, err
			}
			_, err = s.wr.InsertTransaction(ctx, tx, &model.Transaction{
				UserID:      userID,
				Type:        model.TxOrder,
				Amount:      -d.finalAmount,
				Description: fmt.Sprintf("Order #%d paid from wallet", o.ID),
				ReferenceID: &ref,
			})
			if err != nil {
				return nil, err
			}
		}
		var ok bool
		if ok, err = s.r.MarkCompleted(ctx, tx, o.ID); err != nil {
			return nil, err
		} else if !ok {
			err = makeErr(ErrInvalidState)
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	if !settleNow {
		if err := s.attachCheckout(ctx, o); err != nil {
			return nil, err
		}
	}
	return s.r.Get(ctx, o.ID)
}

func (s *service) Complete(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == model.OrderCompleted {
		return o, nil
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

	ok, err := s.r.MarkCompleted(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Concurrent completion won the conditional update; this call is
		// the safe no-op.
		_ = tx.Rollback()
		return s.r.Get(ctx, orderID)
	}

	if o.FinalAmount > 0 {
		ref := strconv.FormatInt(orderID, 10)
		_, err = s.wr.InsertTransaction(ctx, tx, &model.Transaction{
			UserID:      o.UserID,
			Type:        model.TxOrder,
			Amount:      -o.FinalAmount,
			Description: fmt.Sprintf("Order #%d paid via gateway", orderID),
			ReferenceID: &ref,
		})
		if err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return s.r.Get(ctx, orderID)
}

func (s *service) Verify(ctx context.Context, orderID int64) (*model.Order, string, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	if o.Status == model.OrderCompleted {
		return o, "order already completed", nil
	}
	if o.SessionID == nil {
		return o, "no checkout session to verify", nil
	}

	st, err := s.x.GetSessionStatus(ctx, *o.SessionID)
	if err != nil {
		return nil, "", err
	}
	if !st.Paid {
		return o, "payment not confirmed yet", nil
	}

	completed, err := s.Complete(ctx, orderID)
	if err != nil {
		return nil, "", err
	}
	return completed, "payment confirmed", nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.getOrder(ctx, orderID)
}

func (s *service) getOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := s.r.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.r.ListByUser(ctx, userID)
}
