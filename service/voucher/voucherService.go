package voucher

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"cafeorder/model"
	voucherrepo "cafeorder/repository/voucher"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type ErrCode string

const (
	ErrBadInput  ErrCode = "BAD_INPUT"
	ErrCodeTaken ErrCode = "CODE_TAKEN"
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
	// Apply validates a code against a subtotal and computes the discount.
	// A failing validation comes back as Success=false with a reason, not
	// as an error; errors are infrastructure only.
	Apply(ctx context.Context, code string, subtotal float64) (*model.VoucherResult, error)

	Create(ctx context.Context, v *model.Voucher) (*model.Voucher, error)
	ListActive(ctx context.Context) ([]model.Voucher, error)
}

type service struct {
	r   voucherrepo.Repo
	now func() time.Time
}

func New(r voucherrepo.Repo) Service {
	return &service{r: r, now: time.Now}
}

func (s *service) Apply(ctx context.Context, code string, subtotal float64) (*model.VoucherResult, error) {
	v, err := s.r.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reject("voucher not found"), nil
		}
		return nil, err
	}
	return Evaluate(v, subtotal, s.now()), nil
}

func reject(msg string) *model.VoucherResult {
	return &model.VoucherResult{Success: false, Discount: 0, Message: msg}
}

// Evaluate runs the validation chain (active -> window -> usage -> minimum
// purchase) and computes the discount. Pure so the order flow can reuse it.
func Evaluate(v *model.Voucher, subtotal float64, now time.Time) *model.VoucherResult {
	if !v.Active {
		return reject("voucher is not active")
	}
	if now.Before(v.ValidFrom) || now.After(v.ValidUntil) {
		return reject("voucher is outside its validity period")
	}
	if v.UsageCount >= v.UsageLimit {
		return reject("voucher usage limit reached")
	}
	if subtotal < v.MinPurchase {
		return reject("order total is below the voucher minimum purchase")
	}

	var discount float64
	switch v.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal * v.DiscountValue / 100
		if v.MaxDiscount != nil && discount > *v.MaxDiscount {
			discount = *v.MaxDiscount
		}
	case model.DiscountFixed:
		discount = math.Min(v.DiscountValue, subtotal)
	default:
		return reject("unknown discount type")
	}

	return &model.VoucherResult{Success: true, Discount: discount}
}

func (s *service) Create(ctx context.Context, v *model.Voucher) (*model.Voucher, error) {
	v.Code = strings.ToUpper(strings.TrimSpace(v.Code))
	if v.Code == "" || v.DiscountValue <= 0 || v.UsageLimit <= 0 {
		return nil, makeErr(ErrBadInput)
	}
	if v.DiscountType != model.DiscountPercentage && v.DiscountType != model.DiscountFixed {
		return nil, makeErr(ErrBadInput)
	}
	if !v.ValidUntil.After(v.ValidFrom) {
		return nil, makeErr(ErrBadInput)
	}

	if _, err := s.r.Insert(ctx, v); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, makeErr(ErrCodeTaken)
		}
		return nil, err
	}
	return v, nil
}

func (s *service) ListActive(ctx context.Context) ([]model.Voucher, error) {
	return s.r.ListActive(ctx)
}
