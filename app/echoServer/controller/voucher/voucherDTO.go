package voucher

import "time"

// ApplyVoucherReq represents a voucher check payload
// swagger:model ApplyVoucherReq
type ApplyVoucherReq struct {
	Code       string  `json:"code" validate:"required"`
	OrderTotal float64 `json:"orderTotal" validate:"gte=0"`
}

// CreateVoucherReq represents an admin voucher creation payload
// swagger:model CreateVoucherReq
type CreateVoucherReq struct {
	Code          string    `json:"code" validate:"required"`
	DiscountType  string    `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue float64   `json:"discountValue" validate:"required,gt=0"`
	MinPurchase   float64   `json:"minPurchase" validate:"gte=0"`
	MaxDiscount   *float64  `json:"maxDiscount" validate:"omitempty,gt=0"`
	ValidFrom     time.Time `json:"validFrom" validate:"required"`
	ValidUntil    time.Time `json:"validUntil" validate:"required"`
	Active        bool      `json:"active"`
	UsageLimit    int64     `json:"usageLimit" validate:"required,gt=0"`
}
