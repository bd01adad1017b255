// model/voucher.go
package model

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Voucher struct {
	ID            int64        `json:"id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue float64      `json:"discount_value"`
	MinPurchase   float64      `json:"min_purchase"`
	MaxDiscount   *float64     `json:"max_discount,omitempty"`
	ValidFrom     time.Time    `json:"valid_from"`
	ValidUntil    time.Time    `json:"valid_until"`
	Active        bool         `json:"active"`
	UsageLimit    int64        `json:"usage_limit"`
	UsageCount    int64        `json:"usage_count"`
	CreatedAt     time.Time    `json:"created_at"`
}

// VoucherResult is the outcome of applying a code to a subtotal. A rejected
// code is a normal result (Success=false with a reason), not an error.
type VoucherResult struct {
	Success  bool    `json:"success"`
	Discount float64 `json:"discount"`
	Message  string  `json:"message,omitempty"`
}
