// model/order.go
package model

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
)

const (
	PaymentWallet  = "wallet"
	PaymentGateway = "gateway"
)

type OrderItem struct {
	ID       int64   `json:"id"`
	OrderID  int64   `json:"order_id"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"user_id"`
	Branch          string      `json:"branch"`
	Items           []OrderItem `json:"items"`
	Status          OrderStatus `json:"status"`
	PaymentMethod   string      `json:"payment_method"`
	VoucherCode     *string     `json:"voucher_code,omitempty"`
	VoucherDiscount float64     `json:"voucher_discount"`
	CoinsUsed       int64       `json:"coins_used"`
	CoinsDiscount   float64     `json:"coins_discount"`
	FinalAmount     float64     `json:"final_amount"`
	SessionID       *string     `json:"session_id,omitempty"`
	CheckoutURL     *string     `json:"checkout_url,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

// Subtotal sums the line items before any discount.
func (o *Order) Subtotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price * float64(it.Quantity)
	}
	return sum
}
