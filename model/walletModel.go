// model/wallet.go
package model

import "time"

type TxType string

const (
	TxTopup  TxType = "topup"
	TxOrder  TxType = "order"
	TxRefund TxType = "refund"
	TxCoins  TxType = "coins"
)

// Wallet is the single mutable balance per user. Created lazily with zero
// balance on first access, never deleted.
type Wallet struct {
	UserID    int64     `json:"user_id"`
	Balance   float64   `json:"balance"`
	Coins     int64     `json:"coins"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an append-only record of a wallet mutation. Amount is
// signed: credits positive, debits negative.
type Transaction struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Type        TxType    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	ReferenceID *string   `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TopupStatus string

const (
	TopupPending   TopupStatus = "pending"
	TopupCompleted TopupStatus = "completed"
)

type TopUp struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	Amount        float64     `json:"amount"`
	PaymentMethod string      `json:"payment_method"`
	Status        TopupStatus `json:"status"`
	SessionID     *string     `json:"session_id,omitempty"`
	CheckoutURL   *string     `json:"checkout_url,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// TopupRefPrefix marks a gateway reference number as belonging to a top-up
// rather than an order. The webhook handler routes on it.
const TopupRefPrefix = "top_"

// CreateTopupReq represents a top-up request payload
// swagger:model CreateTopupReq
type CreateTopupReq struct {
	UserID        int64   `json:"userId" validate:"omitempty,gt=0"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"paymentMethod"`
}

// CreateLinkReq represents a payment-link request payload
// swagger:model CreateLinkReq
type CreateLinkReq struct {
	UserID int64   `json:"userId" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}
