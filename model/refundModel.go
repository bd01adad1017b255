// model/refund.go
package model

import "time"

type RefundStatus string

const (
	RefundPending     RefundStatus = "Pending"
	RefundUnderReview RefundStatus = "UnderReview"
	RefundApproved    RefundStatus = "Approved"
	RefundRejected    RefundStatus = "Rejected"
	RefundCompleted   RefundStatus = "Completed"
)

type RefundRequest struct {
	ID              int64        `json:"id"`
	UserID          int64        `json:"user_id"`
	OrderID         int64        `json:"order_id"`
	Amount          float64      `json:"amount"`
	Reason          string       `json:"reason"`
	Category        string       `json:"category"`
	Status          RefundStatus `json:"status"`
	AdminNotes      *string      `json:"admin_notes,omitempty"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	ReviewedBy      *string      `json:"reviewed_by,omitempty"`
	// WalletCredited guards against a refund being paid out twice.
	WalletCredited bool       `json:"wallet_credited"`
	TransactionID  *int64     `json:"transaction_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}
