package refund

// CreateRefundReq represents a refund request payload
// swagger:model CreateRefundReq
type CreateRefundReq struct {
	UserID   int64   `json:"userId" validate:"omitempty,gt=0"`
	OrderID  int64   `json:"orderId" validate:"required,gt=0"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Reason   string  `json:"reason" validate:"required"`
	Category string  `json:"category"`
}

// ReviewRefundReq represents an admin review payload
// swagger:model ReviewRefundReq
type ReviewRefundReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Notes  string `json:"notes" validate:"required"`
}
