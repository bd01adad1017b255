package order

type OrderItemReq struct {
	Name     string  `json:"name" validate:"required"`
	Quantity int64   `json:"quantity" validate:"required,gt=0"`
	Price    float64 `json:"price" validate:"gte=0"`
}

// CreateOrderReq represents an order creation payload
// swagger:model CreateOrderReq
type CreateOrderReq struct {
	Items         []OrderItemReq `json:"items" validate:"required,min=1,dive"`
	Branch        string         `json:"branch" validate:"required"`
	VoucherCode   string         `json:"voucherCode"`
	PaymentMethod string         `json:"paymentMethod" validate:"required,oneof=wallet gateway"`
	CoinsToUse    int64          `json:"coinsToUse" validate:"gte=0"`
}

// PayOrderReq represents a resume-checkout payload
// swagger:model PayOrderReq
type PayOrderReq struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=wallet gateway"`
	VoucherCode   string `json:"voucherCode"`
	CoinsToUse    int64  `json:"coinsToUse" validate:"gte=0"`
}
