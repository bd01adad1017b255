package paygate

import (
	"context"
	"fmt"
)

type CheckoutReq struct {
	Amount      float64
	Description string
	// ReferenceID is echoed back by the gateway in webhook events and
	// session lookups; it is the only key mapping a payment to a local
	// order or top-up.
	ReferenceID string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
}

type SessionStatus struct {
	ReferenceNumber string
	Paid            bool
	Amount          float64
}

type Repo interface {
	CreateCheckout(ctx context.Context, req CheckoutReq) (*CheckoutSession, error)
	GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
	VerifySignature(sigHeader string, rawBody []byte) error
}

// GatewayError carries the raw gateway response so callers can log it.
// Callers must treat it as "nothing happened": no local state transition.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error: status=%d body=%s", e.Status, e.Body)
}
