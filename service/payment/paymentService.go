package paymentsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cafeorder/model"
	"cafeorder/repository/paygate"
	ordersvc "cafeorder/service/order"
	walletsvc "cafeorder/service/wallet"
)

// Event types the gateway pushes for a finished hosted checkout.
const (
	eventCheckoutPaid = "checkout_session.payment.paid"
	eventPaymentPaid  = "payment.paid"
)

type Service interface {
	// HandleWebhook verifies and processes one gateway push. The HTTP layer
	// acknowledges the gateway regardless of the returned error; the error
	// is for logging only.
	HandleWebhook(ctx context.Context, raw []byte, sigHeader string) error
}

type service struct {
	x       paygate.Repo
	wallets walletsvc.Service
	orders  ordersvc.Service
	log     *slog.Logger
}

func New(x paygate.Repo, wallets walletsvc.Service, orders ordersvc.Service, log *slog.Logger) Service {
	return &service{x: x, wallets: wallets, orders: orders, log: log}
}

// webhookEnvelope is the typed shape of a gateway event. The reference
// number usually rides inside the nested resource; when it is missing the
// session id is resolved against the gateway instead.
type webhookEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					ReferenceNumber string `json:"reference_number"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

func (s *service) HandleWebhook(ctx context.Context, raw []byte, sigHeader string) error {
	if err := s.x.VerifySignature(sigHeader, raw); err != nil {
		return fmt.Errorf("webhook signature rejected: %w", err)
	}

	var ev webhookEnvelope
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("bad webhook json: %w", err)
	}

	eventType := ev.Data.Attributes.Type
	switch eventType {
	case eventCheckoutPaid, eventPaymentPaid:
	default:
		s.log.Info("webhook ignored", "event", eventType)
		return nil
	}

	ref := ev.Data.Attributes.Data.Attributes.ReferenceNumber
	if ref == "" {
		sessionID := ev.Data.Attributes.Data.ID
		if sessionID == "" {
			return errors.New("webhook carries neither reference number nor session id")
		}
		st, err := s.x.GetSessionStatus(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("resolve session %s: %w", sessionID, err)
		}
		ref = st.ReferenceNumber
		if ref == "" {
			return fmt.Errorf("session %s has no reference number", sessionID)
		}
	}

	if rest, found := strings.CutPrefix(ref, model.TopupRefPrefix); found {
		topUpID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed top-up reference %q", ref)
		}
		if _, err := s.wallets.CompleteTopUp(ctx, topUpID); err != nil {
			return fmt.Errorf("complete top-up %d: %w", topUpID, err)
		}
		s.log.Info("top-up confirmed via webhook", "topup_id", topUpID)
		return nil
	}

	orderID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed order reference %q", ref)
	}
	if _, err := s.orders.Complete(ctx, orderID); err != nil {
		return fmt.Errorf("complete order %d: %w", orderID, err)
	}
	s.log.Info("order confirmed via webhook", "order_id", orderID)
	return nil
}
