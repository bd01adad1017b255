// service/payment/payment_service_test.go
package paymentsvc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"cafeorder/model"
	"cafeorder/repository/paygate"
	ordersvc "cafeorder/service/order"
	walletsvc "cafeorder/service/wallet"

	"github.com/stretchr/testify/require"
)

// --- gateway mock ---

type gateMock struct {
	verifyErr error
	statusFn  func(ctx context.Context, sessionID string) (*paygate.SessionStatus, error)
}

var _ paygate.Repo = (*gateMock)(nil)

func (g *gateMock) CreateCheckout(ctx context.Context, req paygate.CheckoutReq) (*paygate.CheckoutSession, error) {
	return nil, nil
}

func (g *gateMock) GetSessionStatus(ctx context.Context, sessionID string) (*paygate.SessionStatus, error) {
	if g.statusFn != nil {
		return g.statusFn(ctx, sessionID)
	}
	return nil, &paygate.GatewayError{Status: 404, Body: "session not found"}
}

func (g *gateMock) VerifySignature(sigHeader string, rawBody []byte) error { return g.verifyErr }

// --- wallet service mock (only CompleteTopUp matters here) ---

type walletSvcMock struct {
	completedTopUps []int64
}

var _ walletsvc.Service = (*walletSvcMock)(nil)

func (m *walletSvcMock) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	return nil, nil
}

func (m *walletSvcMock) AddBalance(ctx context.Context, userID int64, amount float64, refID *string, description string, txType model.TxType) (*model.Wallet, error) {
	return nil, nil
}

func (m *walletSvcMock) DeductBalance(ctx context.Context, userID int64, amount float64, refID *string, description string) (*model.Wallet, error) {
	return nil, nil
}

func (m *walletSvcMock) UseCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error) {
	return nil, nil
}

func (m *walletSvcMock) AddCoins(ctx context.Context, userID, coins int64, refID *string, description string) (*model.Wallet, error) {
	return nil, nil
}

func (m *walletSvcMock) Transactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	return nil, nil
}

func (m *walletSvcMock) CreateTopUp(ctx context.Context, userID int64, amount float64, method string) (*model.TopUp, error) {
	return nil, nil
}

func (m *walletSvcMock) CompleteTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	m.completedTopUps = append(m.completedTopUps, topUpID)
	return &model.TopUp{ID: topUpID, Status: model.TopupCompleted}, nil
}

func (m *walletSvcMock) GetTopUp(ctx context.Context, topUpID int64) (*model.TopUp, error) {
	return nil, nil
}

func (m *walletSvcMock) ListTopUps(ctx context.Context, userID int64) ([]model.TopUp, error) {
	return nil, nil
}

// --- order service mock (only Complete matters here) ---

type orderSvcMock struct {
	completedOrders []int64
}

var _ ordersvc.Service = (*orderSvcMock)(nil)

func (m *orderSvcMock) Create(ctx context.Context, in ordersvc.CreateIn) (*model.Order, error) {
	return nil, nil
}

func (m *orderSvcMock) Pay(ctx context.Context, userID, orderID int64, in ordersvc.PayIn) (*model.Order, error) {
	return nil, nil
}

func (m *orderSvcMock) Complete(ctx context.Context, orderID int64) (*model.Order, error) {
	m.completedOrders = append(m.completedOrders, orderID)
	return &model.Order{ID: orderID, Status: model.OrderCompleted}, nil
}

func (m *orderSvcMock) Verify(ctx context.Context, orderID int64) (*model.Order, string, error) {
	return nil, "", nil
}

func (m *orderSvcMock) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	return nil, nil
}

func (m *orderSvcMock) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return nil, nil
}

func newSvc(gm *gateMock) (Service, *walletSvcMock, *orderSvcMock) {
	wm := &walletSvcMock{}
	om := &orderSvcMock{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(gm, wm, om, log), wm, om
}

func paidEvent(eventType, sessionID, ref string) []byte {
	return []byte(`{
	  "data": {
	    "id": "evt_1",
	    "attributes": {
	      "type": "` + eventType + `",
	      "data": {
	        "id": "` + sessionID + `",
	        "attributes": {"reference_number": "` + ref + `"}
	      }
	    }
	  }
	}`)
}

// --- tests ---

func TestHandleWebhook_BadSignature(t *testing.T) {
	gm := &gateMock{verifyErr: &paygate.GatewayError{Status: 401, Body: "bad sig"}}
	s, wm, om := newSvc(gm)

	err := s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_1", "42"), "t=1,te=bogus")
	require.Error(t, err)
	require.Empty(t, wm.completedTopUps)
	require.Empty(t, om.completedOrders)
}

func TestHandleWebhook_IgnoredEvent(t *testing.T) {
	s, wm, om := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), paidEvent("checkout_session.expired", "cs_1", "42"), "")
	require.NoError(t, err)
	require.Empty(t, wm.completedTopUps)
	require.Empty(t, om.completedOrders)
}

func TestHandleWebhook_OrderReference(t *testing.T) {
	s, wm, om := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_1", "42"), "")
	require.NoError(t, err)
	require.Equal(t, []int64{42}, om.completedOrders)
	require.Empty(t, wm.completedTopUps)
}

func TestHandleWebhook_TopUpReference(t *testing.T) {
	s, wm, om := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), paidEvent(eventPaymentPaid, "cs_1", "top_7"), "")
	require.NoError(t, err)
	require.Equal(t, []int64{7}, wm.completedTopUps)
	require.Empty(t, om.completedOrders)
}

func TestHandleWebhook_SessionFallback(t *testing.T) {
	// Some gateway events omit the reference; it is resolved by looking the
	// session up.
	gm := &gateMock{
		statusFn: func(ctx context.Context, sessionID string) (*paygate.SessionStatus, error) {
			require.Equal(t, "cs_9", sessionID)
			return &paygate.SessionStatus{ReferenceNumber: "9", Paid: true}, nil
		},
	}
	s, _, om := newSvc(gm)

	err := s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_9", ""), "")
	require.NoError(t, err)
	require.Equal(t, []int64{9}, om.completedOrders)
}

func TestHandleWebhook_UnresolvableSession(t *testing.T) {
	s, wm, om := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_unknown", ""), "")
	require.Error(t, err)
	require.Empty(t, wm.completedTopUps)
	require.Empty(t, om.completedOrders)
}

func TestHandleWebhook_MalformedReference(t *testing.T) {
	s, _, _ := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_1", "top_abc"), "")
	require.Error(t, err)

	err = s.HandleWebhook(context.Background(), paidEvent(eventCheckoutPaid, "cs_1", "not-a-number"), "")
	require.Error(t, err)
}

func TestHandleWebhook_BadJSON(t *testing.T) {
	s, _, _ := newSvc(&gateMock{})

	err := s.HandleWebhook(context.Background(), []byte("{nope"), "")
	require.Error(t, err)
}

func TestHandleWebhook_ReplayIsSafe(t *testing.T) {
	s, _, om := newSvc(&gateMock{})
	body := paidEvent(eventCheckoutPaid, "cs_1", "42")

	require.NoError(t, s.HandleWebhook(context.Background(), body, ""))
	require.NoError(t, s.HandleWebhook(context.Background(), body, ""))
	// Both deliveries funnel into Complete, whose conditional update makes
	// the second a no-op.
	require.Equal(t, []int64{42, 42}, om.completedOrders)
}
