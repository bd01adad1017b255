package paygate

import (
	"context"
	"fmt"
	"sync"
)

// FakeStore owns the fake gateway's session state. It is passed to NewFake
// explicitly so tests control their own instance; there is no process-wide
// state.
type FakeStore struct {
	mu       sync.Mutex
	seq      int64
	sessions map[string]*fakeSession
}

type fakeSession struct {
	ref    string
	amount float64
	paid   bool
}

func NewFakeStore() *FakeStore {
	return &FakeStore{sessions: make(map[string]*fakeSession)}
}

// MarkPaid flips a session to paid, simulating the customer finishing the
// hosted checkout. Unknown session ids are ignored.
func (s *FakeStore) MarkPaid(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.paid = true
	}
}

type fakeRepo struct {
	store         *FakeStore
	webhookSecret string
}

// NewFake builds a gateway double with the same contract as the live
// client, backed by the given store.
func NewFake(store *FakeStore, webhookSecret string) Repo {
	return &fakeRepo{store: store, webhookSecret: webhookSecret}
}

func (r *fakeRepo) CreateCheckout(_ context.Context, req CheckoutReq) (*CheckoutSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.seq++
	id := fmt.Sprintf("cs_test_%d", r.store.seq)
	r.store.sessions[id] = &fakeSession{ref: req.ReferenceID, amount: req.Amount}
	return &CheckoutSession{
		SessionID:   id,
		CheckoutURL: "https://checkout.test/" + id,
	}, nil
}

func (r *fakeRepo) GetSessionStatus(_ context.Context, sessionID string) (*SessionStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sess, ok := r.store.sessions[sessionID]
	if !ok {
		return nil, &GatewayError{Status: 404, Body: "session not found"}
	}
	return &SessionStatus{ReferenceNumber: sess.ref, Paid: sess.paid, Amount: sess.amount}, nil
}

func (r *fakeRepo) VerifySignature(sigHeader string, rawBody []byte) error {
	if r.webhookSecret == "" {
		return nil
	}
	ts, sig, err := splitSignatureHeader(sigHeader)
	if err != nil {
		return err
	}
	if ComputeSignature(r.webhookSecret, ts, rawBody) != sig {
		return fmt.Errorf("fake gateway: signature mismatch")
	}
	return nil
}
