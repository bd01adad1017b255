package paygate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cafeorder/util/httpx"
)

type httpRepo struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	client        *http.Client
}

// NewHTTP builds the live gateway client. webhookSecret may be empty, in
// which case VerifySignature accepts every payload (dev mode only).
func NewHTTP(baseURL, secretKey, webhookSecret string) Repo {
	return &httpRepo{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		client:        httpx.Client(),
	}
}

func (r *httpRepo) CreateCheckout(ctx context.Context, req CheckoutReq) (*CheckoutSession, error) {
	body := map[string]any{
		"amount":           req.Amount,
		"description":      req.Description,
		"reference_number": req.ReferenceID,
		"success_url":      req.SuccessURL,
		"cancel_url":       req.CancelURL,
	}
	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/checkout_sessions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.secretKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("paygate: empty session id")
	}

	return &CheckoutSession{SessionID: out.ID, CheckoutURL: out.CheckoutURL}, nil
}

func (r *httpRepo) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/checkout_sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.secretKey, "")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{Status: resp.StatusCode, Body: string(raw)}
	}

	var out struct {
		ReferenceNumber string  `json:"reference_number"`
		PaymentStatus   string  `json:"payment_status"`
		Amount          float64 `json:"amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	return &SessionStatus{
		ReferenceNumber: out.ReferenceNumber,
		Paid:            strings.EqualFold(out.PaymentStatus, "paid"),
		Amount:          out.Amount,
	}, nil
}

// VerifySignature checks the `t=<ts>,te=<sig>` header: HMAC-SHA256 over
// "<ts>.<rawBody>" with the webhook secret. With no secret provisioned every
// payload passes; that mode is for local development only.
func (r *httpRepo) VerifySignature(sigHeader string, rawBody []byte) error {
	if r.webhookSecret == "" {
		return nil
	}
	ts, sig, err := splitSignatureHeader(sigHeader)
	if err != nil {
		return err
	}
	want := ComputeSignature(r.webhookSecret, ts, rawBody)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return errors.New("paygate: webhook signature mismatch")
	}
	return nil
}

func splitSignatureHeader(h string) (ts, sig string, err error) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "te":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return "", "", fmt.Errorf("paygate: malformed signature header %q", h)
	}
	return ts, sig, nil
}

// ComputeSignature is exported so the fake gateway and tests can build
// headers the verifier accepts.
func ComputeSignature(secret, ts string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
