package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNiumTokenIsCachedAcrossCalls(t *testing.T) {
	var tokenCalls, sessionCalls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token":
			tokenCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"expires_in":   3600,
			})
		case "/v1/checkout/sessions":
			sessionCalls++
			if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
				t.Errorf("authorization = %q", got)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"session_id":   "sess-1",
				"redirect_url": "https://checkout.nium.com/sess-1",
				"status":       "PENDING",
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	n, err := NewNium(NiumConfig{APIKey: "key", ClientSecret: "secret", BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("new nium: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := n.InitiatePayment(ctx, InitiateRequest{Reference: "ref", Amount: 1000, Currency: "USD"}); err != nil {
			t.Fatalf("initiate %d: %v", i, err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token requests = %d, want 1 (cached)", tokenCalls)
	}
	if sessionCalls != 3 {
		t.Errorf("session requests = %d, want 3", sessionCalls)
	}
}

func TestNiumPayoutProtocolSteps(t *testing.T) {
	var sawIdempotencyKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/auth/token":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case "/v1/recipients":
			_ = json.NewEncoder(w).Encode(map[string]any{"recipient_id": "rcpt_1"})
		case "/v1/recipients/rcpt_1/payout_methods":
			_ = json.NewEncoder(w).Encode(map[string]any{"payout_method_id": "pm_1"})
		case "/v1/payout_methods/pm_1/confirmation":
			_ = json.NewEncoder(w).Encode(map[string]any{"check_id": "cop_1", "match_status": "MATCH"})
		case "/v1/confirmations/cop_1/acknowledge":
			w.WriteHeader(http.StatusOK)
		case "/v1/payouts":
			sawIdempotencyKey = r.Header.Get("x-idempotency-key")
			_ = json.NewEncoder(w).Encode(map[string]any{"payout_id": "po_1", "status": "IN_PROGRESS"})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	n, err := NewNium(NiumConfig{APIKey: "key", ClientSecret: "secret", BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("new nium: %v", err)
	}
	ctx := context.Background()

	recipientID, err := n.CreateRecipient(ctx, "Creator Person", "creator@example.com")
	if err != nil {
		t.Fatalf("create recipient: %v", err)
	}
	methodID, err := n.CreatePayoutMethod(ctx, recipientID, "Creator Person", "0123456789", "058", "USD")
	if err != nil {
		t.Fatalf("create payout method: %v", err)
	}
	checkID, matched, err := n.InitiateConfirmation(ctx, methodID, "Creator Person")
	if err != nil {
		t.Fatalf("initiate confirmation: %v", err)
	}
	if !matched {
		t.Fatalf("MATCH status not recognised")
	}
	if err := n.AcknowledgeConfirmation(ctx, checkID); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	res, err := n.SubmitPayout(ctx, methodID, 24250, "USD", "wd-ref", "wd-ref-24250")
	if err != nil {
		t.Fatalf("submit payout: %v", err)
	}
	if res.PayoutID != "po_1" || res.Status != StatusProcessing {
		t.Errorf("result = %+v", res)
	}
	if sawIdempotencyKey != "wd-ref-24250" {
		t.Errorf("idempotency key = %q", sawIdempotencyKey)
	}
}

func TestNiumProcessWebhook_PayoutEvent(t *testing.T) {
	n, err := NewNium(NiumConfig{
		APIKey: "key", ClientSecret: "secret", WebhookSecret: "wh",
		BaseURL: "https://gateway.nium.com/api",
	})
	if err != nil {
		t.Fatalf("new nium: %v", err)
	}
	payload := []byte(`{
        "event_type": "payout.completed",
        "payout_id": "po_1",
        "status": "COMPLETED",
        "amount": 24250,
        "currency": "USD"
    }`)

	ev, err := n.ProcessWebhook(payload, signTrueLayer("wh", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ev.IsTransfer {
		t.Fatalf("payout event not flagged as transfer")
	}
	if ev.TransferCode != "po_1" {
		t.Errorf("transfer code = %q", ev.TransferCode)
	}
	if ev.Status != StatusSuccessful {
		t.Errorf("status = %q, want successful", ev.Status)
	}
}

func TestMapNiumStatus(t *testing.T) {
	cases := map[string]Status{
		"SUCCESS":      StatusSuccessful,
		"completed":    StatusSuccessful,
		"FAILED":       StatusFailed,
		"RETURNED":     StatusFailed,
		"CANCELLED":    StatusCancelled,
		"EXPIRED":      StatusAbandoned,
		"IN_PROGRESS":  StatusProcessing,
		"SENT_TO_BANK": StatusProcessing,
		"NEW":          StatusPending,
	}
	for in, want := range cases {
		if got := mapNiumStatus(in); got != want {
			t.Errorf("mapNiumStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
