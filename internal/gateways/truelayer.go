package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

type TrueLayerConfig struct {
	ClientID      string
	ClientSecret  string
	WebhookSecret string

	// API base, e.g. https://api.truelayer.com
	BaseURL string
	// Hosted payment page base the payer is redirected to.
	HppURL string

	ReturnURL string

	Client *http.Client
	Logger *slog.Logger
}

// TrueLayer is the open-banking rail. Every payment runs through strong
// customer authentication, so there is no reusable instrument to charge
// off-session. Payouts carry the bank details inline (open-loop).
type TrueLayer struct {
	clientID      string
	clientSecret  string
	webhookSecret string
	baseURL       *url.URL
	hppURL        string
	returnURL     string

	httpClient *http.Client
	logger     *slog.Logger
}

func NewTrueLayer(cfg TrueLayerConfig) (*TrueLayer, error) {
	if strings.TrimSpace(cfg.ClientID) == "" ||
		strings.TrimSpace(cfg.ClientSecret) == "" ||
		strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("truelayer: client_id/client_secret/base_url are required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &TrueLayer{
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       u,
		hppURL:        cfg.HppURL,
		returnURL:     cfg.ReturnURL,
		httpClient:    client,
		logger:        logger,
	}, nil
}

func (t *TrueLayer) Name() string { return NameTrueLayer }

func (t *TrueLayer) call(ctx context.Context, method, endpoint, idempotencyKey string, body any, out any) error {
	u := *t.baseURL
	u.Path = path.Join(u.Path, endpoint)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("truelayer: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("truelayer: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Gateway: NameTrueLayer, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("truelayer: decode response: %w", err)
		}
	}
	return nil
}

func mapTrueLayerStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "executed", "settled":
		return StatusSuccessful
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	case "expired":
		return StatusAbandoned
	case "authorized", "authorizing":
		return StatusProcessing
	default:
		return StatusPending
	}
}

func (t *TrueLayer) InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	logger := t.logger.With("op", "InitiatePayment", "reference", req.Reference)

	body := map[string]any{
		"amount_in_minor": req.Amount,
		"currency":        req.Currency,
		"payment_method": map[string]any{
			"type": "bank_transfer",
		},
		"user": map[string]any{
			"name":  req.Customer.Name,
			"email": req.Customer.Email,
		},
		"metadata": map[string]any{
			"reference": req.Reference,
		},
	}
	var out struct {
		ID            string `json:"id"`
		ResourceToken string `json:"resource_token"`
		Status        string `json:"status"`
	}
	if err := t.call(ctx, http.MethodPost, "/payments", req.Reference, body, &out); err != nil {
		return InitiateResponse{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return InitiateResponse{}, fmt.Errorf("truelayer: create payment returned no id")
	}
	logger.Debug("payment created", "payment_id", out.ID, "status", out.Status)

	redirect := fmt.Sprintf("%s/payments#payment_id=%s&resource_token=%s&return_uri=%s",
		strings.TrimRight(t.hppURL, "/"), out.ID, out.ResourceToken, url.QueryEscape(t.returnURL))
	return InitiateResponse{RedirectURL: redirect, GatewayPaymentID: out.ID}, nil
}

func (t *TrueLayer) GetStatus(ctx context.Context, ref PaymentRef) (StatusResponse, error) {
	if strings.TrimSpace(ref.GatewayPaymentID) == "" {
		return StatusResponse{}, fmt.Errorf("truelayer: gateway payment id required to query status")
	}
	var out struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		AmountInMinor int64  `json:"amount_in_minor"`
		Currency      string `json:"currency"`
		FailureReason string `json:"failure_reason"`
	}
	if err := t.call(ctx, http.MethodGet, "/payments/"+url.PathEscape(ref.GatewayPaymentID), "", nil, &out); err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{
		Status:           mapTrueLayerStatus(out.Status),
		Amount:           out.AmountInMinor,
		Currency:         out.Currency,
		GatewayPaymentID: out.ID,
		FailureReason:    out.FailureReason,
	}, nil
}

func (t *TrueLayer) ValidateSignature(payload []byte, signature string) bool {
	if strings.TrimSpace(signature) == "" || t.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(t.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (t *TrueLayer) ProcessWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if !t.ValidateSignature(payload, signature) {
		return WebhookEvent{}, ErrInvalidSignature
	}
	var body struct {
		Type          string `json:"type"`
		PaymentID     string `json:"payment_id"`
		PayoutID      string `json:"payout_id"`
		AmountInMinor int64  `json:"amount_in_minor"`
		Currency      string `json:"currency"`
		FailureReason string `json:"failure_reason"`
		Metadata      struct {
			Reference string `json:"reference"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("truelayer: decode webhook: %w", err)
	}

	ev := WebhookEvent{
		Event:         body.Type,
		Reference:     body.Metadata.Reference,
		Amount:        body.AmountInMinor,
		Currency:      body.Currency,
		FailureReason: body.FailureReason,
	}
	switch body.Type {
	case "payment_executed", "payment_settled":
		ev.Status = StatusSuccessful
		ev.GatewayPaymentID = body.PaymentID
	case "payment_failed":
		ev.Status = StatusFailed
		ev.GatewayPaymentID = body.PaymentID
	case "payout_executed":
		ev.IsTransfer = true
		ev.Status = StatusSuccessful
		ev.TransferCode = body.PayoutID
	case "payout_failed":
		ev.IsTransfer = true
		ev.Status = StatusFailed
		ev.TransferCode = body.PayoutID
	default:
		ev.Status = StatusPending
		ev.GatewayPaymentID = body.PaymentID
	}
	return ev, nil
}

// ChargeStoredInstrument is unavailable: open-banking payments require
// per-transaction strong customer authentication.
func (t *TrueLayer) ChargeStoredInstrument(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	return ChargeResponse{}, ErrNotSupported
}

// ------- payouts (open-loop) -------

type TrueLayerPayoutRequest struct {
	Reference      string
	Amount         int64
	Currency       string
	AccountName    string
	SortCode       string
	AccountNumber  string
	IdempotencyKey string
}

type TrueLayerPayoutResult struct {
	PayoutID string
	Status   Status
}

// SubmitPayout sends the bank details inline with the payout. When no
// idempotency key is given the caller reference serves as one.
func (t *TrueLayer) SubmitPayout(ctx context.Context, req TrueLayerPayoutRequest) (TrueLayerPayoutResult, error) {
	body := map[string]any{
		"amount_in_minor": req.Amount,
		"currency":        req.Currency,
		"beneficiary": map[string]any{
			"type":                "external_account",
			"account_holder_name": req.AccountName,
			"account_identifier": map[string]any{
				"type":           "sort_code_account_number",
				"sort_code":      req.SortCode,
				"account_number": req.AccountNumber,
			},
			"reference": req.Reference,
		},
		"metadata": map[string]any{
			"reference": req.Reference,
		},
	}
	key := req.IdempotencyKey
	if key == "" {
		key = req.Reference
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := t.call(ctx, http.MethodPost, "/payouts", key, body, &out); err != nil {
		return TrueLayerPayoutResult{}, err
	}
	return TrueLayerPayoutResult{
		PayoutID: out.ID,
		Status:   mapTrueLayerStatus(out.Status),
	}, nil
}
