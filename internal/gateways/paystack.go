package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
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

type PaystackConfig struct {
	SecretKey string

	// Base API URL, e.g. https://api.paystack.co
	BaseURL string

	// Where the payer lands after checkout (front-end).
	CallbackURL string

	Client *http.Client
	Logger *slog.Logger
}

// Paystack is the card and mobile-money rail. Charges redirect to a hosted
// checkout; saved authorizations are reusable for off-session charges.
// Payouts use the transfer-recipient model.
type Paystack struct {
	secretKey   string
	baseURL     *url.URL
	callbackURL string

	httpClient *http.Client
	logger     *slog.Logger
}

func NewPaystack(cfg PaystackConfig) (*Paystack, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" || strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("paystack: secret_key/base_url are required")
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
	return &Paystack{
		secretKey:   cfg.SecretKey,
		baseURL:     u,
		callbackURL: cfg.CallbackURL,
		httpClient:  client,
		logger:      logger,
	}, nil
}

func (p *Paystack) Name() string { return NamePaystack }

func (p *Paystack) call(ctx context.Context, method, endpoint, idempotencyKey string, body any, out any) error {
	u := *p.baseURL
	u.Path = path.Join(u.Path, endpoint)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("paystack: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Gateway: NamePaystack, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("paystack: decode response: %w", err)
		}
	}
	return nil
}

type paystackAuthorization struct {
	AuthorizationCode string `json:"authorization_code"`
	CardType          string `json:"card_type"`
	Last4             string `json:"last4"`
	ExpMonth          string `json:"exp_month"`
	ExpYear           string `json:"exp_year"`
	Reusable          bool   `json:"reusable"`
	Channel           string `json:"channel"`
}

func (a *paystackAuthorization) instrument() *StoredInstrument {
	if a == nil || strings.TrimSpace(a.AuthorizationCode) == "" {
		return nil
	}
	return &StoredInstrument{
		Token:     a.AuthorizationCode,
		CardBrand: a.CardType,
		Last4:     a.Last4,
		ExpMonth:  a.ExpMonth,
		ExpYear:   a.ExpYear,
		Reusable:  a.Reusable,
	}
}

func (p *Paystack) InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	logger := p.logger.With("op", "InitiatePayment", "reference", req.Reference)

	callback := req.CallbackURL
	if callback == "" {
		callback = p.callbackURL
	}
	channels := []string{"card", "bank", "mobile_money"}
	body := map[string]any{
		"email":        req.Customer.Email,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"reference":    req.Reference,
		"callback_url": callback,
		"channels":     channels,
	}
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodPost, "/transaction/initialize", "", body, &out); err != nil {
		return InitiateResponse{}, err
	}
	if !out.Status || strings.TrimSpace(out.Data.AuthorizationURL) == "" {
		return InitiateResponse{}, fmt.Errorf("paystack: initialize returned no authorization_url")
	}
	logger.Debug("transaction initialized", "access_code", out.Data.AccessCode)
	return InitiateResponse{
		RedirectURL:      out.Data.AuthorizationURL,
		GatewayPaymentID: out.Data.AccessCode,
	}, nil
}

func mapPaystackStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return StatusSuccessful
	case "failed":
		return StatusFailed
	case "abandoned":
		return StatusAbandoned
	case "reversed":
		return StatusCancelled
	case "ongoing", "processing", "queued", "pending", "send_otp":
		return StatusProcessing
	default:
		return StatusPending
	}
}

func (p *Paystack) GetStatus(ctx context.Context, ref PaymentRef) (StatusResponse, error) {
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			ID             int64                  `json:"id"`
			Status         string                 `json:"status"`
			Amount         int64                  `json:"amount"`
			Currency       string                 `json:"currency"`
			GatewayResp    string                 `json:"gateway_response"`
			Authorization  *paystackAuthorization `json:"authorization"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(ref.Reference), "", nil, &out); err != nil {
		return StatusResponse{}, err
	}
	st := mapPaystackStatus(out.Data.Status)
	resp := StatusResponse{
		Status:           st,
		Amount:           out.Data.Amount,
		Currency:         out.Data.Currency,
		GatewayPaymentID: fmt.Sprintf("%d", out.Data.ID),
		Instrument:       out.Data.Authorization.instrument(),
	}
	if st == StatusFailed {
		resp.FailureReason = out.Data.GatewayResp
	}
	return resp, nil
}

// ValidateSignature checks the x-paystack-signature header: HMAC-SHA512 of
// the raw body keyed with the secret key.
func (p *Paystack) ValidateSignature(payload []byte, signature string) bool {
	if strings.TrimSpace(signature) == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (p *Paystack) ProcessWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if !p.ValidateSignature(payload, signature) {
		return WebhookEvent{}, ErrInvalidSignature
	}
	var body struct {
		Event string `json:"event"`
		Data  struct {
			ID            int64                  `json:"id"`
			Reference     string                 `json:"reference"`
			Status        string                 `json:"status"`
			Amount        int64                  `json:"amount"`
			Currency      string                 `json:"currency"`
			GatewayResp   string                 `json:"gateway_response"`
			TransferCode  string                 `json:"transfer_code"`
			Reason        string                 `json:"reason"`
			Authorization *paystackAuthorization `json:"authorization"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("paystack: decode webhook: %w", err)
	}

	ev := WebhookEvent{
		Event:            body.Event,
		Reference:        body.Data.Reference,
		GatewayPaymentID: fmt.Sprintf("%d", body.Data.ID),
		Amount:           body.Data.Amount,
		Currency:         body.Data.Currency,
		TransferCode:     body.Data.TransferCode,
		Instrument:       body.Data.Authorization.instrument(),
	}
	switch body.Event {
	case "charge.success":
		ev.Status = StatusSuccessful
	case "charge.failed":
		ev.Status = StatusFailed
		ev.FailureReason = body.Data.GatewayResp
	case "transfer.success":
		ev.IsTransfer = true
		ev.Status = StatusSuccessful
	case "transfer.failed":
		ev.IsTransfer = true
		ev.Status = StatusFailed
		ev.FailureReason = body.Data.Reason
	case "transfer.reversed":
		ev.IsTransfer = true
		ev.Status = StatusFailed
		ev.FailureReason = "transfer reversed by bank"
	default:
		ev.Status = mapPaystackStatus(body.Data.Status)
		ev.IsTransfer = strings.HasPrefix(body.Event, "transfer.")
	}
	return ev, nil
}

// ChargeStoredInstrument charges a saved authorization off-session.
func (p *Paystack) ChargeStoredInstrument(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	body := map[string]any{
		"authorization_code": req.Token,
		"email":              req.Email,
		"amount":             req.Amount,
		"currency":           req.Currency,
		"reference":          req.Reference,
	}
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodPost, "/transaction/charge_authorization", "", body, &out); err != nil {
		return ChargeResponse{}, err
	}
	return ChargeResponse{
		Status:           mapPaystackStatus(out.Data.Status),
		GatewayPaymentID: fmt.Sprintf("%d", out.Data.ID),
	}, nil
}

// ------- transfers (payout side) -------

// CreateRecipient registers a bank destination once; the returned
// recipient_code is cached on the beneficiary and reused for transfers.
func (p *Paystack) CreateRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (string, error) {
	body := map[string]any{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currency,
	}
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodPost, "/transferrecipient", "", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Data.RecipientCode) == "" {
		return "", fmt.Errorf("paystack: empty recipient_code")
	}
	return out.Data.RecipientCode, nil
}

type TransferResult struct {
	TransferCode string
	Status       Status
}

// SubmitTransfer queues a transfer to a registered recipient. The transfer
// reference already dedupes on Paystack's side; the idempotency key guards
// the request itself so a retried submission cannot create a second
// transfer even before the reference is registered.
func (p *Paystack) SubmitTransfer(ctx context.Context, recipientCode string, amount int64, currency, reference, reason, idempotencyKey string) (TransferResult, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount,
		"currency":  currency,
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}
	var out struct {
		Status bool `json:"status"`
		Data   struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodPost, "/transfer", idempotencyKey, body, &out); err != nil {
		return TransferResult{}, err
	}
	return TransferResult{
		TransferCode: out.Data.TransferCode,
		Status:       mapPaystackStatus(out.Data.Status),
	}, nil
}
