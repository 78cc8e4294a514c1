package gateways

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
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

type NiumConfig struct {
	APIKey        string
	ClientSecret  string
	WebhookSecret string

	// API base, e.g. https://gateway.nium.com/api
	BaseURL string

	SuccessURL string
	FailureURL string

	Client *http.Client
	Logger *slog.Logger
}

// Nium is the global card-and-payout rail and the default route. Charges go
// through a hosted checkout session; saved-card consents are reusable.
// Payouts run the multi-step protocol: recipient, payout method,
// confirmation-of-payee (initiate then acknowledge), then the payout
// itself, each step idempotent against cached identifiers.
type Nium struct {
	apiKey        string
	clientSecret  string
	webhookSecret string
	baseURL       *url.URL

	successURL string
	failureURL string

	httpClient *http.Client
	logger     *slog.Logger

	// bearer token cache
	mu          sync.Mutex
	accessToken string
	tokenExp    time.Time
}

func NewNium(cfg NiumConfig) (*Nium, error) {
	if strings.TrimSpace(cfg.APIKey) == "" ||
		strings.TrimSpace(cfg.ClientSecret) == "" ||
		strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("nium: api_key/client_secret/base_url are required")
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
	return &Nium{
		apiKey:        cfg.APIKey,
		clientSecret:  cfg.ClientSecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       u,
		successURL:    cfg.SuccessURL,
		failureURL:    cfg.FailureURL,
		httpClient:    client,
		logger:        logger,
	}, nil
}

func (n *Nium) Name() string { return NameNium }

// ------- AUTH -------

func (n *Nium) ensureToken(ctx context.Context) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.accessToken != "" && time.Until(n.tokenExp) > 2*time.Minute {
		return n.accessToken, nil
	}

	endpoint := *n.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v1/auth/token")
	body, _ := json.Marshal(map[string]string{
		"api_key":       n.apiKey,
		"client_secret": n.clientSecret,
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{Gateway: NameNium, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("auth decode: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("auth: empty access_token")
	}
	ttl := 55 * time.Minute
	if out.ExpiresIn > 0 {
		ttl = time.Duration(out.ExpiresIn) * time.Second
	}
	n.accessToken = out.AccessToken
	n.tokenExp = time.Now().Add(ttl)
	return n.accessToken, nil
}

func (n *Nium) call(ctx context.Context, method, endpoint, idempotencyKey string, body any, out any) error {
	token, err := n.ensureToken(ctx)
	if err != nil {
		return err
	}
	u := *n.baseURL
	u.Path = path.Join(u.Path, endpoint)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("nium: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("x-idempotency-key", idempotencyKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nium: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Gateway: NameNium, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("nium: decode response: %w", err)
		}
	}
	return nil
}

func mapNiumStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESS", "PAID", "COMPLETED":
		return StatusSuccessful
	case "FAILED", "REJECTED", "RETURNED":
		return StatusFailed
	case "CANCELLED":
		return StatusCancelled
	case "EXPIRED", "ABANDONED":
		return StatusAbandoned
	case "IN_PROGRESS", "PROCESSING", "SENT_TO_BANK":
		return StatusProcessing
	default:
		return StatusPending
	}
}

// ------- charges -------

func (n *Nium) InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	logger := n.logger.With("op", "InitiatePayment", "reference", req.Reference)

	body := map[string]any{
		"merchant_reference": req.Reference,
		"amount":             req.Amount,
		"currency":           req.Currency,
		"description":        req.Description,
		"customer": map[string]any{
			"email": req.Customer.Email,
			"name":  req.Customer.Name,
		},
		"save_card":   req.SaveInstrument,
		"success_url": n.successURL,
		"failure_url": n.failureURL,
	}
	var out struct {
		SessionID   string `json:"session_id"`
		RedirectURL string `json:"redirect_url"`
		Status      string `json:"status"`
	}
	if err := n.call(ctx, http.MethodPost, "/v1/checkout/sessions", req.Reference, body, &out); err != nil {
		return InitiateResponse{}, err
	}
	if strings.TrimSpace(out.RedirectURL) == "" || strings.TrimSpace(out.SessionID) == "" {
		return InitiateResponse{}, fmt.Errorf("nium: empty redirect_url or session_id")
	}
	logger.Debug("checkout session created", "session_id", out.SessionID)
	return InitiateResponse{RedirectURL: out.RedirectURL, GatewayPaymentID: out.SessionID}, nil
}

func (n *Nium) GetStatus(ctx context.Context, ref PaymentRef) (StatusResponse, error) {
	id := ref.GatewayPaymentID
	if strings.TrimSpace(id) == "" {
		id = ref.Reference
	}
	var out struct {
		SessionID     string `json:"session_id"`
		Status        string `json:"status"`
		Amount        int64  `json:"amount"`
		Currency      string `json:"currency"`
		FailureReason string `json:"failure_reason"`
		Card          *struct {
			ConsentID string `json:"consent_id"`
			Brand     string `json:"brand"`
			Last4     string `json:"last4"`
			ExpMonth  string `json:"exp_month"`
			ExpYear   string `json:"exp_year"`
		} `json:"card"`
	}
	if err := n.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(id), "", nil, &out); err != nil {
		return StatusResponse{}, err
	}
	resp := StatusResponse{
		Status:           mapNiumStatus(out.Status),
		Amount:           out.Amount,
		Currency:         out.Currency,
		GatewayPaymentID: out.SessionID,
		FailureReason:    out.FailureReason,
	}
	if out.Card != nil && out.Card.ConsentID != "" {
		resp.Instrument = &StoredInstrument{
			Token:     out.Card.ConsentID,
			CardBrand: out.Card.Brand,
			Last4:     out.Card.Last4,
			ExpMonth:  out.Card.ExpMonth,
			ExpYear:   out.Card.ExpYear,
			Reusable:  true,
		}
	}
	return resp, nil
}

func (n *Nium) ValidateSignature(payload []byte, signature string) bool {
	if strings.TrimSpace(signature) == "" || n.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(n.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (n *Nium) ProcessWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if !n.ValidateSignature(payload, signature) {
		return WebhookEvent{}, ErrInvalidSignature
	}
	var body struct {
		EventType         string `json:"event_type"`
		MerchantReference string `json:"merchant_reference"`
		SessionID         string `json:"session_id"`
		PayoutID          string `json:"payout_id"`
		Status            string `json:"status"`
		Amount            int64  `json:"amount"`
		Currency          string `json:"currency"`
		FailureReason     string `json:"failure_reason"`
		Card              *struct {
			ConsentID string `json:"consent_id"`
			Brand     string `json:"brand"`
			Last4     string `json:"last4"`
		} `json:"card"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return WebhookEvent{}, fmt.Errorf("nium: decode webhook: %w", err)
	}

	ev := WebhookEvent{
		Event:            body.EventType,
		Reference:        body.MerchantReference,
		GatewayPaymentID: body.SessionID,
		Status:           mapNiumStatus(body.Status),
		Amount:           body.Amount,
		Currency:         body.Currency,
		FailureReason:    body.FailureReason,
	}
	if strings.HasPrefix(body.EventType, "payout.") {
		ev.IsTransfer = true
		ev.TransferCode = body.PayoutID
	}
	if body.Card != nil && body.Card.ConsentID != "" {
		ev.Instrument = &StoredInstrument{
			Token:     body.Card.ConsentID,
			CardBrand: body.Card.Brand,
			Last4:     body.Card.Last4,
			Reusable:  true,
		}
	}
	return ev, nil
}

// ChargeStoredInstrument charges a saved-card consent off-session.
func (n *Nium) ChargeStoredInstrument(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	body := map[string]any{
		"consent_id":         req.Token,
		"merchant_reference": req.Reference,
		"amount":             req.Amount,
		"currency":           req.Currency,
	}
	var out struct {
		PaymentID string `json:"payment_id"`
		Status    string `json:"status"`
	}
	if err := n.call(ctx, http.MethodPost, "/v1/charges", req.Reference, body, &out); err != nil {
		return ChargeResponse{}, err
	}
	return ChargeResponse{
		Status:           mapNiumStatus(out.Status),
		GatewayPaymentID: out.PaymentID,
	}, nil
}

// ------- payouts (multi-step) -------

// CreateRecipient registers the payee identity. Step 1 of the payout
// protocol; the returned id is persisted on the beneficiary.
func (n *Nium) CreateRecipient(ctx context.Context, name, email string) (string, error) {
	body := map[string]any{"name": name, "email": email}
	var out struct {
		RecipientID string `json:"recipient_id"`
	}
	if err := n.call(ctx, http.MethodPost, "/v1/recipients", "", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.RecipientID) == "" {
		return "", fmt.Errorf("nium: empty recipient_id")
	}
	return out.RecipientID, nil
}

// CreatePayoutMethod attaches a bank account to a recipient. Step 2.
func (n *Nium) CreatePayoutMethod(ctx context.Context, recipientID, accountName, accountNumber, bankCode, currency string) (string, error) {
	body := map[string]any{
		"type":           "bank_account",
		"account_name":   accountName,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currency,
	}
	var out struct {
		PayoutMethodID string `json:"payout_method_id"`
	}
	endpoint := "/v1/recipients/" + url.PathEscape(recipientID) + "/payout_methods"
	if err := n.call(ctx, http.MethodPost, endpoint, "", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.PayoutMethodID) == "" {
		return "", fmt.Errorf("nium: empty payout_method_id")
	}
	return out.PayoutMethodID, nil
}

// InitiateConfirmation starts the confirmation-of-payee check for a payout
// method. Step 3a; returns the check id and whether the registered account
// name matched.
func (n *Nium) InitiateConfirmation(ctx context.Context, payoutMethodID, accountName string) (checkID string, matched bool, err error) {
	body := map[string]any{"account_name": accountName}
	var out struct {
		CheckID     string `json:"check_id"`
		MatchStatus string `json:"match_status"`
	}
	endpoint := "/v1/payout_methods/" + url.PathEscape(payoutMethodID) + "/confirmation"
	if err := n.call(ctx, http.MethodPost, endpoint, "", body, &out); err != nil {
		return "", false, err
	}
	return out.CheckID, strings.EqualFold(out.MatchStatus, "match"), nil
}

// AcknowledgeConfirmation accepts the check result. Step 3b; payouts to the
// method are rejected until this succeeds.
func (n *Nium) AcknowledgeConfirmation(ctx context.Context, checkID string) error {
	endpoint := "/v1/confirmations/" + url.PathEscape(checkID) + "/acknowledge"
	return n.call(ctx, http.MethodPost, endpoint, "", map[string]any{"accepted": true}, nil)
}

type NiumPayoutResult struct {
	PayoutID string
	Status   Status
}

// SubmitPayout creates the outbound payment. Step 4; idempotencyKey ties
// retried submissions to one real-world transfer.
func (n *Nium) SubmitPayout(ctx context.Context, payoutMethodID string, amount int64, currency, reference, idempotencyKey string) (NiumPayoutResult, error) {
	body := map[string]any{
		"payout_method_id":   payoutMethodID,
		"amount":             amount,
		"currency":           currency,
		"merchant_reference": reference,
	}
	var out struct {
		PayoutID string `json:"payout_id"`
		Status   string `json:"status"`
	}
	if err := n.call(ctx, http.MethodPost, "/v1/payouts", idempotencyKey, body, &out); err != nil {
		return NiumPayoutResult{}, err
	}
	return NiumPayoutResult{
		PayoutID: out.PayoutID,
		Status:   mapNiumStatus(out.Status),
	}, nil
}
