package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status is the shared payment status vocabulary every gateway maps its
// native statuses onto.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further gateway-side change is expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccessful, StatusFailed, StatusCancelled, StatusAbandoned:
		return true
	}
	return false
}

var (
	// ErrNotSupported is returned for capability calls a gateway variant
	// cannot serve (e.g. off-session charges on an open-banking rail).
	ErrNotSupported = errors.New("gateways: operation not supported")

	// ErrInvalidSignature rejects a webhook before any payload parsing.
	ErrInvalidSignature = errors.New("gateways: invalid webhook signature")
)

// APIError is a non-2xx response from a gateway API.
type APIError struct {
	Gateway    string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("%s error: %s", e.Gateway, e.Status)
	}
	return fmt.Sprintf("%s error: %s: %s", e.Gateway, e.Status, bt)
}

// Retryable reports whether a later identical call may succeed.
// Rate limits and upstream 5xx are retryable; other 4xx are not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable classifies an error from a gateway call. Transport failures
// (timeouts, connection resets) surface as plain errors and are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, ErrNotSupported) || errors.Is(err, ErrInvalidSignature) {
		return false
	}
	return true
}

type Customer struct {
	Email string
	Name  string
	Phone string
}

type InitiateRequest struct {
	Reference      string
	Amount         int64 // minor units
	Currency       string
	Customer       Customer
	CallbackURL    string
	Description    string
	SaveInstrument bool
}

type InitiateResponse struct {
	RedirectURL      string
	GatewayPaymentID string
}

// StoredInstrument is a reusable charge token returned by a gateway after a
// successful payment when the payer opted in to save it.
type StoredInstrument struct {
	Token     string
	CardBrand string
	Last4     string
	ExpMonth  string
	ExpYear   string
	Reusable  bool
}

// PaymentRef identifies a payment towards a gateway. Reference is ours;
// GatewayPaymentID is the id assigned by the network. Variants that cannot
// query by caller reference use the gateway id.
type PaymentRef struct {
	Reference        string
	GatewayPaymentID string
}

type StatusResponse struct {
	Status           Status
	Amount           int64
	Currency         string
	GatewayPaymentID string
	FailureReason    string
	Instrument       *StoredInstrument
}

// WebhookEvent is a gateway notification normalised to the shared
// vocabulary. IsTransfer distinguishes payout/transfer events from charge
// events; they are reconciled on different paths.
type WebhookEvent struct {
	Event            string
	Reference        string
	GatewayPaymentID string
	Status           Status
	Amount           int64
	Currency         string
	IsTransfer       bool
	TransferCode     string
	FailureReason    string
	Instrument       *StoredInstrument
}

type ChargeRequest struct {
	Reference string
	Token     string
	Amount    int64
	Currency  string
	Email     string
}

type ChargeResponse struct {
	Status           Status
	GatewayPaymentID string
}

// Client is the capability contract every payment network variant
// implements. Unsupported operations return ErrNotSupported.
type Client interface {
	Name() string
	InitiatePayment(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	GetStatus(ctx context.Context, ref PaymentRef) (StatusResponse, error)
	ProcessWebhook(payload []byte, signature string) (WebhookEvent, error)
	ChargeStoredInstrument(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
	ValidateSignature(payload []byte, signature string) bool
}
