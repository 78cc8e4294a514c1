package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"kolabBack/internal/gateways"
	"kolabBack/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookArchive dedupes and archives raw deliveries. Satisfied by
// repositories.WebhookRepository.
type WebhookArchive interface {
	Seen(ctx context.Context, gateway string, payload []byte) (bool, error)
	Forget(ctx context.Context, gateway string, payload []byte) error
	SaveDelivery(ctx context.Context, gateway, signature string, payload []byte) error
}

// WebhookHandler receives gateway notifications. Every endpoint answers
// 200 on successful processing and on detected duplicates; gateways retry
// anything else.
type WebhookHandler struct {
	Payments *services.PaymentService
	Payouts  *services.PayoutService
	Webhooks WebhookArchive
	Logger   *slog.Logger
}

func NewWebhookHandler(payments *services.PaymentService, payouts *services.PayoutService, webhooks WebhookArchive, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{Payments: payments, Payouts: payouts, Webhooks: webhooks, Logger: logger}
}

func (h *WebhookHandler) Paystack(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, gateways.NamePaystack, r.Header.Get("x-paystack-signature"))
}

func (h *WebhookHandler) TrueLayer(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, gateways.NameTrueLayer, r.Header.Get("Tl-Signature"))
}

func (h *WebhookHandler) Nium(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, gateways.NameNium, r.Header.Get("x-nium-signature"))
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, gatewayName, signature string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("op", "webhook", "gateway", gatewayName)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if h.Webhooks != nil {
		seen, err := h.Webhooks.Seen(r.Context(), gatewayName, payload)
		if err != nil {
			// Dedupe cache down: fall through, the conditional updates in
			// the reconciler stay correct without it.
			logger.Warn("webhook dedupe cache unavailable", "err", err)
		} else if seen {
			logger.Info("duplicate webhook delivery short-circuited")
			h.ok(w)
			return
		}
		if err := h.Webhooks.SaveDelivery(r.Context(), gatewayName, signature, payload); err != nil {
			logger.Error("archive webhook delivery", "err", err)
		}
	}

	if err := h.Payments.ProcessWebhook(r.Context(), gatewayName, payload, signature, h.Payouts); err != nil {
		// Release the dedupe mark so the gateway's retry is processed
		// instead of short-circuited as a duplicate.
		h.forget(r.Context(), logger, gatewayName, payload)
		if errors.Is(err, gateways.ErrInvalidSignature) {
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		logger.Error("process webhook", "err", err)
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	h.ok(w)
}

func (h *WebhookHandler) forget(ctx context.Context, logger *slog.Logger, gatewayName string, payload []byte) {
	if h.Webhooks == nil {
		return
	}
	if err := h.Webhooks.Forget(ctx, gatewayName, payload); err != nil {
		logger.Warn("release webhook dedupe mark", "err", err)
	}
}

func (h *WebhookHandler) ok(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
