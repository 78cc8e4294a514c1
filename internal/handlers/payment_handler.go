package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"kolabBack/internal/gateways"
	"kolabBack/internal/models"
	"kolabBack/internal/services"
)

type PaymentHandler struct {
	Service *services.PaymentService
}

func NewPaymentHandler(s *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CampaignID     int    `json:"campaign_id"`
		MilestoneID    *int   `json:"milestone_id"`
		AmountOverride *int64 `json:"amount_override"`
		BrandID        int    `json:"brand_id"`
		CallbackURL    string `json:"callback_url"`
		SaveInstrument bool   `json:"save_instrument"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CampaignID == 0 || req.BrandID == 0 {
		http.Error(w, "campaign_id and brand_id are required", http.StatusBadRequest)
		return
	}

	tx, err := h.Service.InitiatePayment(r.Context(), services.InitiatePaymentRequest{
		CampaignID:     req.CampaignID,
		MilestoneID:    req.MilestoneID,
		AmountOverride: req.AmountOverride,
		BrandID:        req.BrandID,
		CallbackURL:    req.CallbackURL,
		SaveInstrument: req.SaveInstrument,
	})
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"reference":         tx.Reference,
		"gateway":           tx.Gateway,
		"amount":            tx.Amount,
		"fee":               tx.Fee,
		"total":             tx.Total,
		"currency":          tx.Currency,
		"authorization_url": tx.AuthorizationURL,
	})
}

func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get(":reference")
	if reference == "" {
		http.Error(w, "missing reference", http.StatusBadRequest)
		return
	}
	tx, err := h.Service.VerifyPayment(r.Context(), reference)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tx)
}

func (h *PaymentHandler) ChargeRecurring(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MilestoneID int `json:"milestone_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MilestoneID == 0 {
		http.Error(w, "milestone_id is required", http.StatusBadRequest)
		return
	}
	tx, err := h.Service.ChargeRecurringPayment(r.Context(), req.MilestoneID)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tx)
}

func (h *PaymentHandler) CampaignBalance(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	summary, err := h.Service.CampaignBalance(r.Context(), campaignID)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *PaymentHandler) OutstandingBalance(w http.ResponseWriter, r *http.Request) {
	brandID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid brand id", http.StatusBadRequest)
		return
	}
	total, err := h.Service.OutstandingBalance(r.Context(), brandID)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"brand_id":    brandID,
		"outstanding": total,
	})
}

// paymentErrorStatus maps service and gateway errors onto HTTP statuses.
// Client-side gateway rejections pass their code through; upstream faults
// become 502 so callers know to retry against us, not the gateway.
func paymentErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrCampaignNotFound),
		errors.Is(err, models.ErrMilestoneNotFound),
		errors.Is(err, models.ErrTransactionNotFound),
		errors.Is(err, models.ErrPayoutNotFound),
		errors.Is(err, models.ErrBeneficiaryNotFound),
		errors.Is(err, models.ErrPaymentMethodNotFound),
		errors.Is(err, models.ErrBrandNotFound),
		errors.Is(err, models.ErrNoRecord):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMilestoneNotPayable),
		errors.Is(err, models.ErrFullPaymentUnavailable),
		errors.Is(err, models.ErrNothingToPay),
		errors.Is(err, models.ErrPayoutNotReleasable),
		errors.Is(err, models.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, models.ErrInstrumentNotReusable),
		errors.Is(err, models.ErrScheduleMismatch),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, gateways.ErrNotSupported):
		return http.StatusUnprocessableEntity
	}
	var apiErr *gateways.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
