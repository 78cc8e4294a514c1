package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"kolabBack/internal/models"
	"kolabBack/internal/repositories"
	"kolabBack/internal/services"
)

type PayoutHandler struct {
	Service       *services.PayoutService
	Beneficiaries *repositories.BeneficiaryRepository
}

func NewPayoutHandler(s *services.PayoutService, b *repositories.BeneficiaryRepository) *PayoutHandler {
	return &PayoutHandler{Service: s, Beneficiaries: b}
}

// ReleasePayout moves a pending_release payout into released state and
// triggers the automatic transfer to the creator's default account.
func (h *PayoutHandler) ReleasePayout(w http.ResponseWriter, r *http.Request) {
	payoutID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid payout id", http.StatusBadRequest)
		return
	}
	p, err := h.Service.ReleasePayout(r.Context(), payoutID)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

func (h *PayoutHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatorID     int    `json:"creator_id"`
		Currency      string `json:"currency"`
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
		BankCode      string `json:"bank_code"`
		BankName      string `json:"bank_name"`
		IsDefault     bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.CreatorID == 0 || req.Currency == "" || req.AccountName == "" || req.AccountNumber == "" {
		http.Error(w, "creator_id, currency, account_name and account_number are required", http.StatusBadRequest)
		return
	}

	b := models.BeneficiaryAccount{
		CreatorID:     req.CreatorID,
		Currency:      req.Currency,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
		BankName:      req.BankName,
		IsDefault:     req.IsDefault,
	}
	if err := h.Beneficiaries.CreateBeneficiary(r.Context(), &b); err != nil {
		http.Error(w, "create beneficiary: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if req.IsDefault {
		if err := h.Beneficiaries.SetDefault(r.Context(), req.CreatorID, b.ID); err != nil {
			http.Error(w, "set default: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(b)
}

func (h *PayoutHandler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	creatorID, err := strconv.Atoi(r.URL.Query().Get(":creator_id"))
	if err != nil {
		http.Error(w, "invalid creator id", http.StatusBadRequest)
		return
	}
	list, err := h.Beneficiaries.ListByCreator(r.Context(), creatorID)
	if err != nil {
		http.Error(w, "list beneficiaries: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.BeneficiaryAccount{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *PayoutHandler) SetDefaultBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatorID     int `json:"creator_id"`
		BeneficiaryID int `json:"beneficiary_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Beneficiaries.SetDefault(r.Context(), req.CreatorID, req.BeneficiaryID); err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
