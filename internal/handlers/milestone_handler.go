package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"kolabBack/internal/models"
	"kolabBack/internal/services"
)

type MilestoneHandler struct {
	Service *services.MilestoneService
}

func NewMilestoneHandler(s *services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{Service: s}
}

func (h *MilestoneHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	var req struct {
		Milestones []services.ScheduleItem `json:"milestones"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	milestones, err := h.Service.CreateSchedule(r.Context(), campaignID, req.Milestones)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(milestones)
}

func (h *MilestoneHandler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := strconv.Atoi(r.URL.Query().Get(":id"))
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	milestones, err := h.Service.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		http.Error(w, err.Error(), paymentErrorStatus(err))
		return
	}
	if milestones == nil {
		milestones = []models.Milestone{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(milestones)
}
