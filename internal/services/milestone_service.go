package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"kolabBack/internal/gateways"
	"kolabBack/internal/models"
)

// RecurringCharger collects one due milestone off-session. Satisfied by
// PaymentService.
type RecurringCharger interface {
	ChargeRecurringPayment(ctx context.Context, milestoneID int) (models.Transaction, error)
}

// MilestoneService manages installment schedules and the periodic sweeps
// that mark overdue milestones and auto-collect the due ones.
type MilestoneService struct {
	Milestones MilestoneStore
	Campaigns  CampaignStore
	Charger    RecurringCharger
	Fees       FeeCalculator
	Brands     BrandStore
	Notifier   Notifier

	// ChargeDelay spaces auto-collection calls so a sweep over many due
	// milestones does not burst the gateways.
	ChargeDelay time.Duration
	Sleep       func(time.Duration)

	Logger *slog.Logger
}

func (s *MilestoneService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *MilestoneService) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// ScheduleItem is one requested installment.
type ScheduleItem struct {
	Amount  int64     `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// CreateSchedule builds the milestone plan for a campaign. Amounts must be
// positive and sum exactly to the campaign total; installments are
// sequenced by due date.
func (s *MilestoneService) CreateSchedule(ctx context.Context, campaignID int, items []ScheduleItem) ([]models.Milestone, error) {
	campaign, err := s.Campaigns.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.PaymentType != models.PaymentTypeMilestone {
		return nil, models.ErrScheduleMismatch
	}
	if len(items) == 0 {
		return nil, models.ErrScheduleMismatch
	}

	var sum int64
	for _, item := range items {
		if item.Amount <= 0 {
			return nil, models.ErrScheduleMismatch
		}
		sum += item.Amount
	}
	if sum != campaign.TotalAmount {
		return nil, models.ErrScheduleMismatch
	}

	sorted := make([]ScheduleItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	milestones := make([]models.Milestone, 0, len(sorted))
	for i, item := range sorted {
		milestones = append(milestones, models.Milestone{
			CampaignID: campaignID,
			Seq:        i + 1,
			Amount:     item.Amount,
			Fee:        s.Fees.PlatformFee(item.Amount),
			DueDate:    item.DueDate,
			Status:     models.MilestoneStatusPending,
		})
	}
	if err := s.Milestones.CreateMilestones(ctx, milestones); err != nil {
		return nil, err
	}
	return milestones, nil
}

// ListByCampaign returns the schedule in sequence order.
func (s *MilestoneService) ListByCampaign(ctx context.Context, campaignID int) ([]models.Milestone, error) {
	return s.Milestones.GetMilestonesByCampaign(ctx, campaignID)
}

// MarkOverdue flips pending milestones whose due date has passed. Returns
// the number of rows changed.
func (s *MilestoneService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Milestones.MarkOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger().Info("milestones marked overdue", "count", n)
	}
	return n, nil
}

// CollectDue attempts an off-session charge for every due milestone whose
// brand has a saved payment method. Milestones without one are left for
// manual payment; a failed charge never stops the sweep.
func (s *MilestoneService) CollectDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Milestones.DueForCollection(ctx, now)
	if err != nil {
		return 0, err
	}
	collected := 0
	for i, m := range due {
		if i > 0 {
			s.sleep(s.ChargeDelay)
		}
		if err := ctx.Err(); err != nil {
			return collected, err
		}
		tx, err := s.Charger.ChargeRecurringPayment(ctx, m.ID)
		switch {
		case err == nil:
			if tx.Status == models.TransactionStatusCompleted {
				collected++
			}
		case errors.Is(err, models.ErrPaymentMethodNotFound):
			s.logger().Debug("no saved payment method, reminding brand", "milestone_id", m.ID)
			s.remindBrand(ctx, m)
		case errors.Is(err, gateways.ErrNotSupported):
			s.logger().Debug("gateway has no off-session charges, reminding brand", "milestone_id", m.ID)
			s.remindBrand(ctx, m)
		case errors.Is(err, models.ErrMilestoneNotPayable):
			// Paid between the query and the charge.
		default:
			s.logger().Error("auto-collection failed", "milestone_id", m.ID, "err", err)
		}
	}
	return collected, nil
}

// remindBrand pushes a manual-payment reminder when a due milestone cannot
// be collected off-session.
func (s *MilestoneService) remindBrand(ctx context.Context, m models.Milestone) {
	if s.Notifier == nil || s.Brands == nil {
		return
	}
	campaign, err := s.Campaigns.GetCampaignByID(ctx, m.CampaignID)
	if err != nil {
		s.logger().Error("load campaign for reminder failed", "milestone_id", m.ID, "err", err)
		return
	}
	brand, err := s.Brands.GetBrandByID(ctx, campaign.BrandID)
	if err != nil {
		s.logger().Error("load brand for reminder failed", "milestone_id", m.ID, "err", err)
		return
	}
	s.Notifier.Notify(ctx, brand.FCMToken, "Milestone payment due",
		fmt.Sprintf("Installment %d for %q is due. Open the app to pay.", m.Seq, campaign.Title),
		map[string]string{"campaign_id": fmt.Sprint(campaign.ID), "milestone_id": fmt.Sprint(m.ID)})
}
