package models

import (
	"time"
)

type CampaignStatus string

const (
	CampaignStatusDraft          CampaignStatus = "draft"
	CampaignStatusPendingFunding CampaignStatus = "pending_funding"
	CampaignStatusActive         CampaignStatus = "active"
	CampaignStatusCompleted      CampaignStatus = "completed"
	CampaignStatusCancelled      CampaignStatus = "cancelled"
)

type CampaignPaymentStatus string

const (
	CampaignUnpaid        CampaignPaymentStatus = "unpaid"
	CampaignPartiallyPaid CampaignPaymentStatus = "partial"
	CampaignFullyPaid     CampaignPaymentStatus = "completed"
)

type PaymentType string

const (
	PaymentTypeSingle    PaymentType = "single"
	PaymentTypeMilestone PaymentType = "milestone"
)

// Campaign is a time-phased contract between a brand (payer) and a
// creator (payee). All amounts are integer minor currency units.
type Campaign struct {
	ID             int                   `json:"id"`
	BrandID        int                   `json:"brand_id"`
	CreatorID      int                   `json:"creator_id"`
	Title          string                `json:"title"`
	Currency       string                `json:"currency"`
	TotalAmount    int64                 `json:"total_amount"`
	PaidAmount     int64                 `json:"paid_amount"`
	ReleasedAmount int64                 `json:"released_amount"`
	PaymentType    PaymentType           `json:"payment_type"`
	Status         CampaignStatus        `json:"status"`
	PaymentStatus  CampaignPaymentStatus `json:"payment_status"`
	Version        int                   `json:"-"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// BalanceSummary is the per-campaign money view consumed by the admin layer.
type BalanceSummary struct {
	CampaignID      int    `json:"campaign_id"`
	Currency        string `json:"currency"`
	TotalAmount     int64  `json:"total_amount"`
	PaidAmount      int64  `json:"paid_amount"`
	OutstandingDue  int64  `json:"outstanding_due"`
	ReleasedAmount  int64  `json:"released_amount"`
	PendingRelease  int64  `json:"pending_release"`
	MilestonesTotal int    `json:"milestones_total"`
	MilestonesPaid  int    `json:"milestones_paid"`
}
