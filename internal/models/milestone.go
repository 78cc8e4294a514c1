package models

import "time"

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusOverdue   MilestoneStatus = "overdue"
	MilestoneStatusPaid      MilestoneStatus = "paid"
	MilestoneStatusCancelled MilestoneStatus = "cancelled"
)

// Milestone is one scheduled installment of a campaign's total amount.
// A milestone becomes paid at most once and keeps the id of the
// transaction that paid it.
type Milestone struct {
	ID            int             `json:"id"`
	CampaignID    int             `json:"campaign_id"`
	Seq           int             `json:"seq"`
	Amount        int64           `json:"amount"`
	Fee           int64           `json:"fee"`
	DueDate       time.Time       `json:"due_date"`
	Status        MilestoneStatus `json:"status"`
	TransactionID *int            `json:"transaction_id,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Payable reports whether a payment may still be initiated for the milestone.
func (m *Milestone) Payable() bool {
	return m.Status == MilestoneStatusPending || m.Status == MilestoneStatusOverdue
}
