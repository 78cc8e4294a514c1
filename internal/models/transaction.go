package models

import "time"

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is one attempt to collect money from a brand. The reference
// is our idempotent key towards the gateway; completed is a one-way
// transition and is never reverted by a later webhook.
type Transaction struct {
	ID               int               `json:"id"`
	Reference        string            `json:"reference"`
	CampaignID       int               `json:"campaign_id"`
	MilestoneID      *int              `json:"milestone_id,omitempty"`
	BrandID          int               `json:"brand_id"`
	Gateway          string            `json:"gateway"`
	Amount           int64             `json:"amount"`
	Fee              int64             `json:"fee"`
	Total            int64             `json:"total"`
	Currency         string            `json:"currency"`
	Status           TransactionStatus `json:"status"`
	GatewayPaymentID string            `json:"gateway_payment_id,omitempty"`
	AuthorizationURL string            `json:"authorization_url,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
	SaveInstrument   bool              `json:"save_instrument"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}
