package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusFailed     WithdrawalStatus = "failed"
	WithdrawalStatusCancelled  WithdrawalStatus = "cancelled"
)

// Withdrawal is one attempt to move released funds out to a creator's bank
// account. TransferCode carries the gateway-side identifier used to match
// later transfer webhooks.
type Withdrawal struct {
	ID            int              `json:"id"`
	PayoutID      int              `json:"payout_id"`
	CreatorID     int              `json:"creator_id"`
	BeneficiaryID int              `json:"beneficiary_id"`
	Reference     string           `json:"reference"`
	Amount        int64            `json:"amount"`
	Currency      string           `json:"currency"`
	Gateway       string           `json:"gateway"`
	Status        WithdrawalStatus `json:"status"`
	TransferCode  string           `json:"transfer_code,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
