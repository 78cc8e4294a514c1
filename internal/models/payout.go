package models

import "time"

type PayoutStatus string

const (
	PayoutStatusPendingRelease PayoutStatus = "pending_release"
	PayoutStatusReleased       PayoutStatus = "released"
	PayoutStatusProcessing     PayoutStatus = "processing"
	PayoutStatusPaid           PayoutStatus = "paid"
	PayoutStatusFailed         PayoutStatus = "failed"
)

// Payout is the escrow-release record for funds owed to a creator, net of
// the payee-side fee. Exactly one payout derives from one completed
// transaction.
type Payout struct {
	ID            int          `json:"id"`
	CampaignID    int          `json:"campaign_id"`
	CreatorID     int          `json:"creator_id"`
	TransactionID int          `json:"transaction_id"`
	GrossAmount   int64        `json:"gross_amount"`
	FeeAmount     int64        `json:"fee_amount"`
	NetAmount     int64        `json:"net_amount"`
	Currency      string       `json:"currency"`
	Status        PayoutStatus `json:"status"`
	ReleasedAt    *time.Time   `json:"released_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
