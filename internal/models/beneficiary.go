package models

import "time"

// CoP (confirmation of payee) states for the Nium payout rail. The ids of
// each completed external step are cached on the beneficiary so a failed
// run resumes from where it stopped instead of recreating remote objects.
type CopStatus string

const (
	CopStatusNone         CopStatus = ""
	CopStatusInitiated    CopStatus = "initiated"
	CopStatusAcknowledged CopStatus = "acknowledged"
)

// BeneficiaryAccount is a creator's saved bank destination. At most one
// default account per creator and currency.
type BeneficiaryAccount struct {
	ID            int       `json:"id"`
	CreatorID     int       `json:"creator_id"`
	Currency      string    `json:"currency"`
	AccountName   string    `json:"account_name"`
	AccountNumber string    `json:"account_number"`
	BankCode      string    `json:"bank_code"`
	BankName      string    `json:"bank_name"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`

	// Gateway-side identifiers created during verification.
	PaystackRecipientCode string    `json:"-"`
	NiumRecipientID       string    `json:"-"`
	NiumPayoutMethodID    string    `json:"-"`
	NiumCopStatus         CopStatus `json:"-"`
}
