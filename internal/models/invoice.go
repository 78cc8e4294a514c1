package models

import "time"

// Invoice is the numbered record created once a transaction completes.
type Invoice struct {
	ID            int       `json:"id"`
	Number        string    `json:"number"`
	TransactionID int       `json:"transaction_id"`
	CampaignID    int       `json:"campaign_id"`
	BrandID       int       `json:"brand_id"`
	Amount        int64     `json:"amount"`
	Fee           int64     `json:"fee"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}
