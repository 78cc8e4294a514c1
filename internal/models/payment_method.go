package models

import "time"

// PaymentMethod is a brand's saved, reusable charge token for one gateway,
// used for recurring and auto-pay charges.
type PaymentMethod struct {
	ID        int       `json:"id"`
	BrandID   int       `json:"brand_id"`
	Gateway   string    `json:"gateway"`
	Token     string    `json:"-"`
	CardBrand string    `json:"card_brand,omitempty"`
	Last4     string    `json:"last4,omitempty"`
	ExpMonth  string    `json:"exp_month,omitempty"`
	ExpYear   string    `json:"exp_year,omitempty"`
	Reusable  bool      `json:"reusable"`
	CreatedAt time.Time `json:"created_at"`
}
