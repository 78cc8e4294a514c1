package models

import (
	"errors"
)

var (
	ErrNoRecord               = errors.New("models: no matching record found")
	ErrCampaignNotFound       = errors.New("models: campaign not found")
	ErrMilestoneNotFound      = errors.New("models: milestone not found")
	ErrTransactionNotFound    = errors.New("models: transaction not found")
	ErrPayoutNotFound         = errors.New("models: payout not found")
	ErrWithdrawalNotFound     = errors.New("models: withdrawal not found")
	ErrBeneficiaryNotFound    = errors.New("models: beneficiary account not found")
	ErrPaymentMethodNotFound  = errors.New("models: payment method not found")
	ErrBrandNotFound          = errors.New("models: brand not found")
	ErrMilestoneNotPayable    = errors.New("milestone is not payable")
	ErrFullPaymentUnavailable = errors.New("full-balance payment unavailable once a milestone is paid")
	ErrNothingToPay           = errors.New("campaign has no outstanding balance")
	ErrPayoutNotReleasable    = errors.New("payout is not awaiting release")
	ErrInstrumentNotReusable  = errors.New("payment method does not support off-session charges")
	ErrScheduleMismatch       = errors.New("milestone amounts do not sum to campaign total")
	ErrInvalidAmount          = errors.New("payment amount must be positive and within the outstanding balance")
	ErrDuplicateReference     = errors.New("duplicate transaction reference")
)
