package services

import (
	"context"
	"time"

	"kolabBack/internal/models"
)

// Store interfaces cover exactly the repository calls the payment core
// makes; the repositories package satisfies them and tests swap in fakes.

type CampaignStore interface {
	GetCampaignByID(ctx context.Context, id int) (models.Campaign, error)
	AddPaidAmount(ctx context.Context, id int, delta int64) error
	AddReleasedAmount(ctx context.Context, id int, delta int64) error
	ActivateIfAwaitingFunding(ctx context.Context, id int) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id int, status models.CampaignPaymentStatus) error
	OutstandingForBrand(ctx context.Context, brandID int) (int64, error)
}

type MilestoneStore interface {
	CreateMilestones(ctx context.Context, milestones []models.Milestone) error
	GetMilestoneByID(ctx context.Context, id int) (models.Milestone, error)
	GetMilestonesByCampaign(ctx context.Context, campaignID int) ([]models.Milestone, error)
	HasPaidMilestone(ctx context.Context, campaignID int) (bool, error)
	MarkPaid(ctx context.Context, id, transactionID int, paidAt time.Time) (bool, error)
	MarkAllPaid(ctx context.Context, campaignID, transactionID int, paidAt time.Time) (int64, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	DueForCollection(ctx context.Context, now time.Time) ([]models.Milestone, error)
	SumPaid(ctx context.Context, campaignID int) (int64, error)
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetByReference(ctx context.Context, reference string) (models.Transaction, error)
	GetByID(ctx context.Context, id int) (models.Transaction, error)
	SetGatewayDetails(ctx context.Context, id int, gatewayPaymentID, authorizationURL string) error
	MarkCompleted(ctx context.Context, id int, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int, reason string) (bool, error)
}

type PayoutStore interface {
	CreatePayout(ctx context.Context, p *models.Payout) error
	GetByID(ctx context.Context, id int) (models.Payout, error)
	GetByTransactionID(ctx context.Context, transactionID int) (models.Payout, error)
	ReleaseIfPending(ctx context.Context, id int, at time.Time) (bool, error)
	SetStatus(ctx context.Context, id int, status models.PayoutStatus) error
	SumReleasedForCampaign(ctx context.Context, campaignID int) (int64, error)
	SumPendingReleaseForCampaign(ctx context.Context, campaignID int) (int64, error)
}

type WithdrawalStore interface {
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetByReference(ctx context.Context, reference string) (models.Withdrawal, error)
	GetByTransferCode(ctx context.Context, gateway, transferCode string) (models.Withdrawal, error)
	MarkProcessing(ctx context.Context, id int, transferCode string) error
	MarkCompleted(ctx context.Context, id int) (bool, error)
	MarkFailed(ctx context.Context, id int, reason string) (bool, error)
}

type BeneficiaryStore interface {
	GetByID(ctx context.Context, id int) (models.BeneficiaryAccount, error)
	GetDefault(ctx context.Context, creatorID int, currency string) (models.BeneficiaryAccount, error)
	SavePaystackRecipient(ctx context.Context, id int, recipientCode string) error
	SaveNiumRecipient(ctx context.Context, id int, recipientID string) error
	SaveNiumPayoutMethod(ctx context.Context, id int, payoutMethodID string) error
	SaveNiumCopStatus(ctx context.Context, id int, status models.CopStatus) error
}

type PaymentMethodStore interface {
	SavePaymentMethod(ctx context.Context, m *models.PaymentMethod) error
	GetByID(ctx context.Context, id int) (models.PaymentMethod, error)
	GetReusableForBrand(ctx context.Context, brandID int, gateway string) (models.PaymentMethod, error)
}

type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
}

type BrandStore interface {
	GetBrandByID(ctx context.Context, id int) (models.Brand, error)
}

type CreatorStore interface {
	GetCreatorByID(ctx context.Context, id int) (models.Creator, error)
}
