package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kolabBack/internal/gateways"
	"kolabBack/internal/models"
)

// GatewayDirectory resolves payment network clients. Satisfied by
// gateways.Router; tests install a fake.
type GatewayDirectory interface {
	RouteByCurrency(currency string) string
	ByName(name string) (gateways.Client, error)
}

// PayoutReleaser is the slice of the payout engine the payment cascade
// needs: turn a completed transaction into an escrow release.
type PayoutReleaser interface {
	ReleaseFromTransaction(ctx context.Context, campaign models.Campaign, tx models.Transaction) (models.Payout, error)
}

// PayoutSums feeds the balance view with escrow totals.
type PayoutSums interface {
	SumPendingReleaseForCampaign(ctx context.Context, campaignID int) (int64, error)
}

// PaymentService orchestrates collecting money from brands: starting
// payments, verifying them, and reconciling gateway webhooks into the
// campaign ledger.
type PaymentService struct {
	Campaigns      CampaignStore
	Milestones     MilestoneStore
	Transactions   TransactionStore
	PaymentMethods PaymentMethodStore
	Invoices       InvoiceStore
	Brands         BrandStore
	Creators       CreatorStore

	Gateways   GatewayDirectory
	Payouts    PayoutReleaser
	PayoutSums PayoutSums
	Fees       FeeCalculator
	Notifier   Notifier

	Logger *slog.Logger
}

func (s *PaymentService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// InitiatePaymentRequest describes one payment attempt. MilestoneID nil
// means the brand pays the whole remaining balance, unless AmountOverride
// names a partial amount instead.
type InitiatePaymentRequest struct {
	CampaignID     int
	MilestoneID    *int
	AmountOverride *int64
	BrandID        int
	CallbackURL    string
	SaveInstrument bool
}

// InitiatePayment resolves the amount due, routes the payment to a gateway
// by campaign currency and returns the transaction with its redirect URL.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (models.Transaction, error) {
	logger := s.logger().With("op", "InitiatePayment", "campaign_id", req.CampaignID)

	campaign, err := s.Campaigns.GetCampaignByID(ctx, req.CampaignID)
	if err != nil {
		return models.Transaction{}, err
	}
	if campaign.BrandID != req.BrandID {
		return models.Transaction{}, models.ErrCampaignNotFound
	}
	if campaign.Status == models.CampaignStatusCancelled || campaign.Status == models.CampaignStatusDraft {
		return models.Transaction{}, models.ErrNothingToPay
	}

	amount, milestoneID, err := s.resolveAmount(ctx, campaign, req.MilestoneID, req.AmountOverride)
	if err != nil {
		return models.Transaction{}, err
	}

	brand, err := s.Brands.GetBrandByID(ctx, req.BrandID)
	if err != nil {
		return models.Transaction{}, err
	}

	gatewayName := s.Gateways.RouteByCurrency(campaign.Currency)
	client, err := s.Gateways.ByName(gatewayName)
	if err != nil {
		return models.Transaction{}, err
	}

	fee := s.Fees.PlatformFee(amount)
	tx := models.Transaction{
		Reference:      uuid.NewString(),
		CampaignID:     campaign.ID,
		MilestoneID:    milestoneID,
		BrandID:        brand.ID,
		Gateway:        gatewayName,
		Amount:         amount,
		Fee:            fee,
		Total:          amount + fee,
		Currency:       campaign.Currency,
		Status:         models.TransactionStatusPending,
		SaveInstrument: req.SaveInstrument,
	}
	if err := s.Transactions.CreateTransaction(ctx, &tx); err != nil {
		return models.Transaction{}, err
	}

	res, err := client.InitiatePayment(ctx, gateways.InitiateRequest{
		Reference:      tx.Reference,
		Amount:         tx.Total,
		Currency:       tx.Currency,
		Customer:       gateways.Customer{Email: brand.Email, Name: brand.Name, Phone: brand.Phone},
		CallbackURL:    req.CallbackURL,
		Description:    fmt.Sprintf("Payment for campaign %q", campaign.Title),
		SaveInstrument: req.SaveInstrument,
	})
	if err != nil {
		logger.Error("gateway initiation failed", "gateway", gatewayName, "reference", tx.Reference, "err", err)
		if _, ferr := s.Transactions.MarkFailed(ctx, tx.ID, err.Error()); ferr != nil {
			logger.Error("mark transaction failed", "transaction_id", tx.ID, "err", ferr)
		}
		return models.Transaction{}, err
	}
	if err := s.Transactions.SetGatewayDetails(ctx, tx.ID, res.GatewayPaymentID, res.RedirectURL); err != nil {
		logger.Error("save gateway details", "transaction_id", tx.ID, "err", err)
	}
	tx.GatewayPaymentID = res.GatewayPaymentID
	tx.AuthorizationURL = res.RedirectURL
	return tx, nil
}

// resolveAmount picks what the brand is paying for: a milestone's amount,
// an explicit partial amount, or the whole remaining balance. Milestone
// campaigns can be paid in full, but only while no milestone has been paid
// yet; mixing the two schemes would double-count installments.
func (s *PaymentService) resolveAmount(ctx context.Context, campaign models.Campaign, milestoneID *int, override *int64) (int64, *int, error) {
	if milestoneID != nil {
		m, err := s.Milestones.GetMilestoneByID(ctx, *milestoneID)
		if err != nil {
			return 0, nil, err
		}
		if m.CampaignID != campaign.ID {
			return 0, nil, models.ErrMilestoneNotFound
		}
		if !m.Payable() {
			return 0, nil, models.ErrMilestoneNotPayable
		}
		return m.Amount, milestoneID, nil
	}

	if override != nil {
		remaining := campaign.TotalAmount - campaign.PaidAmount
		if remaining <= 0 {
			return 0, nil, models.ErrNothingToPay
		}
		if *override <= 0 || *override > remaining {
			return 0, nil, models.ErrInvalidAmount
		}
		return *override, nil, nil
	}

	if campaign.PaymentType == models.PaymentTypeMilestone {
		paid, err := s.Milestones.HasPaidMilestone(ctx, campaign.ID)
		if err != nil {
			return 0, nil, err
		}
		if paid {
			return 0, nil, models.ErrFullPaymentUnavailable
		}
	}
	remaining := campaign.TotalAmount - campaign.PaidAmount
	if remaining <= 0 {
		return 0, nil, models.ErrNothingToPay
	}
	return remaining, nil, nil
}

// VerifyPayment asks the gateway for the current state of a transaction and
// applies it. Used by the redirect-return endpoint, where the brand lands
// before the webhook arrives.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (models.Transaction, error) {
	tx, err := s.Transactions.GetByReference(ctx, reference)
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.Status == models.TransactionStatusCompleted || tx.Status == models.TransactionStatusFailed {
		return tx, nil
	}
	client, err := s.Gateways.ByName(tx.Gateway)
	if err != nil {
		return models.Transaction{}, err
	}
	res, err := client.GetStatus(ctx, gateways.PaymentRef{Reference: tx.Reference, GatewayPaymentID: tx.GatewayPaymentID})
	if err != nil {
		return models.Transaction{}, err
	}
	switch res.Status {
	case gateways.StatusSuccessful:
		if err := s.completePayment(ctx, tx, res.Instrument); err != nil {
			return models.Transaction{}, err
		}
		tx.Status = models.TransactionStatusCompleted
	case gateways.StatusFailed, gateways.StatusCancelled, gateways.StatusAbandoned:
		reason := res.FailureReason
		if reason == "" {
			reason = string(res.Status)
		}
		if _, err := s.Transactions.MarkFailed(ctx, tx.ID, reason); err != nil {
			return models.Transaction{}, err
		}
		tx.Status = models.TransactionStatusFailed
		tx.FailureReason = reason
	}
	return tx, nil
}

// TransferReconciler receives payout-side webhook events. Satisfied by
// PayoutService.
type TransferReconciler interface {
	ReconcileTransferEvent(ctx context.Context, gatewayName string, ev gateways.WebhookEvent) error
}

// ProcessWebhook verifies and applies one gateway notification. Charge
// events land on the transaction path, transfer events are handed to the
// payout engine.
func (s *PaymentService) ProcessWebhook(ctx context.Context, gatewayName string, payload []byte, signature string, transfers TransferReconciler) error {
	client, err := s.Gateways.ByName(gatewayName)
	if err != nil {
		return err
	}
	ev, err := client.ProcessWebhook(payload, signature)
	if err != nil {
		return err
	}
	if ev.IsTransfer {
		if transfers == nil {
			s.logger().Warn("transfer webhook with no reconciler", "gateway", gatewayName, "event", ev.Event)
			return nil
		}
		return transfers.ReconcileTransferEvent(ctx, gatewayName, ev)
	}
	return s.applyChargeEvent(ctx, gatewayName, ev)
}

func (s *PaymentService) applyChargeEvent(ctx context.Context, gatewayName string, ev gateways.WebhookEvent) error {
	logger := s.logger().With("op", "applyChargeEvent", "gateway", gatewayName, "event", ev.Event, "reference", ev.Reference)

	tx, err := s.Transactions.GetByReference(ctx, ev.Reference)
	if errors.Is(err, models.ErrTransactionNotFound) {
		// An event for a reference we never issued is dropped, not retried.
		logger.Warn("webhook for unknown reference ignored")
		return nil
	}
	if err != nil {
		return err
	}
	if tx.Gateway != gatewayName {
		logger.Warn("webhook gateway mismatch ignored", "transaction_gateway", tx.Gateway)
		return nil
	}

	switch ev.Status {
	case gateways.StatusSuccessful:
		return s.completePayment(ctx, tx, ev.Instrument)
	case gateways.StatusFailed, gateways.StatusCancelled, gateways.StatusAbandoned:
		reason := ev.FailureReason
		if reason == "" {
			reason = string(ev.Status)
		}
		ok, err := s.Transactions.MarkFailed(ctx, tx.ID, reason)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("failure event after terminal state ignored")
		}
		return nil
	default:
		logger.Debug("non-terminal charge event ignored", "status", ev.Status)
		return nil
	}
}

// completePayment runs the success cascade. The conditional MarkCompleted
// is the idempotency gate: redelivered webhooks and a verify racing a
// webhook both fall through it, so the cascade runs exactly once.
func (s *PaymentService) completePayment(ctx context.Context, tx models.Transaction, instrument *gateways.StoredInstrument) error {
	logger := s.logger().With("op", "completePayment", "transaction_id", tx.ID, "reference", tx.Reference)

	now := time.Now().UTC()
	ok, err := s.Transactions.MarkCompleted(ctx, tx.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		logger.Info("duplicate completion ignored")
		return nil
	}

	if tx.MilestoneID != nil {
		if _, err := s.Milestones.MarkPaid(ctx, *tx.MilestoneID, tx.ID, now); err != nil {
			logger.Error("mark milestone paid", "milestone_id", *tx.MilestoneID, "err", err)
		}
	} else {
		// Full-balance payment on a milestone campaign settles the whole
		// schedule at once.
		if _, err := s.Milestones.MarkAllPaid(ctx, tx.CampaignID, tx.ID, now); err != nil {
			logger.Error("mark milestones paid", "campaign_id", tx.CampaignID, "err", err)
		}
	}

	if err := s.Campaigns.AddPaidAmount(ctx, tx.CampaignID, tx.Amount); err != nil {
		// The conditional update rejects overpayment; the transaction stays
		// completed and the discrepancy is surfaced for operators.
		logger.Error("add paid amount rejected", "campaign_id", tx.CampaignID, "amount", tx.Amount, "err", err)
	}
	if activated, err := s.Campaigns.ActivateIfAwaitingFunding(ctx, tx.CampaignID); err != nil {
		logger.Error("activate campaign", "campaign_id", tx.CampaignID, "err", err)
	} else if activated {
		logger.Info("campaign activated", "campaign_id", tx.CampaignID)
	}

	campaign, err := s.Campaigns.GetCampaignByID(ctx, tx.CampaignID)
	if err != nil {
		return err
	}
	paymentStatus := models.CampaignPartiallyPaid
	if campaign.PaidAmount >= campaign.TotalAmount {
		paymentStatus = models.CampaignFullyPaid
	}
	if err := s.Campaigns.UpdatePaymentStatus(ctx, campaign.ID, paymentStatus); err != nil {
		logger.Error("update payment status", "campaign_id", campaign.ID, "err", err)
	}

	inv := models.Invoice{
		TransactionID: tx.ID,
		CampaignID:    tx.CampaignID,
		BrandID:       tx.BrandID,
		Amount:        tx.Amount,
		Fee:           tx.Fee,
		Total:         tx.Total,
		Currency:      tx.Currency,
	}
	if err := s.Invoices.CreateInvoice(ctx, &inv); err != nil {
		logger.Error("create invoice", "err", err)
	}

	if tx.SaveInstrument && instrument != nil && instrument.Reusable {
		pm := models.PaymentMethod{
			BrandID:   tx.BrandID,
			Gateway:   tx.Gateway,
			Token:     instrument.Token,
			CardBrand: instrument.CardBrand,
			Last4:     instrument.Last4,
			ExpMonth:  instrument.ExpMonth,
			ExpYear:   instrument.ExpYear,
			Reusable:  true,
		}
		if err := s.PaymentMethods.SavePaymentMethod(ctx, &pm); err != nil {
			logger.Error("save payment method", "brand_id", tx.BrandID, "err", err)
		}
	}

	if s.Payouts != nil {
		if _, err := s.Payouts.ReleaseFromTransaction(ctx, campaign, tx); err != nil {
			logger.Error("release payout", "err", err)
		}
	}

	s.notifyCompletion(ctx, campaign, tx)
	return nil
}

func (s *PaymentService) notifyCompletion(ctx context.Context, campaign models.Campaign, tx models.Transaction) {
	if s.Notifier == nil {
		return
	}
	if brand, err := s.Brands.GetBrandByID(ctx, tx.BrandID); err == nil {
		s.Notifier.Notify(ctx, brand.FCMToken, "Payment received",
			fmt.Sprintf("Your payment for %q was successful.", campaign.Title),
			map[string]string{"campaign_id": fmt.Sprint(campaign.ID), "transaction_id": fmt.Sprint(tx.ID)})
	}
	if creator, err := s.Creators.GetCreatorByID(ctx, campaign.CreatorID); err == nil {
		s.Notifier.Notify(ctx, creator.FCMToken, "Campaign funded",
			fmt.Sprintf("A payment arrived for %q.", campaign.Title),
			map[string]string{"campaign_id": fmt.Sprint(campaign.ID)})
	}
}

// ChargeRecurringPayment collects a due milestone off-session using the
// brand's saved payment method. Gateways without stored-instrument support
// surface ErrNotSupported and the milestone waits for a manual payment.
func (s *PaymentService) ChargeRecurringPayment(ctx context.Context, milestoneID int) (models.Transaction, error) {
	logger := s.logger().With("op", "ChargeRecurringPayment", "milestone_id", milestoneID)

	m, err := s.Milestones.GetMilestoneByID(ctx, milestoneID)
	if err != nil {
		return models.Transaction{}, err
	}
	if !m.Payable() {
		return models.Transaction{}, models.ErrMilestoneNotPayable
	}
	campaign, err := s.Campaigns.GetCampaignByID(ctx, m.CampaignID)
	if err != nil {
		return models.Transaction{}, err
	}
	brand, err := s.Brands.GetBrandByID(ctx, campaign.BrandID)
	if err != nil {
		return models.Transaction{}, err
	}

	gatewayName := s.Gateways.RouteByCurrency(campaign.Currency)
	client, err := s.Gateways.ByName(gatewayName)
	if err != nil {
		return models.Transaction{}, err
	}
	pm, err := s.PaymentMethods.GetReusableForBrand(ctx, brand.ID, gatewayName)
	if err != nil {
		return models.Transaction{}, err
	}
	if !pm.Reusable {
		return models.Transaction{}, models.ErrInstrumentNotReusable
	}

	fee := s.Fees.PlatformFee(m.Amount)
	tx := models.Transaction{
		Reference:  uuid.NewString(),
		CampaignID: campaign.ID,
		MilestoneID: func() *int {
			id := m.ID
			return &id
		}(),
		BrandID:  brand.ID,
		Gateway:  gatewayName,
		Amount:   m.Amount,
		Fee:      fee,
		Total:    m.Amount + fee,
		Currency: campaign.Currency,
		Status:   models.TransactionStatusPending,
	}
	if err := s.Transactions.CreateTransaction(ctx, &tx); err != nil {
		return models.Transaction{}, err
	}

	res, err := client.ChargeStoredInstrument(ctx, gateways.ChargeRequest{
		Reference: tx.Reference,
		Token:     pm.Token,
		Amount:    tx.Total,
		Currency:  tx.Currency,
		Email:     brand.Email,
	})
	if err != nil {
		if _, ferr := s.Transactions.MarkFailed(ctx, tx.ID, err.Error()); ferr != nil {
			logger.Error("mark transaction failed", "transaction_id", tx.ID, "err", ferr)
		}
		return models.Transaction{}, err
	}
	if res.GatewayPaymentID != "" {
		if err := s.Transactions.SetGatewayDetails(ctx, tx.ID, res.GatewayPaymentID, ""); err != nil {
			logger.Error("save gateway details", "transaction_id", tx.ID, "err", err)
		}
		tx.GatewayPaymentID = res.GatewayPaymentID
	}

	switch res.Status {
	case gateways.StatusSuccessful:
		if err := s.completePayment(ctx, tx, nil); err != nil {
			return models.Transaction{}, err
		}
		tx.Status = models.TransactionStatusCompleted
	case gateways.StatusFailed:
		if _, err := s.Transactions.MarkFailed(ctx, tx.ID, "charge declined"); err != nil {
			logger.Error("mark transaction failed", "transaction_id", tx.ID, "err", err)
		}
		tx.Status = models.TransactionStatusFailed
	default:
		// Pending charges resolve through the webhook path.
	}
	return tx, nil
}

// CampaignBalance assembles the money view of one campaign.
func (s *PaymentService) CampaignBalance(ctx context.Context, campaignID int) (models.BalanceSummary, error) {
	campaign, err := s.Campaigns.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return models.BalanceSummary{}, err
	}
	summary := models.BalanceSummary{
		CampaignID:     campaign.ID,
		Currency:       campaign.Currency,
		TotalAmount:    campaign.TotalAmount,
		PaidAmount:     campaign.PaidAmount,
		OutstandingDue: campaign.TotalAmount - campaign.PaidAmount,
		ReleasedAmount: campaign.ReleasedAmount,
	}
	if s.PayoutSums != nil {
		pending, err := s.PayoutSums.SumPendingReleaseForCampaign(ctx, campaignID)
		if err != nil {
			return models.BalanceSummary{}, err
		}
		summary.PendingRelease = pending
	}
	if campaign.PaymentType == models.PaymentTypeMilestone {
		milestones, err := s.Milestones.GetMilestonesByCampaign(ctx, campaignID)
		if err != nil {
			return models.BalanceSummary{}, err
		}
		summary.MilestonesTotal = len(milestones)
		for _, m := range milestones {
			if m.Status == models.MilestoneStatusPaid {
				summary.MilestonesPaid++
			}
		}
	}
	return summary, nil
}

// OutstandingBalance sums what a brand still owes across its fundable
// campaigns.
func (s *PaymentService) OutstandingBalance(ctx context.Context, brandID int) (int64, error) {
	return s.Campaigns.OutstandingForBrand(ctx, brandID)
}
