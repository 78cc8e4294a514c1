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

// Payout rails. Each gateway variant verifies bank destinations its own
// way, so the engine talks to three narrow interfaces instead of one.

// PaystackRail is the simple-recipient model: register the destination
// once, cache the code, then transfer against it.
type PaystackRail interface {
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (string, error)
	SubmitTransfer(ctx context.Context, recipientCode string, amount int64, currency, reference, reason, idempotencyKey string) (gateways.TransferResult, error)
}

// TrueLayerRail is open-loop: bank details travel inline with every payout.
type TrueLayerRail interface {
	SubmitPayout(ctx context.Context, req gateways.TrueLayerPayoutRequest) (gateways.TrueLayerPayoutResult, error)
}

// NiumRail is the multi-step model: recipient, payout method, then a
// two-call confirmation-of-payee before any money moves.
type NiumRail interface {
	CreateRecipient(ctx context.Context, name, email string) (string, error)
	CreatePayoutMethod(ctx context.Context, recipientID, accountName, accountNumber, bankCode, currency string) (string, error)
	InitiateConfirmation(ctx context.Context, payoutMethodID, accountName string) (string, bool, error)
	AcknowledgeConfirmation(ctx context.Context, checkID string) error
	SubmitPayout(ctx context.Context, payoutMethodID string, amount int64, currency, reference, idempotencyKey string) (gateways.NiumPayoutResult, error)
}

type CurrencyRouter interface {
	RouteByCurrency(currency string) string
}

// PayoutService turns completed incoming payments into escrow releases and
// outbound transfers to creators' bank accounts.
type PayoutService struct {
	Payouts       PayoutStore
	Withdrawals   WithdrawalStore
	Beneficiaries BeneficiaryStore
	Creators      CreatorStore
	Campaigns     CampaignStore

	Router    CurrencyRouter
	Paystack  PaystackRail
	TrueLayer TrueLayerRail
	Nium      NiumRail

	Fees     FeeCalculator
	Notifier Notifier

	// Bounded-retry policy for outbound submissions.
	MaxAttempts int
	RetryDelay  time.Duration
	Sleep       func(time.Duration)

	Logger *slog.Logger
}

func (s *PayoutService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *PayoutService) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// ReleaseFromTransaction creates the escrow-release record for a completed
// transaction and immediately attempts the automatic withdrawal. Called
// from the payment cascade.
func (s *PayoutService) ReleaseFromTransaction(ctx context.Context, campaign models.Campaign, tx models.Transaction) (models.Payout, error) {
	fee := s.Fees.PayeeFee(tx.Amount)
	now := time.Now().UTC()
	p := models.Payout{
		CampaignID:    campaign.ID,
		CreatorID:     campaign.CreatorID,
		TransactionID: tx.ID,
		GrossAmount:   tx.Amount,
		FeeAmount:     fee,
		NetAmount:     tx.Amount - fee,
		Currency:      tx.Currency,
		Status:        models.PayoutStatusReleased,
		ReleasedAt:    &now,
	}
	if err := s.Payouts.CreatePayout(ctx, &p); err != nil {
		return models.Payout{}, err
	}
	if err := s.Campaigns.AddReleasedAmount(ctx, campaign.ID, p.NetAmount); err != nil {
		s.logger().Error("add released amount failed", "campaign_id", campaign.ID, "payout_id", p.ID, "err", err)
	}
	s.AutoWithdraw(ctx, p)
	return p, nil
}

// ReleasePayout is the manual/admin path: pending_release becomes released,
// then the engine tries the automatic transfer.
func (s *PayoutService) ReleasePayout(ctx context.Context, payoutID int) (models.Payout, error) {
	p, err := s.Payouts.GetByID(ctx, payoutID)
	if err != nil {
		return models.Payout{}, err
	}
	ok, err := s.Payouts.ReleaseIfPending(ctx, payoutID, time.Now().UTC())
	if err != nil {
		return models.Payout{}, err
	}
	if !ok {
		return models.Payout{}, models.ErrPayoutNotReleasable
	}
	p.Status = models.PayoutStatusReleased
	if err := s.Campaigns.AddReleasedAmount(ctx, p.CampaignID, p.NetAmount); err != nil {
		s.logger().Error("add released amount failed", "campaign_id", p.CampaignID, "payout_id", p.ID, "err", err)
	}
	s.AutoWithdraw(ctx, p)
	return p, nil
}

// AutoWithdraw attempts a transfer to the creator's default beneficiary for
// the payout currency. Missing beneficiary is not an error: the creator is
// told to add one and the funds stay available for manual withdrawal.
func (s *PayoutService) AutoWithdraw(ctx context.Context, p models.Payout) {
	logger := s.logger().With("op", "AutoWithdraw", "payout_id", p.ID)

	creator, err := s.Creators.GetCreatorByID(ctx, p.CreatorID)
	if err != nil {
		logger.Error("load creator failed", "creator_id", p.CreatorID, "err", err)
		return
	}
	ben, err := s.Beneficiaries.GetDefault(ctx, p.CreatorID, p.Currency)
	if errors.Is(err, models.ErrBeneficiaryNotFound) {
		logger.Info("no default beneficiary, keeping funds available", "currency", p.Currency)
		s.Notifier.Notify(ctx, creator.FCMToken, "Payment released",
			fmt.Sprintf("Add a %s bank account to receive your payout automatically.", p.Currency),
			map[string]string{"payout_id": fmt.Sprint(p.ID)})
		return
	}
	if err != nil {
		logger.Error("load beneficiary failed", "err", err)
		return
	}
	if _, err := s.Withdraw(ctx, p, ben, creator); err != nil {
		logger.Error("auto-withdrawal failed", "err", err)
	}
}

// Withdraw submits one outbound transfer of a released payout to the given
// beneficiary and tracks it as a Withdrawal.
func (s *PayoutService) Withdraw(ctx context.Context, p models.Payout, ben models.BeneficiaryAccount, creator models.Creator) (models.Withdrawal, error) {
	if p.Status != models.PayoutStatusReleased {
		return models.Withdrawal{}, models.ErrPayoutNotReleasable
	}
	gateway := s.Router.RouteByCurrency(p.Currency)
	w := models.Withdrawal{
		PayoutID:      p.ID,
		CreatorID:     p.CreatorID,
		BeneficiaryID: ben.ID,
		Reference:     uuid.NewString(),
		Amount:        p.NetAmount,
		Currency:      p.Currency,
		Gateway:       gateway,
		Status:        models.WithdrawalStatusPending,
	}
	if err := s.Withdrawals.CreateWithdrawal(ctx, &w); err != nil {
		return models.Withdrawal{}, err
	}

	transferCode, status, err := s.submit(ctx, gateway, &ben, w, creator)
	if err != nil {
		if _, ferr := s.Withdrawals.MarkFailed(ctx, w.ID, err.Error()); ferr != nil {
			s.logger().Error("mark withdrawal failed", "withdrawal_id", w.ID, "err", ferr)
		}
		w.Status = models.WithdrawalStatusFailed
		w.FailureReason = err.Error()
		s.Notifier.Notify(ctx, creator.FCMToken, "Payout failed",
			fmt.Sprintf("Your payout could not be sent: %s. Funds remain in your available balance.", err.Error()),
			map[string]string{"payout_id": fmt.Sprint(p.ID)})
		return w, err
	}

	if err := s.Withdrawals.MarkProcessing(ctx, w.ID, transferCode); err != nil {
		s.logger().Error("mark withdrawal processing", "withdrawal_id", w.ID, "err", err)
	}
	w.Status = models.WithdrawalStatusProcessing
	w.TransferCode = transferCode
	if err := s.Payouts.SetStatus(ctx, p.ID, models.PayoutStatusProcessing); err != nil {
		s.logger().Error("mark payout processing", "payout_id", p.ID, "err", err)
	}

	// Some rails answer with a terminal result synchronously.
	if status == gateways.StatusSuccessful {
		if ok, err := s.Withdrawals.MarkCompleted(ctx, w.ID); err == nil && ok {
			w.Status = models.WithdrawalStatusCompleted
			if err := s.Payouts.SetStatus(ctx, p.ID, models.PayoutStatusPaid); err != nil {
				s.logger().Error("mark payout paid", "payout_id", p.ID, "err", err)
			}
			s.Notifier.Notify(ctx, creator.FCMToken, "Payout sent",
				"Your payout has been sent to your bank account.",
				map[string]string{"payout_id": fmt.Sprint(p.ID)})
		}
	}
	return w, nil
}

// submit runs the gateway-specific verification and submission steps.
// It returns the gateway-side transfer identifier and the reported status.
func (s *PayoutService) submit(ctx context.Context, gateway string, ben *models.BeneficiaryAccount, w models.Withdrawal, creator models.Creator) (string, gateways.Status, error) {
	// The idempotency key binds the withdrawal reference to the amount, so
	// a retried submission after a timeout cannot create a second transfer.
	idempotencyKey := fmt.Sprintf("%s-%d", w.Reference, w.Amount)

	switch gateway {
	case gateways.NamePaystack:
		if ben.PaystackRecipientCode == "" {
			var code string
			err := s.withRetry(ctx, "create recipient", func() error {
				var err error
				code, err = s.Paystack.CreateRecipient(ctx, ben.AccountName, ben.AccountNumber, ben.BankCode, ben.Currency)
				return err
			})
			if err != nil {
				return "", "", err
			}
			ben.PaystackRecipientCode = code
			if err := s.Beneficiaries.SavePaystackRecipient(ctx, ben.ID, code); err != nil {
				s.logger().Error("cache recipient code", "beneficiary_id", ben.ID, "err", err)
			}
		}
		var res gateways.TransferResult
		err := s.withRetry(ctx, "submit transfer", func() error {
			var err error
			res, err = s.Paystack.SubmitTransfer(ctx, ben.PaystackRecipientCode, w.Amount, w.Currency, w.Reference, "Campaign payout", idempotencyKey)
			return err
		})
		if err != nil {
			return "", "", err
		}
		return res.TransferCode, res.Status, nil

	case gateways.NameTrueLayer:
		var res gateways.TrueLayerPayoutResult
		err := s.withRetry(ctx, "submit payout", func() error {
			var err error
			res, err = s.TrueLayer.SubmitPayout(ctx, gateways.TrueLayerPayoutRequest{
				Reference:      w.Reference,
				Amount:         w.Amount,
				Currency:       w.Currency,
				AccountName:    ben.AccountName,
				SortCode:       ben.BankCode,
				AccountNumber:  ben.AccountNumber,
				IdempotencyKey: idempotencyKey,
			})
			return err
		})
		if err != nil {
			return "", "", err
		}
		return res.PayoutID, res.Status, nil

	case gateways.NameNium:
		if err := s.ensureNiumDestination(ctx, ben, creator); err != nil {
			return "", "", err
		}
		var res gateways.NiumPayoutResult
		err := s.withRetry(ctx, "submit payout", func() error {
			var err error
			res, err = s.Nium.SubmitPayout(ctx, ben.NiumPayoutMethodID, w.Amount, w.Currency, w.Reference, idempotencyKey)
			return err
		})
		if err != nil {
			return "", "", err
		}
		return res.PayoutID, res.Status, nil
	}
	return "", "", fmt.Errorf("no payout rail for gateway %q", gateway)
}

// ensureNiumDestination walks the recipient / payout-method /
// confirmation-of-payee sequence, persisting each identifier as soon as the
// step succeeds so a crash resumes where it stopped.
func (s *PayoutService) ensureNiumDestination(ctx context.Context, ben *models.BeneficiaryAccount, creator models.Creator) error {
	if ben.NiumRecipientID == "" {
		var recipientID string
		err := s.withRetry(ctx, "create recipient", func() error {
			var err error
			recipientID, err = s.Nium.CreateRecipient(ctx, ben.AccountName, creator.Email)
			return err
		})
		if err != nil {
			return err
		}
		ben.NiumRecipientID = recipientID
		if err := s.Beneficiaries.SaveNiumRecipient(ctx, ben.ID, recipientID); err != nil {
			s.logger().Error("cache nium recipient", "beneficiary_id", ben.ID, "err", err)
		}
	}
	if ben.NiumPayoutMethodID == "" {
		var methodID string
		err := s.withRetry(ctx, "create payout method", func() error {
			var err error
			methodID, err = s.Nium.CreatePayoutMethod(ctx, ben.NiumRecipientID, ben.AccountName, ben.AccountNumber, ben.BankCode, ben.Currency)
			return err
		})
		if err != nil {
			return err
		}
		ben.NiumPayoutMethodID = methodID
		if err := s.Beneficiaries.SaveNiumPayoutMethod(ctx, ben.ID, methodID); err != nil {
			s.logger().Error("cache nium payout method", "beneficiary_id", ben.ID, "err", err)
		}
	}
	if ben.NiumCopStatus != models.CopStatusAcknowledged {
		var checkID string
		var matched bool
		err := s.withRetry(ctx, "confirmation of payee", func() error {
			var err error
			checkID, matched, err = s.Nium.InitiateConfirmation(ctx, ben.NiumPayoutMethodID, ben.AccountName)
			return err
		})
		if err != nil {
			return err
		}
		if !matched {
			return fmt.Errorf("account name does not match the registered account holder")
		}
		if err := s.Beneficiaries.SaveNiumCopStatus(ctx, ben.ID, models.CopStatusInitiated); err != nil {
			s.logger().Error("save cop status", "beneficiary_id", ben.ID, "err", err)
		}
		if err := s.withRetry(ctx, "acknowledge confirmation", func() error {
			return s.Nium.AcknowledgeConfirmation(ctx, checkID)
		}); err != nil {
			return err
		}
		ben.NiumCopStatus = models.CopStatusAcknowledged
		if err := s.Beneficiaries.SaveNiumCopStatus(ctx, ben.ID, models.CopStatusAcknowledged); err != nil {
			s.logger().Error("save cop status", "beneficiary_id", ben.ID, "err", err)
		}
	}
	return nil
}

// withRetry runs fn up to MaxAttempts times with a linearly increasing
// delay between attempts. Non-retryable gateway errors fail immediately.
func (s *PayoutService) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !gateways.IsRetryable(lastErr) {
			return lastErr
		}
		s.logger().Warn("retryable gateway failure", "op", op, "attempt", attempt, "err", lastErr)
		if attempt < attempts {
			s.sleep(s.RetryDelay * time.Duration(attempt))
		}
	}
	return lastErr
}

// ReconcileTransferEvent applies a transfer/payout webhook to its
// withdrawal. Duplicate deliveries fall through the conditional updates.
func (s *PayoutService) ReconcileTransferEvent(ctx context.Context, gatewayName string, ev gateways.WebhookEvent) error {
	logger := s.logger().With("op", "ReconcileTransferEvent", "gateway", gatewayName, "event", ev.Event)

	w, err := s.Withdrawals.GetByTransferCode(ctx, gatewayName, ev.TransferCode)
	if errors.Is(err, models.ErrWithdrawalNotFound) && ev.Reference != "" {
		w, err = s.Withdrawals.GetByReference(ctx, ev.Reference)
	}
	if err != nil {
		return err
	}

	switch ev.Status {
	case gateways.StatusSuccessful:
		ok, err := s.Withdrawals.MarkCompleted(ctx, w.ID)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("duplicate transfer webhook ignored", "withdrawal_id", w.ID)
			return nil
		}
		if err := s.Payouts.SetStatus(ctx, w.PayoutID, models.PayoutStatusPaid); err != nil {
			logger.Error("mark payout paid", "payout_id", w.PayoutID, "err", err)
		}
		if creator, err := s.Creators.GetCreatorByID(ctx, w.CreatorID); err == nil {
			s.Notifier.Notify(ctx, creator.FCMToken, "Payout sent",
				"Your payout has been sent to your bank account.",
				map[string]string{"withdrawal_id": fmt.Sprint(w.ID)})
		}
	case gateways.StatusFailed, gateways.StatusCancelled:
		reason := ev.FailureReason
		if reason == "" {
			reason = "transfer failed"
		}
		ok, err := s.Withdrawals.MarkFailed(ctx, w.ID, reason)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		// Funds go back to the available balance.
		if err := s.Payouts.SetStatus(ctx, w.PayoutID, models.PayoutStatusReleased); err != nil {
			logger.Error("restore payout", "payout_id", w.PayoutID, "err", err)
		}
		if creator, err := s.Creators.GetCreatorByID(ctx, w.CreatorID); err == nil {
			s.Notifier.Notify(ctx, creator.FCMToken, "Payout failed",
				fmt.Sprintf("Your payout could not be completed: %s. Funds remain in your available balance.", reason),
				map[string]string{"withdrawal_id": fmt.Sprint(w.ID)})
		}
	default:
		logger.Debug("transfer still in flight", "withdrawal_id", w.ID, "status", ev.Status)
	}
	return nil
}
