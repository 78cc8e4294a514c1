package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kolabBack/internal/gateways"
	"kolabBack/internal/models"
)

type paymentFixture struct {
	campaigns   *fakeCampaignStore
	milestones  *fakeMilestoneStore
	txs         *fakeTransactionStore
	methods     *fakePaymentMethodStore
	invoices    *fakeInvoiceStore
	payouts     *fakePayoutStore
	withdrawals *fakeWithdrawalStore
	bens        *fakeBeneficiaryStore
	notifier    *fakeNotifier
	gateway     *fakeGateway

	payments *PaymentService
	engine   *PayoutService
}

// newPaymentFixture wires a milestone campaign of 4 x 25000 minor units,
// platform fee 2%, payee fee 3%.
func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	campaign := models.Campaign{
		ID:            1,
		BrandID:       10,
		CreatorID:     20,
		Title:         "Spring launch",
		Currency:      "USD",
		TotalAmount:   100000,
		PaymentType:   models.PaymentTypeMilestone,
		Status:        models.CampaignStatusPendingFunding,
		PaymentStatus: models.CampaignUnpaid,
	}
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var ms []models.Milestone
	for i := 0; i < 4; i++ {
		ms = append(ms, models.Milestone{
			ID:         i + 1,
			CampaignID: 1,
			Seq:        i + 1,
			Amount:     25000,
			Fee:        500,
			DueDate:    due.AddDate(0, i, 0),
			Status:     models.MilestoneStatusPending,
		})
	}

	f := &paymentFixture{
		campaigns:   newFakeCampaignStore(campaign),
		milestones:  newFakeMilestoneStore(ms...),
		txs:         newFakeTransactionStore(),
		methods:     &fakePaymentMethodStore{},
		invoices:    &fakeInvoiceStore{},
		payouts:     newFakePayoutStore(),
		withdrawals: newFakeWithdrawalStore(),
		bens:        newFakeBeneficiaryStore(),
		notifier:    &fakeNotifier{},
		gateway: &fakeGateway{
			name:     "paystack",
			initResp: gateways.InitiateResponse{RedirectURL: "https://pay.example/redirect", GatewayPaymentID: "gw-1"},
		},
	}
	fees := FeeCalculator{PlatformPercent: 2, PayeePercent: 3}
	creators := &fakeCreatorStore{creators: map[int]models.Creator{
		20: {ID: 20, Name: "Creator", Email: "creator@example.com", FCMToken: "tok-creator"},
	}}
	f.engine = &PayoutService{
		Payouts:       f.payouts,
		Withdrawals:   f.withdrawals,
		Beneficiaries: f.bens,
		Creators:      creators,
		Campaigns:     f.campaigns,
		Router:        &fakeDirectory{gateway: f.gateway},
		Fees:          fees,
		Notifier:      f.notifier,
		MaxAttempts:   3,
		Sleep:         func(time.Duration) {},
	}
	f.payments = &PaymentService{
		Campaigns:      f.campaigns,
		Milestones:     f.milestones,
		Transactions:   f.txs,
		PaymentMethods: f.methods,
		Invoices:       f.invoices,
		Brands: &fakeBrandStore{brands: map[int]models.Brand{
			10: {ID: 10, Name: "Brand", Email: "brand@example.com", FCMToken: "tok-brand"},
		}},
		Creators:   creators,
		Gateways:   &fakeDirectory{gateway: f.gateway},
		Payouts:    f.engine,
		PayoutSums: f.payouts,
		Fees:       fees,
		Notifier:   f.notifier,
	}
	return f
}

func (f *paymentFixture) payMilestone(t *testing.T, milestoneID int) models.Transaction {
	t.Helper()
	ctx := context.Background()

	tx, err := f.payments.InitiatePayment(ctx, InitiatePaymentRequest{
		CampaignID:  1,
		MilestoneID: &milestoneID,
		BrandID:     10,
	})
	if err != nil {
		t.Fatalf("initiate milestone %d: %v", milestoneID, err)
	}

	f.gateway.webhookEv = gateways.WebhookEvent{
		Event:     "charge.success",
		Reference: tx.Reference,
		Status:    gateways.StatusSuccessful,
		Amount:    tx.Total,
		Currency:  tx.Currency,
	}
	if err := f.payments.ProcessWebhook(ctx, "paystack", []byte(`{}`), "sig", f.engine); err != nil {
		t.Fatalf("webhook for milestone %d: %v", milestoneID, err)
	}
	got, err := f.txs.GetByReference(ctx, tx.Reference)
	if err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	return got
}

func TestInitiatePayment_MilestoneAmountAndFee(t *testing.T) {
	f := newPaymentFixture(t)
	milestoneID := 1

	tx, err := f.payments.InitiatePayment(context.Background(), InitiatePaymentRequest{
		CampaignID:  1,
		MilestoneID: &milestoneID,
		BrandID:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 25000 {
		t.Errorf("amount = %d, want 25000", tx.Amount)
	}
	if tx.Fee != 500 {
		t.Errorf("fee = %d, want 500 (2%% of 25000)", tx.Fee)
	}
	if tx.Total != 25500 {
		t.Errorf("total = %d, want 25500", tx.Total)
	}
	if tx.Gateway != "paystack" {
		t.Errorf("gateway = %q", tx.Gateway)
	}
	if tx.AuthorizationURL != "https://pay.example/redirect" {
		t.Errorf("authorization url = %q", tx.AuthorizationURL)
	}
	if tx.Status != models.TransactionStatusPending {
		t.Errorf("status = %q, want pending", tx.Status)
	}
}

func TestInitiatePayment_WrongBrandRejected(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.payments.InitiatePayment(context.Background(), InitiatePaymentRequest{
		CampaignID: 1,
		BrandID:    99,
	})
	if !errors.Is(err, models.ErrCampaignNotFound) {
		t.Fatalf("err = %v, want ErrCampaignNotFound", err)
	}
}

func TestSuccessCascade_FirstMilestone(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	tx := f.payMilestone(t, 1)
	if tx.Status != models.TransactionStatusCompleted {
		t.Fatalf("transaction status = %q, want completed", tx.Status)
	}

	m, _ := f.milestones.GetMilestoneByID(ctx, 1)
	if m.Status != models.MilestoneStatusPaid {
		t.Errorf("milestone status = %q, want paid", m.Status)
	}
	if m.TransactionID == nil || *m.TransactionID != tx.ID {
		t.Errorf("milestone transaction id not recorded")
	}

	c, _ := f.campaigns.GetCampaignByID(ctx, 1)
	if c.PaidAmount != 25000 {
		t.Errorf("paid amount = %d, want 25000", c.PaidAmount)
	}
	if c.Status != models.CampaignStatusActive {
		t.Errorf("campaign status = %q, want active after first funding", c.Status)
	}
	if c.PaymentStatus != models.CampaignPartiallyPaid {
		t.Errorf("payment status = %q, want partial", c.PaymentStatus)
	}

	if len(f.invoices.invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(f.invoices.invoices))
	}
	inv := f.invoices.invoices[0]
	if inv.Amount != 25000 || inv.Fee != 500 || inv.Total != 25500 {
		t.Errorf("invoice amounts = %d/%d/%d", inv.Amount, inv.Fee, inv.Total)
	}

	// Payee fee 3% of 25000 is 750; the payout nets 24250.
	p, err := f.payouts.GetByTransactionID(ctx, tx.ID)
	if err != nil {
		t.Fatalf("payout not created: %v", err)
	}
	if p.GrossAmount != 25000 || p.FeeAmount != 750 || p.NetAmount != 24250 {
		t.Errorf("payout amounts = %d/%d/%d, want 25000/750/24250", p.GrossAmount, p.FeeAmount, p.NetAmount)
	}
	if p.Status != models.PayoutStatusReleased {
		t.Errorf("payout status = %q, want released", p.Status)
	}
	if c.ReleasedAmount != 24250 {
		t.Errorf("campaign released = %d, want 24250", c.ReleasedAmount)
	}

	// No beneficiary on file: no withdrawal, but the creator is told.
	if len(f.withdrawals.byID) != 0 {
		t.Errorf("expected no withdrawals without a beneficiary")
	}
	if len(f.notifier.sent) == 0 {
		t.Errorf("expected notifications after completion")
	}
}

func TestDuplicateWebhookIsNoOp(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	f.payMilestone(t, 1)
	invoicesBefore := len(f.invoices.invoices)
	payoutsBefore := len(f.payouts.byID)
	c, _ := f.campaigns.GetCampaignByID(ctx, 1)
	paidBefore := c.PaidAmount

	// Redelivery of the same event.
	if err := f.payments.ProcessWebhook(ctx, "paystack", []byte(`{}`), "sig", f.engine); err != nil {
		t.Fatalf("duplicate webhook: %v", err)
	}

	if len(f.invoices.invoices) != invoicesBefore {
		t.Errorf("duplicate webhook created an invoice")
	}
	if len(f.payouts.byID) != payoutsBefore {
		t.Errorf("duplicate webhook created a payout")
	}
	c, _ = f.campaigns.GetCampaignByID(ctx, 1)
	if c.PaidAmount != paidBefore {
		t.Errorf("duplicate webhook changed paid amount: %d -> %d", paidBefore, c.PaidAmount)
	}
}

func TestFullPaymentGuardAfterMilestonePaid(t *testing.T) {
	f := newPaymentFixture(t)

	f.payMilestone(t, 1)

	_, err := f.payments.InitiatePayment(context.Background(), InitiatePaymentRequest{
		CampaignID: 1,
		BrandID:    10,
	})
	if !errors.Is(err, models.ErrFullPaymentUnavailable) {
		t.Fatalf("err = %v, want ErrFullPaymentUnavailable", err)
	}
}

func TestInitiatePayment_PartialAmount(t *testing.T) {
	f := newPaymentFixture(t)
	override := int64(30000)

	tx, err := f.payments.InitiatePayment(context.Background(), InitiatePaymentRequest{
		CampaignID:     1,
		AmountOverride: &override,
		BrandID:        10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.Amount != 30000 {
		t.Errorf("amount = %d, want 30000", tx.Amount)
	}
	if tx.Fee != 600 {
		t.Errorf("fee = %d, want 600 (2%% of 30000)", tx.Fee)
	}
	if tx.Total != 30600 {
		t.Errorf("total = %d, want 30600", tx.Total)
	}
	if tx.MilestoneID != nil {
		t.Errorf("partial payment must not bind a milestone")
	}
}

func TestInitiatePayment_OverrideMustFitRemaining(t *testing.T) {
	f := newPaymentFixture(t)

	// 75000 remains after the first installment.
	f.payMilestone(t, 1)

	for _, override := range []int64{0, -100, 80000} {
		_, err := f.payments.InitiatePayment(context.Background(), InitiatePaymentRequest{
			CampaignID:     1,
			AmountOverride: &override,
			BrandID:        10,
		})
		if !errors.Is(err, models.ErrInvalidAmount) {
			t.Errorf("override %d: err = %v, want ErrInvalidAmount", override, err)
		}
	}
}

func TestMonetaryConservation_FourMilestones(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	for id := 1; id <= 4; id++ {
		f.payMilestone(t, id)
	}

	c, _ := f.campaigns.GetCampaignByID(ctx, 1)
	if c.PaidAmount != c.TotalAmount {
		t.Fatalf("paid %d != total %d", c.PaidAmount, c.TotalAmount)
	}
	if c.PaymentStatus != models.CampaignFullyPaid {
		t.Errorf("payment status = %q, want completed", c.PaymentStatus)
	}

	// Every paid minor unit is accounted for: released net + payee fees.
	var net, fees int64
	for _, p := range f.payouts.byID {
		net += p.NetAmount
		fees += p.FeeAmount
	}
	if net+fees != c.PaidAmount {
		t.Errorf("net %d + fees %d != paid %d", net, fees, c.PaidAmount)
	}
	if c.ReleasedAmount != net {
		t.Errorf("released %d != payout net %d", c.ReleasedAmount, net)
	}

	summary, err := f.payments.CampaignBalance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if summary.OutstandingDue != 0 {
		t.Errorf("outstanding = %d, want 0", summary.OutstandingDue)
	}
	if summary.MilestonesPaid != 4 || summary.MilestonesTotal != 4 {
		t.Errorf("milestones = %d/%d, want 4/4", summary.MilestonesPaid, summary.MilestonesTotal)
	}
}

func TestProcessWebhook_UnknownReferenceIgnored(t *testing.T) {
	f := newPaymentFixture(t)

	f.gateway.webhookEv = gateways.WebhookEvent{
		Event:     "charge.success",
		Reference: "never-issued",
		Status:    gateways.StatusSuccessful,
	}
	if err := f.payments.ProcessWebhook(context.Background(), "paystack", []byte(`{}`), "sig", f.engine); err != nil {
		t.Fatalf("unknown reference should be dropped, got %v", err)
	}
}

func TestVerifyPayment_AfterWebhookDoesNotRepeatCascade(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	tx := f.payMilestone(t, 1)
	f.gateway.statusResp = gateways.StatusResponse{Status: gateways.StatusSuccessful}

	got, err := f.payments.VerifyPayment(ctx, tx.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Status != models.TransactionStatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if len(f.invoices.invoices) != 1 {
		t.Errorf("verify after webhook re-ran the cascade")
	}
}

func TestVerifyPayment_FailureRecordsReason(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()
	milestoneID := 2

	tx, err := f.payments.InitiatePayment(ctx, InitiatePaymentRequest{
		CampaignID:  1,
		MilestoneID: &milestoneID,
		BrandID:     10,
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	f.gateway.statusResp = gateways.StatusResponse{
		Status:        gateways.StatusFailed,
		FailureReason: "insufficient funds",
	}
	got, err := f.payments.VerifyPayment(ctx, tx.Reference)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Status != models.TransactionStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.FailureReason != "insufficient funds" {
		t.Errorf("failure reason = %q", got.FailureReason)
	}
	m, _ := f.milestones.GetMilestoneByID(ctx, 2)
	if m.Status != models.MilestoneStatusPending {
		t.Errorf("failed payment must not touch the milestone, got %q", m.Status)
	}
}

func TestChargeRecurring_NoSavedMethod(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.payments.ChargeRecurringPayment(context.Background(), 1)
	if !errors.Is(err, models.ErrPaymentMethodNotFound) {
		t.Fatalf("err = %v, want ErrPaymentMethodNotFound", err)
	}
}

func TestChargeRecurring_SynchronousSuccessRunsCascade(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	f.methods.methods = append(f.methods.methods, models.PaymentMethod{
		ID: 1, BrandID: 10, Gateway: "paystack", Token: "AUTH_x", Reusable: true,
	})
	f.gateway.chargeResp = gateways.ChargeResponse{
		Status:           gateways.StatusSuccessful,
		GatewayPaymentID: "gw-chg-1",
	}

	tx, err := f.payments.ChargeRecurringPayment(ctx, 1)
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if tx.Status != models.TransactionStatusCompleted {
		t.Errorf("status = %q, want completed", tx.Status)
	}
	m, _ := f.milestones.GetMilestoneByID(ctx, 1)
	if m.Status != models.MilestoneStatusPaid {
		t.Errorf("milestone status = %q, want paid", m.Status)
	}
	c, _ := f.campaigns.GetCampaignByID(ctx, 1)
	if c.PaidAmount != 25000 {
		t.Errorf("paid amount = %d, want 25000", c.PaidAmount)
	}
}

func TestChargeRecurring_NotSupportedGateway(t *testing.T) {
	f := newPaymentFixture(t)

	f.methods.methods = append(f.methods.methods, models.PaymentMethod{
		ID: 1, BrandID: 10, Gateway: "paystack", Token: "AUTH_x", Reusable: true,
	})
	f.gateway.chargeErr = gateways.ErrNotSupported

	_, err := f.payments.ChargeRecurringPayment(context.Background(), 1)
	if !errors.Is(err, gateways.ErrNotSupported) {
		t.Fatalf("err = %v, want ErrNotSupported", err)
	}
}
