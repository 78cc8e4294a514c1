package services

import (
	"context"
	"fmt"
	"time"

	"kolabBack/internal/gateways"
	"kolabBack/internal/models"
)

// In-memory fakes for the store interfaces. Conditional updates mirror the
// SQL they stand in for: single check-and-set, report rows affected.

type fakeCampaignStore struct {
	campaigns map[int]*models.Campaign
}

func newFakeCampaignStore(cs ...models.Campaign) *fakeCampaignStore {
	s := &fakeCampaignStore{campaigns: make(map[int]*models.Campaign)}
	for i := range cs {
		c := cs[i]
		s.campaigns[c.ID] = &c
	}
	return s
}

func (s *fakeCampaignStore) GetCampaignByID(_ context.Context, id int) (models.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return models.Campaign{}, models.ErrCampaignNotFound
	}
	return *c, nil
}

func (s *fakeCampaignStore) AddPaidAmount(_ context.Context, id int, delta int64) error {
	c, ok := s.campaigns[id]
	if !ok {
		return models.ErrCampaignNotFound
	}
	if c.PaidAmount+delta > c.TotalAmount {
		return models.ErrNoRecord
	}
	c.PaidAmount += delta
	c.Version++
	return nil
}

func (s *fakeCampaignStore) AddReleasedAmount(_ context.Context, id int, delta int64) error {
	c, ok := s.campaigns[id]
	if !ok {
		return models.ErrCampaignNotFound
	}
	if c.ReleasedAmount+delta > c.PaidAmount {
		return models.ErrNoRecord
	}
	c.ReleasedAmount += delta
	return nil
}

func (s *fakeCampaignStore) ActivateIfAwaitingFunding(_ context.Context, id int) (bool, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return false, models.ErrCampaignNotFound
	}
	if c.Status != models.CampaignStatusPendingFunding {
		return false, nil
	}
	c.Status = models.CampaignStatusActive
	return true, nil
}

func (s *fakeCampaignStore) UpdatePaymentStatus(_ context.Context, id int, status models.CampaignPaymentStatus) error {
	c, ok := s.campaigns[id]
	if !ok {
		return models.ErrCampaignNotFound
	}
	c.PaymentStatus = status
	return nil
}

func (s *fakeCampaignStore) OutstandingForBrand(_ context.Context, brandID int) (int64, error) {
	var total int64
	for _, c := range s.campaigns {
		if c.BrandID != brandID {
			continue
		}
		if c.Status == models.CampaignStatusPendingFunding || c.Status == models.CampaignStatusActive {
			total += c.TotalAmount - c.PaidAmount
		}
	}
	return total, nil
}

type fakeMilestoneStore struct {
	milestones map[int]*models.Milestone
	nextID     int
}

func newFakeMilestoneStore(ms ...models.Milestone) *fakeMilestoneStore {
	s := &fakeMilestoneStore{milestones: make(map[int]*models.Milestone), nextID: 1}
	for i := range ms {
		m := ms[i]
		s.milestones[m.ID] = &m
		if m.ID >= s.nextID {
			s.nextID = m.ID + 1
		}
	}
	return s
}

func (s *fakeMilestoneStore) CreateMilestones(_ context.Context, ms []models.Milestone) error {
	for i := range ms {
		m := ms[i]
		m.ID = s.nextID
		s.nextID++
		s.milestones[m.ID] = &m
	}
	return nil
}

func (s *fakeMilestoneStore) GetMilestoneByID(_ context.Context, id int) (models.Milestone, error) {
	m, ok := s.milestones[id]
	if !ok {
		return models.Milestone{}, models.ErrMilestoneNotFound
	}
	return *m, nil
}

func (s *fakeMilestoneStore) GetMilestonesByCampaign(_ context.Context, campaignID int) ([]models.Milestone, error) {
	var out []models.Milestone
	for id := 1; id < s.nextID; id++ {
		if m, ok := s.milestones[id]; ok && m.CampaignID == campaignID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMilestoneStore) HasPaidMilestone(_ context.Context, campaignID int) (bool, error) {
	for _, m := range s.milestones {
		if m.CampaignID == campaignID && m.Status == models.MilestoneStatusPaid {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeMilestoneStore) MarkPaid(_ context.Context, id, transactionID int, paidAt time.Time) (bool, error) {
	m, ok := s.milestones[id]
	if !ok || !m.Payable() {
		return false, nil
	}
	m.Status = models.MilestoneStatusPaid
	m.TransactionID = &transactionID
	at := paidAt
	m.PaidAt = &at
	return true, nil
}

func (s *fakeMilestoneStore) MarkAllPaid(_ context.Context, campaignID, transactionID int, paidAt time.Time) (int64, error) {
	var n int64
	for _, m := range s.milestones {
		if m.CampaignID == campaignID && m.Payable() {
			m.Status = models.MilestoneStatusPaid
			m.TransactionID = &transactionID
			at := paidAt
			m.PaidAt = &at
			n++
		}
	}
	return n, nil
}

func (s *fakeMilestoneStore) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, m := range s.milestones {
		if m.Status == models.MilestoneStatusPending && m.DueDate.Before(now) {
			m.Status = models.MilestoneStatusOverdue
			n++
		}
	}
	return n, nil
}

func (s *fakeMilestoneStore) DueForCollection(_ context.Context, now time.Time) ([]models.Milestone, error) {
	var out []models.Milestone
	for id := 1; id < s.nextID; id++ {
		if m, ok := s.milestones[id]; ok && m.Payable() && !m.DueDate.After(now) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *fakeMilestoneStore) SumPaid(_ context.Context, campaignID int) (int64, error) {
	var total int64
	for _, m := range s.milestones {
		if m.CampaignID == campaignID && m.Status == models.MilestoneStatusPaid {
			total += m.Amount
		}
	}
	return total, nil
}

type fakeTransactionStore struct {
	byID   map[int]*models.Transaction
	nextID int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{byID: make(map[int]*models.Transaction), nextID: 1}
}

func (s *fakeTransactionStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	for _, existing := range s.byID {
		if existing.Reference == t.Reference {
			return models.ErrDuplicateReference
		}
	}
	t.ID = s.nextID
	s.nextID++
	cp := *t
	s.byID[cp.ID] = &cp
	return nil
}

func (s *fakeTransactionStore) GetByReference(_ context.Context, reference string) (models.Transaction, error) {
	for _, t := range s.byID {
		if t.Reference == reference {
			return *t, nil
		}
	}
	return models.Transaction{}, models.ErrTransactionNotFound
}

func (s *fakeTransactionStore) GetByID(_ context.Context, id int) (models.Transaction, error) {
	t, ok := s.byID[id]
	if !ok {
		return models.Transaction{}, models.ErrTransactionNotFound
	}
	return *t, nil
}

func (s *fakeTransactionStore) SetGatewayDetails(_ context.Context, id int, gatewayPaymentID, authorizationURL string) error {
	t, ok := s.byID[id]
	if !ok {
		return models.ErrTransactionNotFound
	}
	t.GatewayPaymentID = gatewayPaymentID
	if authorizationURL != "" {
		t.AuthorizationURL = authorizationURL
	}
	return nil
}

func (s *fakeTransactionStore) MarkCompleted(_ context.Context, id int, at time.Time) (bool, error) {
	t, ok := s.byID[id]
	if !ok {
		return false, models.ErrTransactionNotFound
	}
	if t.Status != models.TransactionStatusPending && t.Status != models.TransactionStatusProcessing {
		return false, nil
	}
	t.Status = models.TransactionStatusCompleted
	ts := at
	t.CompletedAt = &ts
	return true, nil
}

func (s *fakeTransactionStore) MarkFailed(_ context.Context, id int, reason string) (bool, error) {
	t, ok := s.byID[id]
	if !ok {
		return false, models.ErrTransactionNotFound
	}
	if t.Status == models.TransactionStatusCompleted || t.Status == models.TransactionStatusFailed {
		return false, nil
	}
	t.Status = models.TransactionStatusFailed
	t.FailureReason = reason
	return true, nil
}

type fakePayoutStore struct {
	byID   map[int]*models.Payout
	nextID int
}

func newFakePayoutStore(ps ...models.Payout) *fakePayoutStore {
	s := &fakePayoutStore{byID: make(map[int]*models.Payout), nextID: 1}
	for i := range ps {
		p := ps[i]
		s.byID[p.ID] = &p
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return s
}

func (s *fakePayoutStore) CreatePayout(_ context.Context, p *models.Payout) error {
	p.ID = s.nextID
	s.nextID++
	cp := *p
	s.byID[cp.ID] = &cp
	return nil
}

func (s *fakePayoutStore) GetByID(_ context.Context, id int) (models.Payout, error) {
	p, ok := s.byID[id]
	if !ok {
		return models.Payout{}, models.ErrPayoutNotFound
	}
	return *p, nil
}

func (s *fakePayoutStore) GetByTransactionID(_ context.Context, transactionID int) (models.Payout, error) {
	for _, p := range s.byID {
		if p.TransactionID == transactionID {
			return *p, nil
		}
	}
	return models.Payout{}, models.ErrPayoutNotFound
}

func (s *fakePayoutStore) ReleaseIfPending(_ context.Context, id int, at time.Time) (bool, error) {
	p, ok := s.byID[id]
	if !ok {
		return false, models.ErrPayoutNotFound
	}
	if p.Status != models.PayoutStatusPendingRelease {
		return false, nil
	}
	p.Status = models.PayoutStatusReleased
	ts := at
	p.ReleasedAt = &ts
	return true, nil
}

func (s *fakePayoutStore) SetStatus(_ context.Context, id int, status models.PayoutStatus) error {
	p, ok := s.byID[id]
	if !ok {
		return models.ErrPayoutNotFound
	}
	p.Status = status
	return nil
}

func (s *fakePayoutStore) SumReleasedForCampaign(_ context.Context, campaignID int) (int64, error) {
	var total int64
	for _, p := range s.byID {
		if p.CampaignID != campaignID {
			continue
		}
		switch p.Status {
		case models.PayoutStatusReleased, models.PayoutStatusProcessing, models.PayoutStatusPaid:
			total += p.NetAmount
		}
	}
	return total, nil
}

func (s *fakePayoutStore) SumPendingReleaseForCampaign(_ context.Context, campaignID int) (int64, error) {
	var total int64
	for _, p := range s.byID {
		if p.CampaignID == campaignID && p.Status == models.PayoutStatusPendingRelease {
			total += p.NetAmount
		}
	}
	return total, nil
}

type fakeWithdrawalStore struct {
	byID   map[int]*models.Withdrawal
	nextID int
}

func newFakeWithdrawalStore() *fakeWithdrawalStore {
	return &fakeWithdrawalStore{byID: make(map[int]*models.Withdrawal), nextID: 1}
}

func (s *fakeWithdrawalStore) CreateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	w.ID = s.nextID
	s.nextID++
	cp := *w
	s.byID[cp.ID] = &cp
	return nil
}

func (s *fakeWithdrawalStore) GetByReference(_ context.Context, reference string) (models.Withdrawal, error) {
	for _, w := range s.byID {
		if w.Reference == reference {
			return *w, nil
		}
	}
	return models.Withdrawal{}, models.ErrWithdrawalNotFound
}

func (s *fakeWithdrawalStore) GetByTransferCode(_ context.Context, gateway, transferCode string) (models.Withdrawal, error) {
	if transferCode == "" {
		return models.Withdrawal{}, models.ErrWithdrawalNotFound
	}
	for _, w := range s.byID {
		if w.Gateway == gateway && w.TransferCode == transferCode {
			return *w, nil
		}
	}
	return models.Withdrawal{}, models.ErrWithdrawalNotFound
}

func (s *fakeWithdrawalStore) MarkProcessing(_ context.Context, id int, transferCode string) error {
	w, ok := s.byID[id]
	if !ok {
		return models.ErrWithdrawalNotFound
	}
	w.Status = models.WithdrawalStatusProcessing
	w.TransferCode = transferCode
	return nil
}

func (s *fakeWithdrawalStore) MarkCompleted(_ context.Context, id int) (bool, error) {
	w, ok := s.byID[id]
	if !ok {
		return false, models.ErrWithdrawalNotFound
	}
	if w.Status == models.WithdrawalStatusCompleted || w.Status == models.WithdrawalStatusFailed {
		return false, nil
	}
	w.Status = models.WithdrawalStatusCompleted
	return true, nil
}

func (s *fakeWithdrawalStore) MarkFailed(_ context.Context, id int, reason string) (bool, error) {
	w, ok := s.byID[id]
	if !ok {
		return false, models.ErrWithdrawalNotFound
	}
	if w.Status == models.WithdrawalStatusCompleted || w.Status == models.WithdrawalStatusFailed {
		return false, nil
	}
	w.Status = models.WithdrawalStatusFailed
	w.FailureReason = reason
	return true, nil
}

type fakeBeneficiaryStore struct {
	byID map[int]*models.BeneficiaryAccount
}

func newFakeBeneficiaryStore(bs ...models.BeneficiaryAccount) *fakeBeneficiaryStore {
	s := &fakeBeneficiaryStore{byID: make(map[int]*models.BeneficiaryAccount)}
	for i := range bs {
		b := bs[i]
		s.byID[b.ID] = &b
	}
	return s
}

func (s *fakeBeneficiaryStore) GetByID(_ context.Context, id int) (models.BeneficiaryAccount, error) {
	b, ok := s.byID[id]
	if !ok {
		return models.BeneficiaryAccount{}, models.ErrBeneficiaryNotFound
	}
	return *b, nil
}

func (s *fakeBeneficiaryStore) GetDefault(_ context.Context, creatorID int, currency string) (models.BeneficiaryAccount, error) {
	for _, b := range s.byID {
		if b.CreatorID == creatorID && b.Currency == currency && b.IsDefault {
			return *b, nil
		}
	}
	return models.BeneficiaryAccount{}, models.ErrBeneficiaryNotFound
}

func (s *fakeBeneficiaryStore) SavePaystackRecipient(_ context.Context, id int, code string) error {
	if b, ok := s.byID[id]; ok {
		b.PaystackRecipientCode = code
	}
	return nil
}

func (s *fakeBeneficiaryStore) SaveNiumRecipient(_ context.Context, id int, recipientID string) error {
	if b, ok := s.byID[id]; ok {
		b.NiumRecipientID = recipientID
	}
	return nil
}

func (s *fakeBeneficiaryStore) SaveNiumPayoutMethod(_ context.Context, id int, methodID string) error {
	if b, ok := s.byID[id]; ok {
		b.NiumPayoutMethodID = methodID
	}
	return nil
}

func (s *fakeBeneficiaryStore) SaveNiumCopStatus(_ context.Context, id int, status models.CopStatus) error {
	if b, ok := s.byID[id]; ok {
		b.NiumCopStatus = status
	}
	return nil
}

type fakePaymentMethodStore struct {
	methods []models.PaymentMethod
}

func (s *fakePaymentMethodStore) SavePaymentMethod(_ context.Context, m *models.PaymentMethod) error {
	m.ID = len(s.methods) + 1
	s.methods = append(s.methods, *m)
	return nil
}

func (s *fakePaymentMethodStore) GetByID(_ context.Context, id int) (models.PaymentMethod, error) {
	for _, m := range s.methods {
		if m.ID == id {
			return m, nil
		}
	}
	return models.PaymentMethod{}, models.ErrPaymentMethodNotFound
}

func (s *fakePaymentMethodStore) GetReusableForBrand(_ context.Context, brandID int, gateway string) (models.PaymentMethod, error) {
	for _, m := range s.methods {
		if m.BrandID == brandID && m.Gateway == gateway && m.Reusable {
			return m, nil
		}
	}
	return models.PaymentMethod{}, models.ErrPaymentMethodNotFound
}

type fakeInvoiceStore struct {
	invoices []models.Invoice
}

func (s *fakeInvoiceStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	inv.ID = len(s.invoices) + 1
	inv.Number = fmt.Sprintf("INV-2026-%06d", inv.ID)
	s.invoices = append(s.invoices, *inv)
	return nil
}

type fakeBrandStore struct {
	brands map[int]models.Brand
}

func (s *fakeBrandStore) GetBrandByID(_ context.Context, id int) (models.Brand, error) {
	b, ok := s.brands[id]
	if !ok {
		return models.Brand{}, models.ErrBrandNotFound
	}
	return b, nil
}

type fakeCreatorStore struct {
	creators map[int]models.Creator
}

func (s *fakeCreatorStore) GetCreatorByID(_ context.Context, id int) (models.Creator, error) {
	c, ok := s.creators[id]
	if !ok {
		return models.Creator{}, models.ErrNoRecord
	}
	return c, nil
}

type notification struct {
	Token string
	Title string
	Body  string
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) Notify(_ context.Context, fcmToken, title, body string, _ map[string]string) {
	n.sent = append(n.sent, notification{Token: fcmToken, Title: title, Body: body})
}

// fakeGateway scripts one payment network client.
type fakeGateway struct {
	name string

	initResp   gateways.InitiateResponse
	initErr    error
	statusResp gateways.StatusResponse
	statusErr  error
	webhookEv  gateways.WebhookEvent
	webhookErr error
	chargeResp gateways.ChargeResponse
	chargeErr  error

	initiateCalls int
	chargeCalls   int
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) InitiatePayment(_ context.Context, _ gateways.InitiateRequest) (gateways.InitiateResponse, error) {
	g.initiateCalls++
	return g.initResp, g.initErr
}

func (g *fakeGateway) GetStatus(_ context.Context, _ gateways.PaymentRef) (gateways.StatusResponse, error) {
	return g.statusResp, g.statusErr
}

func (g *fakeGateway) ProcessWebhook(_ []byte, _ string) (gateways.WebhookEvent, error) {
	return g.webhookEv, g.webhookErr
}

func (g *fakeGateway) ChargeStoredInstrument(_ context.Context, _ gateways.ChargeRequest) (gateways.ChargeResponse, error) {
	g.chargeCalls++
	return g.chargeResp, g.chargeErr
}

func (g *fakeGateway) ValidateSignature(_ []byte, _ string) bool { return true }

// fakeDirectory routes every currency to a single scripted gateway.
type fakeDirectory struct {
	gateway *fakeGateway
}

func (d *fakeDirectory) RouteByCurrency(string) string { return d.gateway.name }

func (d *fakeDirectory) ByName(name string) (gateways.Client, error) {
	if name != d.gateway.name {
		return nil, fmt.Errorf("unknown gateway %q", name)
	}
	return d.gateway, nil
}
