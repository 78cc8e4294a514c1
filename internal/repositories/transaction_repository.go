package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"kolabBack/internal/models"
)

type TransactionRepository struct {
	DB *sql.DB
}

const transactionColumns = `id, reference, campaign_id, milestone_id, brand_id, gateway, amount, fee,
        total, currency, status, gateway_payment_id, authorization_url, failure_reason, save_instrument,
        completed_at, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (models.Transaction, error) {
	var t models.Transaction
	var milestoneID sql.NullInt64
	var gatewayPaymentID, authURL, failureReason sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Reference, &t.CampaignID, &milestoneID, &t.BrandID, &t.Gateway,
		&t.Amount, &t.Fee, &t.Total, &t.Currency, &t.Status, &gatewayPaymentID, &authURL,
		&failureReason, &t.SaveInstrument, &completedAt, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, err
	}
	if milestoneID.Valid {
		v := int(milestoneID.Int64)
		t.MilestoneID = &v
	}
	t.GatewayPaymentID = gatewayPaymentID.String
	t.AuthorizationURL = authURL.String
	t.FailureReason = failureReason.String
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return t, nil
}

func (r *TransactionRepository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO transactions (reference, campaign_id, milestone_id, brand_id, gateway, amount, fee,
            total, currency, status, save_instrument)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Reference, t.CampaignID, t.MilestoneID, t.BrandID, t.Gateway, t.Amount, t.Fee,
		t.Total, t.Currency, t.Status, t.SaveInstrument)
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return models.ErrDuplicateReference
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = int(id)
	return nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (models.Transaction, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference = ?`, reference)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int) (models.Transaction, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepository) SetGatewayDetails(ctx context.Context, id int, gatewayPaymentID, authorizationURL string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE transactions SET gateway_payment_id = ?, authorization_url = ? WHERE id = ?`,
		gatewayPaymentID, authorizationURL, id)
	return err
}

// MarkCompleted is the webhook idempotency gate: a single conditional
// update, so only one of any number of concurrent deliveries wins. A false
// return means the transaction was already terminal.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, id int, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE transactions SET status = ?, completed_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		models.TransactionStatusCompleted, at,
		id, models.TransactionStatusPending, models.TransactionStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TransactionRepository) MarkFailed(ctx context.Context, id int, reason string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE transactions SET status = ?, failure_reason = ?
        WHERE id = ? AND status IN (?, ?)`,
		models.TransactionStatusFailed, reason,
		id, models.TransactionStatusPending, models.TransactionStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TransactionRepository) MarkProcessing(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE transactions SET status = ? WHERE id = ? AND status = ?`,
		models.TransactionStatusProcessing, id, models.TransactionStatusPending)
	return err
}
