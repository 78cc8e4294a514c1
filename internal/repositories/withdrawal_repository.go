package repositories

import (
	"context"
	"database/sql"
	"errors"

	"kolabBack/internal/models"
)

type WithdrawalRepository struct {
	DB *sql.DB
}

const withdrawalColumns = `id, payout_id, creator_id, beneficiary_id, reference, amount, currency,
        gateway, status, transfer_code, failure_reason, created_at, updated_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (models.Withdrawal, error) {
	var w models.Withdrawal
	var transferCode, failureReason sql.NullString
	err := row.Scan(&w.ID, &w.PayoutID, &w.CreatorID, &w.BeneficiaryID, &w.Reference, &w.Amount,
		&w.Currency, &w.Gateway, &w.Status, &transferCode, &failureReason, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return models.Withdrawal{}, err
	}
	w.TransferCode = transferCode.String
	w.FailureReason = failureReason.String
	return w, nil
}

func (r *WithdrawalRepository) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO withdrawals (payout_id, creator_id, beneficiary_id, reference, amount, currency, gateway, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.PayoutID, w.CreatorID, w.BeneficiaryID, w.Reference, w.Amount, w.Currency, w.Gateway, w.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = int(id)
	return nil
}

func (r *WithdrawalRepository) GetByReference(ctx context.Context, reference string) (models.Withdrawal, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE reference = ?`, reference)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Withdrawal{}, models.ErrWithdrawalNotFound
	}
	return w, err
}

// GetByTransferCode matches an inbound transfer webhook to its withdrawal.
func (r *WithdrawalRepository) GetByTransferCode(ctx context.Context, gateway, transferCode string) (models.Withdrawal, error) {
	row := r.DB.QueryRowContext(ctx, `
        SELECT `+withdrawalColumns+` FROM withdrawals WHERE gateway = ? AND transfer_code = ?`,
		gateway, transferCode)
	w, err := scanWithdrawal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Withdrawal{}, models.ErrWithdrawalNotFound
	}
	return w, err
}

func (r *WithdrawalRepository) MarkProcessing(ctx context.Context, id int, transferCode string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE withdrawals SET status = ?, transfer_code = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`,
		models.WithdrawalStatusProcessing, transferCode, id)
	return err
}

// MarkCompleted is conditional for the same reason the transaction gate is:
// transfer webhooks arrive more than once.
func (r *WithdrawalRepository) MarkCompleted(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE withdrawals SET status = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND status IN (?, ?)`,
		models.WithdrawalStatusCompleted, id,
		models.WithdrawalStatusPending, models.WithdrawalStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *WithdrawalRepository) MarkFailed(ctx context.Context, id int, reason string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE withdrawals SET status = ?, failure_reason = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND status IN (?, ?)`,
		models.WithdrawalStatusFailed, reason, id,
		models.WithdrawalStatusPending, models.WithdrawalStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
