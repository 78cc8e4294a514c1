package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kolabBack/internal/models"
)

type PayoutRepository struct {
	DB *sql.DB
}

const payoutColumns = `id, campaign_id, creator_id, transaction_id, gross_amount, fee_amount, net_amount,
        currency, status, released_at, created_at`

func scanPayout(row interface{ Scan(...any) error }) (models.Payout, error) {
	var p models.Payout
	var releasedAt sql.NullTime
	err := row.Scan(&p.ID, &p.CampaignID, &p.CreatorID, &p.TransactionID, &p.GrossAmount,
		&p.FeeAmount, &p.NetAmount, &p.Currency, &p.Status, &releasedAt, &p.CreatedAt)
	if err != nil {
		return models.Payout{}, err
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		p.ReleasedAt = &t
	}
	return p, nil
}

func (r *PayoutRepository) CreatePayout(ctx context.Context, p *models.Payout) error {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO payouts (campaign_id, creator_id, transaction_id, gross_amount, fee_amount,
            net_amount, currency, status, released_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CampaignID, p.CreatorID, p.TransactionID, p.GrossAmount, p.FeeAmount,
		p.NetAmount, p.Currency, p.Status, p.ReleasedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)
	return nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, id int) (models.Payout, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, id)
	p, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payout{}, models.ErrPayoutNotFound
	}
	return p, err
}

func (r *PayoutRepository) GetByTransactionID(ctx context.Context, transactionID int) (models.Payout, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+payoutColumns+` FROM payouts WHERE transaction_id = ?`, transactionID)
	p, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payout{}, models.ErrPayoutNotFound
	}
	return p, err
}

// ReleaseIfPending flips pending_release to released; false means the
// payout was not awaiting release.
func (r *PayoutRepository) ReleaseIfPending(ctx context.Context, id int, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE payouts SET status = ?, released_at = ? WHERE id = ? AND status = ?`,
		models.PayoutStatusReleased, at, id, models.PayoutStatusPendingRelease)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *PayoutRepository) SetStatus(ctx context.Context, id int, status models.PayoutStatus) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE payouts SET status = ? WHERE id = ?`, status, id)
	return err
}

// SumReleasedForCampaign covers payouts released or already paid out.
func (r *PayoutRepository) SumReleasedForCampaign(ctx context.Context, campaignID int) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
        SELECT SUM(net_amount) FROM payouts WHERE campaign_id = ? AND status IN (?, ?, ?)`,
		campaignID, models.PayoutStatusReleased, models.PayoutStatusProcessing, models.PayoutStatusPaid).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// SumPendingReleaseForCampaign is the escrow still held on the platform.
func (r *PayoutRepository) SumPendingReleaseForCampaign(ctx context.Context, campaignID int) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
        SELECT SUM(net_amount) FROM payouts WHERE campaign_id = ? AND status = ?`,
		campaignID, models.PayoutStatusPendingRelease).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
