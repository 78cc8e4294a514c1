package repositories

import (
	"context"
	"database/sql"
	"errors"

	"kolabBack/internal/models"
)

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) GetCampaignByID(ctx context.Context, id int) (models.Campaign, error) {
	var c models.Campaign
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, brand_id, creator_id, title, currency, total_amount, paid_amount, released_amount,
               payment_type, status, payment_status, version, created_at, updated_at
        FROM campaigns WHERE id = ?`, id).Scan(
		&c.ID, &c.BrandID, &c.CreatorID, &c.Title, &c.Currency, &c.TotalAmount, &c.PaidAmount,
		&c.ReleasedAmount, &c.PaymentType, &c.Status, &c.PaymentStatus, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Campaign{}, models.ErrCampaignNotFound
	}
	return c, err
}

// AddPaidAmount increments the paid total in a single conditional update so
// concurrent cascades for the same campaign cannot lose an increment or
// push paid above total.
func (r *CampaignRepository) AddPaidAmount(ctx context.Context, id int, delta int64) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaigns
        SET paid_amount = paid_amount + ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND paid_amount + ? <= total_amount`, delta, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNoRecord
	}
	return nil
}

// AddReleasedAmount increments the escrow-released total; released can
// never exceed paid.
func (r *CampaignRepository) AddReleasedAmount(ctx context.Context, id int, delta int64) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaigns
        SET released_amount = released_amount + ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND released_amount + ? <= paid_amount`, delta, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNoRecord
	}
	return nil
}

// ActivateIfAwaitingFunding flips pending_funding to active; reports
// whether the row changed.
func (r *CampaignRepository) ActivateIfAwaitingFunding(ctx context.Context, id int) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE campaigns SET status = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND status = ?`,
		models.CampaignStatusActive, id, models.CampaignStatusPendingFunding)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *CampaignRepository) UpdatePaymentStatus(ctx context.Context, id int, status models.CampaignPaymentStatus) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE campaigns SET payment_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// OutstandingForBrand sums the unpaid remainder across a brand's campaigns
// that still accept payments.
func (r *CampaignRepository) OutstandingForBrand(ctx context.Context, brandID int) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
        SELECT SUM(total_amount - paid_amount) FROM campaigns
        WHERE brand_id = ? AND status IN (?, ?)`,
		brandID, models.CampaignStatusPendingFunding, models.CampaignStatusActive).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
