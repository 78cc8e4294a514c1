package repositories

import (
	"context"
	"database/sql"
	"errors"

	"kolabBack/internal/models"
)

type PaymentMethodRepository struct {
	DB *sql.DB
}

const paymentMethodColumns = `id, brand_id, gateway, token, card_brand, last4, exp_month, exp_year, reusable, created_at`

func scanPaymentMethod(row interface{ Scan(...any) error }) (models.PaymentMethod, error) {
	var m models.PaymentMethod
	var brand, last4, expMonth, expYear sql.NullString
	err := row.Scan(&m.ID, &m.BrandID, &m.Gateway, &m.Token, &brand, &last4, &expMonth, &expYear, &m.Reusable, &m.CreatedAt)
	if err != nil {
		return models.PaymentMethod{}, err
	}
	m.CardBrand = brand.String
	m.Last4 = last4.String
	m.ExpMonth = expMonth.String
	m.ExpYear = expYear.String
	return m, nil
}

// SavePaymentMethod upserts by (brand, gateway, token) so replayed webhooks
// do not multiply saved instruments.
func (r *PaymentMethodRepository) SavePaymentMethod(ctx context.Context, m *models.PaymentMethod) error {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO payment_methods (brand_id, gateway, token, card_brand, last4, exp_month, exp_year, reusable)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE card_brand = VALUES(card_brand), last4 = VALUES(last4),
            exp_month = VALUES(exp_month), exp_year = VALUES(exp_year), reusable = VALUES(reusable)`,
		m.BrandID, m.Gateway, m.Token, m.CardBrand, m.Last4, m.ExpMonth, m.ExpYear, m.Reusable)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		m.ID = int(id)
	}
	return nil
}

func (r *PaymentMethodRepository) GetByID(ctx context.Context, id int) (models.PaymentMethod, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE id = ?`, id)
	m, err := scanPaymentMethod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentMethod{}, models.ErrPaymentMethodNotFound
	}
	return m, err
}

// GetReusableForBrand returns the newest off-session-capable instrument a
// brand saved for a gateway.
func (r *PaymentMethodRepository) GetReusableForBrand(ctx context.Context, brandID int, gateway string) (models.PaymentMethod, error) {
	row := r.DB.QueryRowContext(ctx, `
        SELECT `+paymentMethodColumns+` FROM payment_methods
        WHERE brand_id = ? AND gateway = ? AND reusable = 1
        ORDER BY id DESC LIMIT 1`, brandID, gateway)
	m, err := scanPaymentMethod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PaymentMethod{}, models.ErrPaymentMethodNotFound
	}
	return m, err
}
