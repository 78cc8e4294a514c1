package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kolabBack/internal/models"
)

type InvoiceRepo struct{ DB *sql.DB }

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{DB: db} }

// CreateInvoice assigns the next sequential number for the current year and
// inserts the invoice in one transaction.
func (r *InvoiceRepo) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	year := time.Now().UTC().Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var seq sql.NullInt64
	err = tx.QueryRowContext(ctx, `
        SELECT MAX(CAST(SUBSTRING(number, ?) AS UNSIGNED)) FROM invoices WHERE number LIKE ?`,
		len(prefix)+1, prefix+"%").Scan(&seq)
	if err != nil {
		return err
	}
	inv.Number = fmt.Sprintf("%s%06d", prefix, seq.Int64+1)

	res, err := tx.ExecContext(ctx, `
        INSERT INTO invoices (number, transaction_id, campaign_id, brand_id, amount, fee, total, currency)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, inv.TransactionID, inv.CampaignID, inv.BrandID, inv.Amount, inv.Fee, inv.Total, inv.Currency)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = int(id)
	return tx.Commit()
}
