package repositories

import (
	"context"
	"database/sql"
	"errors"

	"kolabBack/internal/models"
)

type BeneficiaryRepository struct {
	DB *sql.DB
}

const beneficiaryColumns = `id, creator_id, currency, account_name, account_number, bank_code, bank_name,
        is_default, paystack_recipient_code, nium_recipient_id, nium_payout_method_id, nium_cop_status, created_at`

func scanBeneficiary(row interface{ Scan(...any) error }) (models.BeneficiaryAccount, error) {
	var b models.BeneficiaryAccount
	var paystackCode, niumRecipient, niumMethod, niumCop sql.NullString
	err := row.Scan(&b.ID, &b.CreatorID, &b.Currency, &b.AccountName, &b.AccountNumber, &b.BankCode,
		&b.BankName, &b.IsDefault, &paystackCode, &niumRecipient, &niumMethod, &niumCop, &b.CreatedAt)
	if err != nil {
		return models.BeneficiaryAccount{}, err
	}
	b.PaystackRecipientCode = paystackCode.String
	b.NiumRecipientID = niumRecipient.String
	b.NiumPayoutMethodID = niumMethod.String
	b.NiumCopStatus = models.CopStatus(niumCop.String)
	return b, nil
}

func (r *BeneficiaryRepository) CreateBeneficiary(ctx context.Context, b *models.BeneficiaryAccount) error {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO beneficiary_accounts (creator_id, currency, account_name, account_number, bank_code, bank_name, is_default)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.CreatorID, b.Currency, b.AccountName, b.AccountNumber, b.BankCode, b.BankName, b.IsDefault)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = int(id)
	return nil
}

func (r *BeneficiaryRepository) GetByID(ctx context.Context, id int) (models.BeneficiaryAccount, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiary_accounts WHERE id = ?`, id)
	b, err := scanBeneficiary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BeneficiaryAccount{}, models.ErrBeneficiaryNotFound
	}
	return b, err
}

// GetDefault returns the creator's default destination for a currency.
func (r *BeneficiaryRepository) GetDefault(ctx context.Context, creatorID int, currency string) (models.BeneficiaryAccount, error) {
	row := r.DB.QueryRowContext(ctx, `
        SELECT `+beneficiaryColumns+` FROM beneficiary_accounts
        WHERE creator_id = ? AND currency = ? AND is_default = 1`, creatorID, currency)
	b, err := scanBeneficiary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BeneficiaryAccount{}, models.ErrBeneficiaryNotFound
	}
	return b, err
}

func (r *BeneficiaryRepository) ListByCreator(ctx context.Context, creatorID int) ([]models.BeneficiaryAccount, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT `+beneficiaryColumns+` FROM beneficiary_accounts WHERE creator_id = ? ORDER BY id`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BeneficiaryAccount
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetDefault makes one account the default for its currency, clearing any
// previous default inside one transaction.
func (r *BeneficiaryRepository) SetDefault(ctx context.Context, creatorID, id int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currency string
	err = tx.QueryRowContext(ctx, `
        SELECT currency FROM beneficiary_accounts WHERE id = ? AND creator_id = ?`, id, creatorID).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrBeneficiaryNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET is_default = 0 WHERE creator_id = ? AND currency = ?`,
		creatorID, currency); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET is_default = 1 WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *BeneficiaryRepository) SavePaystackRecipient(ctx context.Context, id int, recipientCode string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET paystack_recipient_code = ? WHERE id = ?`, recipientCode, id)
	return err
}

func (r *BeneficiaryRepository) SaveNiumRecipient(ctx context.Context, id int, recipientID string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET nium_recipient_id = ? WHERE id = ?`, recipientID, id)
	return err
}

func (r *BeneficiaryRepository) SaveNiumPayoutMethod(ctx context.Context, id int, payoutMethodID string) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET nium_payout_method_id = ? WHERE id = ?`, payoutMethodID, id)
	return err
}

func (r *BeneficiaryRepository) SaveNiumCopStatus(ctx context.Context, id int, status models.CopStatus) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE beneficiary_accounts SET nium_cop_status = ? WHERE id = ?`, status, id)
	return err
}
