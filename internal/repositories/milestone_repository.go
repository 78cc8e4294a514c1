package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kolabBack/internal/models"
)

type MilestoneRepository struct {
	DB *sql.DB
}

func (r *MilestoneRepository) CreateMilestones(ctx context.Context, milestones []models.Milestone) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO milestones (campaign_id, seq, amount, fee, due_date, status)
               VALUES (?, ?, ?, ?, ?, ?)`
	for i := range milestones {
		m := &milestones[i]
		res, err := tx.ExecContext(ctx, q, m.CampaignID, m.Seq, m.Amount, m.Fee, m.DueDate, m.Status)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		m.ID = int(id)
	}
	return tx.Commit()
}

func scanMilestone(row interface{ Scan(...any) error }) (models.Milestone, error) {
	var m models.Milestone
	var txID sql.NullInt64
	var paidAt sql.NullTime
	err := row.Scan(&m.ID, &m.CampaignID, &m.Seq, &m.Amount, &m.Fee, &m.DueDate, &m.Status, &txID, &paidAt, &m.CreatedAt)
	if err != nil {
		return models.Milestone{}, err
	}
	if txID.Valid {
		v := int(txID.Int64)
		m.TransactionID = &v
	}
	if paidAt.Valid {
		t := paidAt.Time
		m.PaidAt = &t
	}
	return m, nil
}

const milestoneColumns = `id, campaign_id, seq, amount, fee, due_date, status, transaction_id, paid_at, created_at`

func (r *MilestoneRepository) GetMilestoneByID(ctx context.Context, id int) (models.Milestone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id)
	m, err := scanMilestone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Milestone{}, models.ErrMilestoneNotFound
	}
	return m, err
}

func (r *MilestoneRepository) GetMilestonesByCampaign(ctx context.Context, campaignID int) ([]models.Milestone, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE campaign_id = ? ORDER BY seq`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MilestoneRepository) HasPaidMilestone(ctx context.Context, campaignID int) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM milestones WHERE campaign_id = ? AND status = ?`,
		campaignID, models.MilestoneStatusPaid).Scan(&n)
	return n > 0, err
}

// MarkPaid transitions one milestone to paid at most once; a zero row count
// means the milestone was already terminal.
func (r *MilestoneRepository) MarkPaid(ctx context.Context, id, transactionID int, paidAt time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE milestones SET status = ?, transaction_id = ?, paid_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		models.MilestoneStatusPaid, transactionID, paidAt,
		id, models.MilestoneStatusPending, models.MilestoneStatusOverdue)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkAllPaid closes every remaining non-terminal milestone of a campaign;
// used when a lump-sum payment settles the full balance.
func (r *MilestoneRepository) MarkAllPaid(ctx context.Context, campaignID, transactionID int, paidAt time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE milestones SET status = ?, transaction_id = ?, paid_at = ?
        WHERE campaign_id = ? AND status IN (?, ?)`,
		models.MilestoneStatusPaid, transactionID, paidAt,
		campaignID, models.MilestoneStatusPending, models.MilestoneStatusOverdue)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkOverdue sweeps pending milestones whose due date has passed.
func (r *MilestoneRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE milestones SET status = ? WHERE status = ? AND due_date < ?`,
		models.MilestoneStatusOverdue, models.MilestoneStatusPending, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DueForCollection lists milestones eligible for auto-charge or a payment
// reminder: pending or overdue with a due date at or before now.
func (r *MilestoneRepository) DueForCollection(ctx context.Context, now time.Time) ([]models.Milestone, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT `+milestoneColumns+` FROM milestones
        WHERE status IN (?, ?) AND due_date <= ?
        ORDER BY campaign_id, seq`,
		models.MilestoneStatusPending, models.MilestoneStatusOverdue, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MilestoneRepository) SumPaid(ctx context.Context, campaignID int) (int64, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
        SELECT SUM(amount) FROM milestones WHERE campaign_id = ? AND status = ?`,
		campaignID, models.MilestoneStatusPaid).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
