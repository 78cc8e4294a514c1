package repositories

import (
	"context"
	"database/sql"
	"errors"

	"kolabBack/internal/models"
)

// BrandRepository and CreatorRepository expose the few fields the payment
// core needs; full profile management lives in another service.

type BrandRepository struct {
	DB *sql.DB
}

func (r *BrandRepository) GetBrandByID(ctx context.Context, id int) (models.Brand, error) {
	var b models.Brand
	var fcm sql.NullString
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, name, email, phone, fcm_token, created_at FROM brands WHERE id = ?`, id).
		Scan(&b.ID, &b.Name, &b.Email, &b.Phone, &fcm, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Brand{}, models.ErrBrandNotFound
	}
	b.FCMToken = fcm.String
	return b, err
}

type CreatorRepository struct {
	DB *sql.DB
}

func (r *CreatorRepository) GetCreatorByID(ctx context.Context, id int) (models.Creator, error) {
	var c models.Creator
	var fcm sql.NullString
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, name, email, fcm_token, created_at FROM creators WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Email, &fcm, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Creator{}, models.ErrNoRecord
	}
	c.FCMToken = fcm.String
	return c, err
}
