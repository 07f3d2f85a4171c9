package entitlements

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles webinar_access persistence. Entitlements are written
// once at payment confirmation and only read afterwards.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an entitlements repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an entitlement. The expiry must be after the purchase time.
func (r *Repository) Create(ctx context.Context, e *models.Entitlement) error {
	if !e.ExpiresAt.After(e.PurchasedAt) {
		return fmt.Errorf("entitlement expiry %s not after purchase %s", e.ExpiresAt, e.PurchasedAt)
	}
	const q = `INSERT INTO webinar_access (id, user_id, product_type, purchased_at, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.UserID, string(e.ProductType), e.PurchasedAt, e.ExpiresAt).
		Scan(&e.ID, &e.CreatedAt)
}

// LatestForUser returns the entitlement with the latest expiry for the
// user/product pair, or nil when the user never purchased it.
func (r *Repository) LatestForUser(ctx context.Context, userID uuid.UUID, productType models.ProductType) (*models.Entitlement, error) {
	const q = `SELECT id, user_id, product_type, purchased_at, expires_at, created_at
		FROM webinar_access
		WHERE user_id = $1 AND product_type = $2
		ORDER BY expires_at DESC
		LIMIT 1`
	var e models.Entitlement
	err := r.pool.QueryRow(ctx, q, userID, string(productType)).
		Scan(&e.ID, &e.UserID, &e.ProductType, &e.PurchasedAt, &e.ExpiresAt, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns all entitlements for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	const q = `SELECT id, user_id, product_type, purchased_at, expires_at, created_at
		FROM webinar_access WHERE user_id = $1 ORDER BY purchased_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Entitlement
	for rows.Next() {
		var e models.Entitlement
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductType, &e.PurchasedAt, &e.ExpiresAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
