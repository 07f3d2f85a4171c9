package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles purchases persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, user_id, email, product_type, provider, provider_session_id, provider_payment_id,
	amount_cents, currency, discounted, coupon_code, status, created_at, updated_at`

// Create inserts a pending purchase for a checkout session.
func (r *Repository) Create(ctx context.Context, p *models.Purchase) error {
	const q = `INSERT INTO purchases (id, user_id, email, product_type, provider, provider_session_id, amount_cents, currency, discounted, coupon_code, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.UserID, p.Email, string(p.ProductType), p.Provider, p.ProviderSessionID,
		p.AmountCents, p.Currency, p.Discounted, p.CouponCode, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetBySessionID returns the purchase for a provider checkout session, or
// nil when unknown.
func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM purchases WHERE provider_session_id = $1`, sessionID).
		Scan(&p.ID, &p.UserID, &p.Email, &p.ProductType, &p.Provider, &p.ProviderSessionID, &p.ProviderPaymentID,
			&p.AmountCents, &p.Currency, &p.Discounted, &p.CouponCode, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkCompleted records payment confirmation for a session.
func (r *Repository) MarkCompleted(ctx context.Context, sessionID, paymentID, email string, amountCents int, currency string) error {
	const q = `UPDATE purchases
		SET status = $1, provider_payment_id = $2, email = COALESCE(NULLIF($3, ''), email),
			amount_cents = $4, currency = COALESCE(NULLIF($5, ''), currency), updated_at = NOW()
		WHERE provider_session_id = $6`
	_, err := r.pool.Exec(ctx, q, models.PurchaseStatusCompleted, paymentID, email, amountCents, currency, sessionID)
	return err
}

// LinkUser attaches a purchase made before signup to the new account.
func (r *Repository) LinkUser(ctx context.Context, purchaseID, userID uuid.UUID) error {
	const q = `UPDATE purchases SET user_id = $1, updated_at = NOW() WHERE id = $2 AND user_id IS NULL`
	_, err := r.pool.Exec(ctx, q, userID, purchaseID)
	return err
}

// Totals returns completed purchase count and revenue in cents.
func (r *Repository) Totals(ctx context.Context) (count, revenueCents int, err error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM purchases WHERE status = $1`
	err = r.pool.QueryRow(ctx, q, models.PurchaseStatusCompleted).Scan(&count, &revenueCents)
	return count, revenueCents, err
}
