package leads

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Repository handles leads persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a leads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts a lead, unique per email. Re-submitting refreshes the
// name and source but keeps the original row.
func (r *Repository) Upsert(ctx context.Context, l *models.Lead) error {
	const q = `INSERT INTO leads (id, email, full_name, source)
		VALUES (gen_random_uuid(), $1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, source = EXCLUDED.source, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.Email, l.FullName, l.Source).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// Count returns the total number of leads.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n)
	return n, err
}
