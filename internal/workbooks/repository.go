package workbooks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-funnel/backend/internal/models"
)

// Asset is one downloadable workbook file, keyed by product.
type Asset struct {
	ProductType models.ProductType `json:"product_type"`
	S3Key       string             `json:"s3_key"`
	Filename    string             `json:"filename"`
	ContentType string             `json:"content_type"`
	SizeBytes   int64              `json:"size_bytes"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Repository handles workbook_assets persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a workbooks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert sets the asset for a product, replacing any previous one.
func (r *Repository) Upsert(ctx context.Context, a *Asset) error {
	const q = `INSERT INTO workbook_assets (product_type, s3_key, filename, content_type, size_bytes, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_type) DO UPDATE
		SET s3_key = EXCLUDED.s3_key, filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type, size_bytes = EXCLUDED.size_bytes, updated_at = NOW()
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, string(a.ProductType), a.S3Key, a.Filename, a.ContentType, a.SizeBytes).
		Scan(&a.UpdatedAt)
}

// GetByProduct returns the asset for a product, or nil when none uploaded.
func (r *Repository) GetByProduct(ctx context.Context, productType models.ProductType) (*Asset, error) {
	const q = `SELECT product_type, s3_key, filename, content_type, size_bytes, updated_at
		FROM workbook_assets WHERE product_type = $1`
	var a Asset
	err := r.pool.QueryRow(ctx, q, string(productType)).
		Scan(&a.ProductType, &a.S3Key, &a.Filename, &a.ContentType, &a.SizeBytes, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
