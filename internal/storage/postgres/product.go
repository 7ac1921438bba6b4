package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"pricepulse/internal/domain"
)

var ErrProductExists = errors.New("product already tracked")

type ProductStore struct {
	db *sqlx.DB
}

func NewProductStore(db *sqlx.DB) *ProductStore {
	return &ProductStore{db: db}
}

// Create registers a product for tracking. The URL is the product's identity;
// tracking the same URL twice is an error.
func (s *ProductStore) Create(ctx context.Context, p *domain.TrackedProduct) (int64, error) {
	query := `
		INSERT INTO products (url, name, image_url, current_price, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		p.URL,
		p.Name,
		p.ImageURL,
		p.CurrentPrice,
		p.LastUpdated,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return 0, ErrProductExists
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *ProductStore) GetByURL(ctx context.Context, url string) (*domain.TrackedProduct, error) {
	var p domain.TrackedProduct
	query := `
		SELECT id, url, name, image_url, current_price, last_updated, created_at
		FROM products
		WHERE url = $1`

	if err := s.db.GetContext(ctx, &p, query, url); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductStore) ListAll(ctx context.Context) ([]domain.TrackedProduct, error) {
	query := `
		SELECT id, url, name, image_url, current_price, last_updated, created_at
		FROM products
		ORDER BY id`

	var products []domain.TrackedProduct
	err := s.db.SelectContext(ctx, &products, query)
	return products, err
}

// UpdatePrice sets the current price and last-updated timestamp. It respects
// a transaction carried in ctx so the matching observation lands atomically.
func (s *ProductStore) UpdatePrice(ctx context.Context, id int64, price float64, updatedAt time.Time) error {
	query := `UPDATE products SET current_price = $2, last_updated = $3 WHERE id = $1`

	res, err := getExecutor(ctx, s.db).ExecContext(ctx, query, id, price, updatedAt)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
