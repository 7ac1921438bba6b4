package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"pricepulse/internal/domain"
)

// ObservationStore persists the append-only price time series. Observations
// are never mutated or deleted.
type ObservationStore struct {
	db *sqlx.DB
}

func NewObservationStore(db *sqlx.DB) *ObservationStore {
	return &ObservationStore{db: db}
}

func (s *ObservationStore) Append(ctx context.Context, productID int64, price float64, observedAt time.Time) error {
	query := `INSERT INTO price_observations (product_id, price, observed_at) VALUES ($1, $2, $3)`

	_, err := getExecutor(ctx, s.db).ExecContext(ctx, query, productID, price, observedAt)
	return err
}

// ListByProduct returns the product's history newest first, for display.
func (s *ObservationStore) ListByProduct(ctx context.Context, productID int64) ([]domain.PriceObservation, error) {
	query := `
		SELECT id, product_id, price, observed_at
		FROM price_observations
		WHERE product_id = $1
		ORDER BY observed_at DESC`

	var observations []domain.PriceObservation
	err := s.db.SelectContext(ctx, &observations, query, productID)
	return observations, err
}
