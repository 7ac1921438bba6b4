package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"pricepulse/internal/domain"
)

type AlertStore struct {
	db *sqlx.DB
}

func NewAlertStore(db *sqlx.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, a *domain.PriceAlert) (int64, error) {
	query := `
		INSERT INTO price_alerts (product_id, email, target_price, state)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		a.ProductID,
		a.Email,
		a.TargetPrice,
		domain.AlertPending,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *AlertStore) ListPending(ctx context.Context) ([]domain.PriceAlert, error) {
	query := `
		SELECT id, product_id, email, target_price, state, created_at
		FROM price_alerts
		WHERE state = $1
		ORDER BY id`

	var alerts []domain.PriceAlert
	err := s.db.SelectContext(ctx, &alerts, query, domain.AlertPending)
	return alerts, err
}

// MarkSent flips pending→sent. The guard on the current state keeps the
// transition one-way: a sent alert never returns to pending.
func (s *AlertStore) MarkSent(ctx context.Context, id int64) error {
	query := `UPDATE price_alerts SET state = $2 WHERE id = $1 AND state = $3`

	res, err := getExecutor(ctx, s.db).ExecContext(ctx, query, id, domain.AlertSent, domain.AlertPending)
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
