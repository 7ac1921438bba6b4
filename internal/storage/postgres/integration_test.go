//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"pricepulse/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_products.up.sql"),
			filepath.Join(migrationsPath, "002_create_alerts.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM price_alerts")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM price_observations")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM products")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) createProduct(url string) int64 {
	store := NewProductStore(s.db)
	id, err := store.Create(s.ctx, &domain.TrackedProduct{
		URL:      url,
		Name:     "Test Product",
		ImageURL: "https://via.placeholder.com/300",
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) TestProductStore_Create() {
	store := NewProductStore(s.db)

	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")
	s.Greater(id, int64(0))

	p, err := store.GetByURL(s.ctx, "https://shop.example/dp/B0CHFM8N75")
	s.NoError(err)
	s.Equal(id, p.ID)
	s.Equal("Test Product", p.Name)
	s.Nil(p.CurrentPrice)
	s.Nil(p.LastUpdated)
}

func (s *PostgresIntegrationSuite) TestProductStore_Create_DuplicateURL() {
	store := NewProductStore(s.db)

	s.createProduct("https://shop.example/dp/B0CHFM8N75")

	_, err := store.Create(s.ctx, &domain.TrackedProduct{
		URL:  "https://shop.example/dp/B0CHFM8N75",
		Name: "Same URL Again",
	})
	s.ErrorIs(err, ErrProductExists)
}

func (s *PostgresIntegrationSuite) TestProductStore_ListAll_Ordered() {
	first := s.createProduct("https://shop.example/dp/AAAAAAAAAA")
	second := s.createProduct("https://shop.example/dp/BBBBBBBBBB")

	store := NewProductStore(s.db)
	products, err := store.ListAll(s.ctx)
	s.NoError(err)
	s.Require().Len(products, 2)
	s.Equal(first, products[0].ID)
	s.Equal(second, products[1].ID)
}

func (s *PostgresIntegrationSuite) TestProductStore_UpdatePrice() {
	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")

	store := NewProductStore(s.db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := store.UpdatePrice(s.ctx, id, 199.0, now)
	s.NoError(err)

	p, err := store.GetByURL(s.ctx, "https://shop.example/dp/B0CHFM8N75")
	s.NoError(err)
	s.Require().NotNil(p.CurrentPrice)
	s.Equal(199.0, *p.CurrentPrice)
	s.Require().NotNil(p.LastUpdated)
	s.WithinDuration(now, *p.LastUpdated, time.Second)
}

func (s *PostgresIntegrationSuite) TestProductStore_UpdatePrice_MissingProduct() {
	store := NewProductStore(s.db)

	err := store.UpdatePrice(s.ctx, 99999, 10.0, time.Now().UTC())
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *PostgresIntegrationSuite) TestObservationStore_AppendAndList() {
	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")
	store := NewObservationStore(s.db)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, price := range []float64{300, 280, 199} {
		err := store.Append(s.ctx, id, price, base.Add(time.Duration(i)*time.Minute))
		s.NoError(err)
	}

	observations, err := store.ListByProduct(s.ctx, id)
	s.NoError(err)
	s.Require().Len(observations, 3)

	// newest first
	s.Equal(199.0, observations[0].Price)
	s.Equal(280.0, observations[1].Price)
	s.Equal(300.0, observations[2].Price)
}

func (s *PostgresIntegrationSuite) TestObservationStore_Append_UnchangedPrice() {
	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")
	store := NewObservationStore(s.db)

	base := time.Now().UTC().Truncate(time.Microsecond)
	s.NoError(store.Append(s.ctx, id, 42.0, base))
	s.NoError(store.Append(s.ctx, id, 42.0, base.Add(time.Minute)))

	observations, err := store.ListByProduct(s.ctx, id)
	s.NoError(err)
	s.Len(observations, 2)
}

func (s *PostgresIntegrationSuite) TestAlertStore_CreateAndListPending() {
	productID := s.createProduct("https://shop.example/dp/B0CHFM8N75")
	store := NewAlertStore(s.db)

	id, err := store.Create(s.ctx, &domain.PriceAlert{
		ProductID:   productID,
		Email:       "user@example.com",
		TargetPrice: 220,
	})
	s.NoError(err)
	s.Greater(id, int64(0))

	alerts, err := store.ListPending(s.ctx)
	s.NoError(err)
	s.Require().Len(alerts, 1)
	s.Equal(domain.AlertPending, alerts[0].State)
	s.Equal(220.0, alerts[0].TargetPrice)
}

func (s *PostgresIntegrationSuite) TestAlertStore_MarkSent_OneWay() {
	productID := s.createProduct("https://shop.example/dp/B0CHFM8N75")
	store := NewAlertStore(s.db)

	id, err := store.Create(s.ctx, &domain.PriceAlert{
		ProductID:   productID,
		Email:       "user@example.com",
		TargetPrice: 220,
	})
	s.NoError(err)

	s.NoError(store.MarkSent(s.ctx, id))

	alerts, err := store.ListPending(s.ctx)
	s.NoError(err)
	s.Len(alerts, 0)

	// a second flip finds no pending row
	err = store.MarkSent(s.ctx, id)
	s.ErrorIs(err, sql.ErrNoRows)
}

func (s *PostgresIntegrationSuite) TestTransaction_PriceAndObservationCommitTogether() {
	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")

	tm := NewTransactionManager(s.db)
	products := NewProductStore(s.db)
	observations := NewObservationStore(s.db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := products.UpdatePrice(ctx, id, 199.0, now); err != nil {
			return err
		}
		return observations.Append(ctx, id, 199.0, now)
	})
	s.NoError(err)

	p, err := products.GetByURL(s.ctx, "https://shop.example/dp/B0CHFM8N75")
	s.NoError(err)
	s.Require().NotNil(p.CurrentPrice)
	s.Equal(199.0, *p.CurrentPrice)

	history, err := observations.ListByProduct(s.ctx, id)
	s.NoError(err)
	s.Len(history, 1)
}

func (s *PostgresIntegrationSuite) TestTransaction_RollbackLeavesBothUntouched() {
	id := s.createProduct("https://shop.example/dp/B0CHFM8N75")

	tm := NewTransactionManager(s.db)
	products := NewProductStore(s.db)
	observations := NewObservationStore(s.db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := products.UpdatePrice(ctx, id, 199.0, now); err != nil {
			return err
		}
		if err := observations.Append(ctx, id, 199.0, now); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Error(err)

	p, err := products.GetByURL(s.ctx, "https://shop.example/dp/B0CHFM8N75")
	s.NoError(err)
	s.Nil(p.CurrentPrice)

	history, err := observations.ListByProduct(s.ctx, id)
	s.NoError(err)
	s.Len(history, 0)
}
