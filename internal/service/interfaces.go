package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"pricepulse/internal/domain"
	"pricepulse/internal/extract"
)

type ProductStore interface {
	ListAll(ctx context.Context) ([]domain.TrackedProduct, error)
	UpdatePrice(ctx context.Context, id int64, price float64, updatedAt time.Time) error
}

type ObservationStore interface {
	Append(ctx context.Context, productID int64, price float64, observedAt time.Time) error
}

type AlertStore interface {
	ListPending(ctx context.Context) ([]domain.PriceAlert, error)
	MarkSent(ctx context.Context, id int64) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Extractor interface {
	Extract(html []byte, sourceURL string) (*extract.Result, error)
}

type Notifier interface {
	SendPriceAlert(ctx context.Context, recipient string, product *domain.TrackedProduct, targetPrice float64) error
}

type AlertPublisher interface {
	PublishPriceDrop(ctx context.Context, alert *domain.PriceAlert, product *domain.TrackedProduct) error
	Close() error
}
