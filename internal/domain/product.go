package domain

import "time"

// TrackedProduct is a product listing being watched for price changes.
// Identity is the canonical source URL; CurrentPrice is nil until the first
// successful extraction.
type TrackedProduct struct {
	ID           int64      `db:"id"`
	URL          string     `db:"url"`
	Name         string     `db:"name"`
	ImageURL     string     `db:"image_url"`
	CurrentPrice *float64   `db:"current_price"`
	LastUpdated  *time.Time `db:"last_updated"`
	CreatedAt    time.Time  `db:"created_at"`
}

// PriceObservation is one immutable timestamped price fact. Observations are
// append-only and form the product's price history.
type PriceObservation struct {
	ID         int64     `db:"id"`
	ProductID  int64     `db:"product_id"`
	Price      float64   `db:"price"`
	ObservedAt time.Time `db:"observed_at"`
}

// AlertState is the delivery state of a price alert. Sent is terminal: an
// alert fires at most once in its lifetime.
type AlertState string

const (
	AlertPending AlertState = "pending"
	AlertSent    AlertState = "sent"
)

type PriceAlert struct {
	ID          int64      `db:"id"`
	ProductID   int64      `db:"product_id"`
	Email       string     `db:"email"`
	TargetPrice float64    `db:"target_price"`
	State       AlertState `db:"state"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Triggered reports whether the alert should fire against the product's
// current price. A product with no known price never triggers.
func (a PriceAlert) Triggered(p *TrackedProduct) bool {
	return a.State == AlertPending && p.CurrentPrice != nil && *p.CurrentPrice <= a.TargetPrice
}
