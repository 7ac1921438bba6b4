package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricepulse/internal/config"
	"pricepulse/internal/domain"
	"pricepulse/internal/extract"
)

// ReconcileService re-extracts prices for all tracked products and evaluates
// pending alerts. One Reconcile call is one tick; per-product failures are
// absorbed here and never abort the tick for other products.
type ReconcileService struct {
	fetcher      Fetcher
	extractor    Extractor
	products     ProductStore
	observations ObservationStore
	alerts       AlertStore
	txManager    TransactionManager
	notifier     Notifier
	publisher    AlertPublisher
	logger       *slog.Logger
	config       config.ReconcileConfig

	// blockedUntil delays re-fetching products whose last attempt hit a
	// bot-detection challenge. In-memory: a restart simply retries early.
	blockedUntil map[int64]time.Time
}

func NewReconcileService(
	fetcher Fetcher,
	extractor Extractor,
	products ProductStore,
	observations ObservationStore,
	alerts AlertStore,
	txManager TransactionManager,
	notifier Notifier,
	publisher AlertPublisher,
	logger *slog.Logger,
	cfg config.ReconcileConfig,
) *ReconcileService {
	return &ReconcileService{
		fetcher:      fetcher,
		extractor:    extractor,
		products:     products,
		observations: observations,
		alerts:       alerts,
		txManager:    txManager,
		notifier:     notifier,
		publisher:    publisher,
		logger:       logger,
		config:       cfg,
		blockedUntil: make(map[int64]time.Time),
	}
}

func (s *ReconcileService) Reconcile(ctx context.Context) (*domain.ReconcileStats, error) {
	startTime := time.Now()

	// Snapshot at tick start; products added mid-run are picked up next tick.
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	stats := &domain.ReconcileStats{Products: len(products)}

	s.logger.Info("starting reconcile tick", "products", len(products))

	for i := range products {
		if ctx.Err() != nil {
			break
		}
		s.refreshProduct(ctx, &products[i], stats)
	}

	s.evaluateAlerts(ctx, products, stats)

	stats.Duration = time.Since(startTime)

	s.logger.Info("reconcile tick completed",
		"products", stats.Products,
		"refreshed", stats.Refreshed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"blocked", stats.Blocked,
		"alerts_sent", stats.AlertsSent,
		"alert_errors", stats.AlertErrors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// refreshProduct runs fetch → extract → persist for one product. On any
// failure the stored price and observations stay untouched.
func (s *ReconcileService) refreshProduct(ctx context.Context, p *domain.TrackedProduct, stats *domain.ReconcileStats) {
	if until, ok := s.blockedUntil[p.ID]; ok {
		if time.Now().Before(until) {
			stats.Skipped++
			s.logger.Debug("product in blocked backoff", "product_id", p.ID, "until", until)
			return
		}
		delete(s.blockedUntil, p.ID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	html, err := s.fetcher.Fetch(fetchCtx, p.URL)
	if err != nil {
		stats.Failed++
		s.logger.Warn("fetch failed",
			"product_id", p.ID,
			"url", p.URL,
			"error", err,
		)
		return
	}

	result, err := s.extractor.Extract(html, p.URL)
	if err != nil {
		stats.Failed++
		if extract.IsBlocked(err) {
			stats.Blocked++
			s.blockedUntil[p.ID] = time.Now().Add(s.config.BlockedBackoff)
			s.logger.Warn("extraction blocked, backing off",
				"product_id", p.ID,
				"url", p.URL,
				"backoff", s.config.BlockedBackoff,
			)
			return
		}
		s.logger.Warn("extraction failed",
			"product_id", p.ID,
			"url", p.URL,
			"error", err,
		)
		return
	}

	now := time.Now().UTC()

	// Policy: every successful extraction appends an observation, changed
	// price or not, so the history is a complete audit trail. The price
	// update and the observation commit or roll back together.
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.products.UpdatePrice(txCtx, p.ID, result.Price, now); err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if err := s.observations.Append(txCtx, p.ID, result.Price, now); err != nil {
			return fmt.Errorf("append observation: %w", err)
		}
		return nil
	})
	if err != nil {
		stats.Failed++
		s.logger.Error("persist price failed",
			"product_id", p.ID,
			"url", p.URL,
			"error", err,
		)
		return
	}

	p.CurrentPrice = &result.Price
	p.LastUpdated = &now
	stats.Refreshed++

	s.logger.Debug("price refreshed", "product_id", p.ID, "price", result.Price)
}
