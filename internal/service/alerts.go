package service

import (
	"context"
	"fmt"

	"pricepulse/internal/domain"
)

// evaluateAlerts runs after every product in the tick has been processed, so
// an alert only ever sees its product's freshest price. Products carry the
// prices refreshed earlier in this tick.
func (s *ReconcileService) evaluateAlerts(ctx context.Context, products []domain.TrackedProduct, stats *domain.ReconcileStats) {
	alerts, err := s.alerts.ListPending(ctx)
	if err != nil {
		stats.AlertErrors++
		s.logger.Error("load pending alerts failed", "error", err)
		return
	}

	byID := make(map[int64]*domain.TrackedProduct, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for i := range alerts {
		alert := &alerts[i]

		product, ok := byID[alert.ProductID]
		if !ok {
			continue
		}
		if !alert.Triggered(product) {
			continue
		}

		if err := s.dispatchAlert(ctx, alert, product); err != nil {
			stats.AlertErrors++
			s.logger.Warn("alert dispatch failed, retrying next tick",
				"alert_id", alert.ID,
				"product_id", product.ID,
				"url", product.URL,
				"error", err,
			)
			continue
		}

		stats.AlertsSent++
		s.logger.Info("price alert sent",
			"alert_id", alert.ID,
			"product_id", product.ID,
			"current_price", *product.CurrentPrice,
			"target_price", alert.TargetPrice,
		)
	}
}

// dispatchAlert sends the notification and, only after the dispatch reports
// success, flips the alert to sent. If the flip itself fails the alert stays
// pending and the email may go out again next tick; that at-least-once window
// at the boundary is accepted rather than silently guaranteed exactly-once.
func (s *ReconcileService) dispatchAlert(ctx context.Context, alert *domain.PriceAlert, product *domain.TrackedProduct) error {
	dispatchCtx, cancel := context.WithTimeout(ctx, s.config.DispatchTimeout)
	defer cancel()

	if err := s.notifier.SendPriceAlert(dispatchCtx, alert.Email, product, alert.TargetPrice); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}

	if s.publisher != nil {
		// best effort; the notification already went out
		if err := s.publisher.PublishPriceDrop(ctx, alert, product); err != nil {
			s.logger.Warn("publish price drop failed", "alert_id", alert.ID, "error", err)
		}
	}

	if err := s.alerts.MarkSent(ctx, alert.ID); err != nil {
		return fmt.Errorf("mark alert sent (notification already dispatched): %w", err)
	}

	alert.State = domain.AlertSent
	return nil
}
