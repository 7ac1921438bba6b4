// Package fetch obtains fully rendered product-page documents. It offers two
// interchangeable strategies with the same contract: headless browser
// automation and a managed rendering/proxy service. Neither parses content;
// network- and automation-level failures are reported as *Error, distinct
// from the extractor's content-level failures.
package fetch

import (
	"context"
	"time"
)

// Fetcher produces a complete rendered document for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// BrowserConfig configures the headless-browser strategy. All values are
// supplied by the caller at construction; nothing is read ad hoc.
type BrowserConfig struct {
	// ReadinessSelector is the element whose presence signals the page has
	// rendered enough to capture.
	ReadinessSelector string
	ReadinessTimeout  time.Duration

	// A randomized delay in [MinDelay, MaxDelay] is inserted after readiness
	// to reduce automation fingerprinting.
	MinDelay time.Duration
	MaxDelay time.Duration

	UserAgent string
}

// RenderSvcConfig configures the managed rendering-service strategy.
type RenderSvcConfig struct {
	Endpoint    string
	APIKey      string
	CountryCode string
	WaitMillis  int
	Timeout     time.Duration
}
