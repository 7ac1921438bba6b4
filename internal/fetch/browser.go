package fetch

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser drives a headless Chrome instance per fetch. The instance is
// private to one fetch and released on every exit path, including readiness
// timeouts and caller cancellation.
type Browser struct {
	cfg    BrowserConfig
	logger *slog.Logger
}

func NewBrowser(cfg BrowserConfig, logger *slog.Logger) *Browser {
	return &Browser{
		cfg:    cfg,
		logger: logger.With("fetcher", "browser"),
	}
}

func (b *Browser) Fetch(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	// Deriving from the caller's context ties the browser lifetime to the
	// per-product fetch deadline; the deferred cancels release the instance.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	b.logger.Debug("navigating", "url", url)

	if err := chromedp.Run(browserCtx, chromedp.Navigate(url)); err != nil {
		return nil, b.classify(url, err)
	}

	readyCtx, cancelReady := context.WithTimeout(browserCtx, b.cfg.ReadinessTimeout)
	defer cancelReady()

	if err := chromedp.Run(readyCtx, chromedp.WaitReady(b.cfg.ReadinessSelector, chromedp.ByQuery)); err != nil {
		return nil, b.classify(url, err)
	}

	select {
	case <-ctx.Done():
		return nil, b.classify(url, ctx.Err())
	case <-time.After(b.randomDelay()):
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return nil, b.classify(url, err)
	}

	return []byte(html), nil
}

func (b *Browser) randomDelay() time.Duration {
	min, max := b.cfg.MinDelay, b.cfg.MaxDelay
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func (b *Browser) classify(url string, err error) *Error {
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, URL: url, Err: err}
}
