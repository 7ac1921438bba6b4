package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// RenderSvc fetches documents through a managed rendering/proxy service
// (ScrapingBee-style API). The service executes JavaScript upstream and
// returns the rendered document; one HTTP request per fetch, fixed
// parameters, no retries here.
type RenderSvc struct {
	httpClient *http.Client
	cfg        RenderSvcConfig
	logger     *slog.Logger
}

func NewRenderSvc(cfg RenderSvcConfig, logger *slog.Logger) *RenderSvc {
	return &RenderSvc{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logger.With("fetcher", "rendersvc"),
	}
}

func (r *RenderSvc) Fetch(ctx context.Context, target string) ([]byte, error) {
	params := url.Values{}
	params.Set("api_key", r.cfg.APIKey)
	params.Set("url", target)
	params.Set("render_js", "true")
	params.Set("premium_proxy", "true")
	params.Set("country_code", r.cfg.CountryCode)
	params.Set("wait", strconv.Itoa(r.cfg.WaitMillis))

	reqURL := r.cfg.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: target, Err: fmt.Errorf("create request: %w", err)}
	}

	r.logger.Debug("rendering via service", "url", target)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &Error{Kind: kind, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Kind: KindUpstream,
			URL:  target,
			Err:  fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	return html, nil
}

var (
	_ Fetcher = (*Browser)(nil)
	_ Fetcher = (*RenderSvc)(nil)
)
