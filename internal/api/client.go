package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is the upstream market-data API surface consumed by the pipeline.
type Client interface {
	// ListExpirations returns the expiration dates (YYYY-MM-DD, ascending)
	// with listed contracts for the symbol inside [after, before].
	ListExpirations(ctx context.Context, symbol, after, before string) ([]string, error)

	// GetChain returns the contract codes in the chain for one expiration.
	GetChain(ctx context.Context, symbol, expiration string) ([]string, error)

	// GetHistory returns the end-of-day price/greeks history for a contract.
	GetHistory(ctx context.Context, contractID string) (*HistoryResponse, error)
}

// HistoryResponse mirrors the vendor payload: contract metadata plus one
// record per trading day. Records are kept as maps because the vendor schema
// is wide and loosely typed; numeric fields may be absent or null.
type HistoryResponse struct {
	Option map[string]any   `json:"option"`
	Prices []map[string]any `json:"prices"`
}

type expirationsResponse struct {
	Expirations []string `json:"expirations"`
}

type chainResponse struct {
	Chain []struct {
		Option struct {
			Code string `json:"code"`
		} `json:"option"`
	} `json:"chain"`
}

type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       200,
		MaxConnsPerHost:    100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

func (c *HTTPClient) ListExpirations(ctx context.Context, symbol, after, before string) ([]string, error) {
	u := fmt.Sprintf("%s/options/expirations/%s/eod?after=%s&before=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(after), url.QueryEscape(before))

	var resp expirationsResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return resp.Expirations, nil
}

func (c *HTTPClient) GetChain(ctx context.Context, symbol, expiration string) ([]string, error) {
	u := fmt.Sprintf("%s/options/chain/%s/%s/eod",
		c.baseURL, url.PathEscape(symbol), url.PathEscape(expiration))

	var resp chainResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(resp.Chain))
	for _, item := range resp.Chain {
		if item.Option.Code != "" {
			codes = append(codes, item.Option.Code)
		}
	}
	return codes, nil
}

func (c *HTTPClient) GetHistory(ctx context.Context, contractID string) (*HistoryResponse, error) {
	u := fmt.Sprintf("%s/options/prices/%s/eod", c.baseURL, url.PathEscape(contractID))

	var resp HistoryResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// getJSON performs a rate-limited GET with bounded retries on transport
// errors, 429 and 5xx. Other 4xx responses fail immediately.
func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("requesting", zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return ErrAuthFailed
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
