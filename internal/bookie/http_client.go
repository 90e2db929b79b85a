package bookie

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/oddswatch/internal/metrics"
)

// defaultUserAgent is sent on every upstream request
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// ClientConfig holds per-adapter HTTP behaviour
type ClientConfig struct {
	Slug          string
	Timeout       time.Duration
	MaxAttempts   int // total attempts including the first
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration
	MaxConcurrent int           // in-flight request cap for this upstream
	MinRequestGap time.Duration // 0 disables pacing
}

// DefaultClientConfig returns the retry envelope shared by all adapters:
// 3 attempts, exponential wait between 1s and 10s, 30s per request.
func DefaultClientConfig(slug string) ClientConfig {
	return ClientConfig{
		Slug:          slug,
		Timeout:       30 * time.Second,
		MaxAttempts:   3,
		RetryWaitMin:  1 * time.Second,
		RetryWaitMax:  10 * time.Second,
		MaxConcurrent: 10,
	}
}

// Client wraps retryablehttp with a per-upstream concurrency gate and an
// optional minimum gap between requests (SpinBet pacing). One Client is
// shared by all goroutines scraping the same bookmaker.
type Client struct {
	slug   string
	client *retryablehttp.Client
	gate   chan struct{}
	pacer  *rate.Limiter // nil when no pacing required
	log    *logrus.Logger
}

// NewClient creates an HTTP client for one upstream
func NewClient(cfg ClientConfig, log *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxAttempts - 1
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy()
	// hand the terminal response back instead of swallowing it, so adapters
	// can classify a final 429/5xx themselves
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// retryablehttp's own logging is noise at scrape volume
	retryClient.Logger = nil

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	c := &Client{
		slug:   cfg.Slug,
		client: retryClient,
		gate:   make(chan struct{}, cfg.MaxConcurrent),
		log:    log,
	}
	if cfg.MinRequestGap > 0 {
		c.pacer = rate.NewLimiter(rate.Every(cfg.MinRequestGap), 1)
	}
	return c
}

// Do executes a request, respecting the concurrency gate and pacing gap.
// The response body is the caller's to close.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case c.gate <- struct{}{}:
		defer func() { <-c.gate }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	retryReq = retryReq.WithContext(ctx)

	start := time.Now()
	resp, err := c.client.Do(retryReq)
	elapsed := time.Since(start).Seconds()

	switch {
	case err != nil:
		if resp != nil {
			resp.Body.Close()
		}
		metrics.RecordAdapterRequest(c.slug, "error", elapsed)
		c.log.WithFields(logrus.Fields{
			"platform": c.slug,
			"url":      req.URL.String(),
			"error":    err.Error(),
		}).Debug("Upstream request failed after retries")
		return nil, err
	case resp.StatusCode >= 400:
		metrics.RecordAdapterRequest(c.slug, "error", elapsed)
	default:
		metrics.RecordAdapterRequest(c.slug, "success", elapsed)
	}
	return resp, nil
}

// Get executes a GET with the given headers
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(ctx, req)
}

// Close releases idle connections
func (c *Client) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// retryPolicy retries network errors, 429 and 5xx. Client errors are final:
// a 404 means the event is gone, retrying will not bring it back.
func retryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return true, nil
		}
		return false, nil
	}
}
