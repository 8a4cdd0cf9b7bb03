package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// StatusError reports a non-2xx response from the tweet API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tweet api returned status %d", e.StatusCode)
}

// Config holds tweet API client settings.
type Config struct {
	BaseURL string
	Host    string
	APIKey  string
	Timeout time.Duration
}

// MetricsRecorder records tweet API request timing. May be nil.
type MetricsRecorder interface {
	RecordUpstreamRequest(ctx context.Context, status int, duration time.Duration)
}

// Client fetches tweet details from the third-party API. Responses are
// returned as raw maps; shape validation belongs to the caller because the
// provider's schema drifts.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *zap.SugaredLogger
	metrics MetricsRecorder
}

func NewClient(cfg Config, logger *zap.SugaredLogger, metrics MetricsRecorder) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// FetchTweet retrieves tweet details by numeric id. Non-2xx responses come
// back as *StatusError; transport failures are returned as-is.
func (c *Client) FetchTweet(ctx context.Context, tweetID string) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("%s/tweet?pid=%s", c.cfg.BaseURL, url.QueryEscape(tweetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tweet request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tweet api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read tweet api response: %w", err)
	}

	duration := time.Since(start)
	c.logger.Debugw("tweet api response",
		"tweet_id", tweetID,
		"status", resp.StatusCode,
		"duration", duration,
	)
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(ctx, resp.StatusCode, duration)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode tweet api response: %w", err)
	}
	return payload, nil
}
