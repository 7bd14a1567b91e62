package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/config"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 500 {
		return fmt.Sprintf("server error: %d", e.StatusCode)
	}
	return fmt.Sprintf("client error: %d", e.StatusCode)
}

// HTTPClient performs requests with retry. Transport errors and 5xx responses
// are retried with quadratic backoff; 4xx responses fail immediately.
type HTTPClient struct {
	client        *http.Client
	retryAttempts int
	backoff       func(attempt int) time.Duration
	logger        *logrus.Logger
}

func NewHTTPClient(cfg *config.Config, logger *logrus.Logger) *HTTPClient {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		retryAttempts: attempts,
		backoff:       quadraticBackoff,
		logger:        logger,
	}
}

// WithBackoff replaces the delay applied before retry attempt n (n >= 1).
func (c *HTTPClient) WithBackoff(backoff func(attempt int) time.Duration) *HTTPClient {
	c.backoff = backoff
	return c
}

func quadraticBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}

// Get returns the body of a successful GET.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.retryRequest(ctx, url, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

// PostJSON sends data as JSON with an X-Signature header.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, data interface{}, signature string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal export data: %w", err)
	}

	_, err = c.retryRequest(ctx, url, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Signature", signature)
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}

func (c *HTTPClient) retryRequest(ctx context.Context, url string, newRequest func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			backoffTime := c.backoff(attempt)
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": backoffTime,
				"url":     url,
			}).Warn("Retrying request after backoff")
			if err := sleep(ctx, backoffTime); err != nil {
				return nil, err
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &StatusError{StatusCode: resp.StatusCode}
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"attempt":     attempt + 1,
			"status_code": resp.StatusCode,
			"url":         url,
		}).Debug("Request successful")

		return body, nil
	}

	return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsClientError reports whether err carries a 4xx response.
func IsClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode < 500
}
