package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makoshaa/kia/internal/config"
)

func newTestClient(attempts int) *HTTPClient {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	cfg := &config.Config{HTTPTimeout: 5 * time.Second, RetryAttempts: attempts}
	return NewHTTPClient(cfg, logger).WithBackoff(func(int) time.Duration { return 0 })
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Иван"}]`))
	}))
	defer server.Close()

	body, err := newTestClient(3).Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Иван"}]`, string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(2).Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error: 500")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, IsClientError(err))
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(3).Get(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(5).WithBackoff(func(int) time.Duration { return time.Hour })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPostJSONSendsSignature(t *testing.T) {
	var calls int32
	var gotSignature string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first attempt fails so the body must be replayed
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		gotSignature = r.Header.Get("X-Signature")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := newTestClient(3).PostJSON(context.Background(), server.URL, map[string]int{"total": 4}, "sha256=abc")

	require.NoError(t, err)
	assert.Equal(t, "sha256=abc", gotSignature)
	assert.Equal(t, map[string]any{"total": float64(4)}, gotBody)
}

func TestQuadraticBackoff(t *testing.T) {
	assert.Equal(t, time.Second, quadraticBackoff(1))
	assert.Equal(t, 4*time.Second, quadraticBackoff(2))
	assert.Equal(t, 9*time.Second, quadraticBackoff(3))
}
