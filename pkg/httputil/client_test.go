package httputil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorge-redcloud/demand-planning/pkg/config"
	"github.com/jorge-redcloud/demand-planning/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter(&config.Config{Env: "development", LogLevel: "error"}, io.Discard)
}

func TestNew(t *testing.T) {
	client := New(config.ModelConfig{Timeout: 5 * time.Second, RateLimit: 10, Burst: 2, MaxRetries: 3}, testLogger())

	require.NotNil(t, client)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.retryConfig.MaxRetries)
	assert.True(t, client.retryConfig.Enabled)
	assert.NotNil(t, client.limiter)
}

func TestNew_Defaults(t *testing.T) {
	client := New(config.ModelConfig{}, testLogger())

	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.False(t, client.retryConfig.Enabled)
	assert.Nil(t, client.limiter)
}

func TestPostJSON_RetriesAndReplaysBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		// 본문이 재시도마다 동일해야 함
		if body["entity_id"] != "SKU-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(config.ModelConfig{Timeout: time.Second}, testLogger()).WithRetry(3, time.Millisecond)

	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"entity_id": "SKU-1"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_NoRetryOnClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(config.ModelConfig{Timeout: time.Second}, testLogger()).WithRetry(3, time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetry_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(config.ModelConfig{Timeout: time.Second}, testLogger()).WithRetry(5, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, server.URL)
	assert.Error(t, err)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.code), "status %d", tt.code)
	}
}
