package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, url string, retries int) *HTTPGenerator {
	return NewHTTPGenerator(Config{
		BaseURL:     url,
		APIKey:      "k",
		Model:       "test-model",
		MaxRetries:  retries,
		MaxTokens:   100,
		Temperature: 0.3,
		BackoffBase: time.Millisecond,
	}, logger.NewTestLogger(t))
}

func TestHTTPGenerator_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "compose me", body["prompt"])
		assert.Equal(t, "test-model", body["model"])
		assert.EqualValues(t, 100, body["max_tokens"])

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "## Report\n  body  \n"})
	}))
	defer server.Close()

	text, err := newTestGenerator(t, server.URL, 0).Generate(context.Background(), "compose me")
	require.NoError(t, err)
	assert.Equal(t, "## Report\n  body  \n", text, "narrative is returned verbatim")
}

func TestHTTPGenerator_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer server.Close()

	text, err := newTestGenerator(t, server.URL, 2).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestHTTPGenerator_Failures(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		retries   int
		wantCode  errors.ErrorCode
		wantCalls int32
	}{
		{
			name:      "client error is not retried",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			retries:   3,
			wantCode:  errors.ErrCodeGenerationTransport,
			wantCalls: 1,
		},
		{
			name:      "server error exhausts retries",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			retries:   2,
			wantCode:  errors.ErrCodeGenerationTransport,
			wantCalls: 3,
		},
		{
			name: "whitespace text is empty narrative",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"text": " \n\t"})
			},
			retries:   2,
			wantCode:  errors.ErrCodeEmptyNarrative,
			wantCalls: 1,
		},
		{
			name:      "undecodable body",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
			retries:   2,
			wantCode:  errors.ErrCodeGenerationTransport,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				tt.handler(w, r)
			}))
			defer server.Close()

			_, err := newTestGenerator(t, server.URL, tt.retries).Generate(context.Background(), "p")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
			assert.True(t, errors.IsGenerationFailure(err))
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestHTTPGenerator_DeadlineIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestGenerator(t, server.URL, 0).Generate(ctx, "p")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationTimeout), "got %v", err)
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(configNarrative())
	assert.Equal(t, "http://narrative.local", cfg.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, 30, cfg.RequestsPerMinute)
}
