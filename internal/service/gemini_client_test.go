package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jjenkins/parliament/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGeminiClient(url string) *GeminiClient {
	c := NewGeminiClient(config.SummaryConfig{BaseURL: url, APIKey: "k&y", Timeout: 5 * time.Second}, "test-model", zap.NewNop())
	c.initialBackoff = time.Millisecond
	return c
}

func TestGeminiClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "k&y", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "summarize this", req.Contents[0].Parts[0].Text)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Part one. "},{"text":"Part two.\n"}]}}]}`))
	}))
	defer srv.Close()

	assert.Equal(t, "Part one. Part two.", newTestGeminiClient(srv.URL).Generate(context.Background(), "summarize this"))
}

func TestGeminiClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	assert.Equal(t, "ok", newTestGeminiClient(srv.URL).Generate(context.Background(), "p"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiClient_FailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		calls  int32
	}{
		{"bad request", http.StatusBadRequest, `{"error":{}}`, 1},
		{"server error", http.StatusInternalServerError, "", geminiMaxRetries},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, 1},
		{"malformed", http.StatusOK, `{`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			assert.Equal(t, "", newTestGeminiClient(srv.URL).Generate(context.Background(), "p"))
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}
