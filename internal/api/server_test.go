package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradejournal/internal/api/health"
	"tradejournal/pkg/logger"
)

func TestServerRoutes(t *testing.T) {
	var hits int
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})

	srv := NewServer(ServerConfig{
		ServiceName:     "tradejournal",
		Version:         "test",
		TelegramWebhook: webhook,
	}, health.New(logger.NewNop(), "tradejournal", "test"), logger.NewNop())

	tests := []struct {
		method   string
		path     string
		wantCode int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, WebhookPath, http.StatusOK},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	assert.Equal(t, 1, hits)
}

func TestServerWithoutWebhook(t *testing.T) {
	srv := NewServer(ServerConfig{}, health.New(logger.NewNop(), "tradejournal", "test"), logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
