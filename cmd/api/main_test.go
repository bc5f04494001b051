package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/lakeside-dental/internal/config"
	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

func TestSetupMetricsExposesChatCounters(t *testing.T) {
	m := setupMetrics()
	m.chat.ObserveReply("faq", "knowledge-base")

	rr := httptest.NewRecorder()
	m.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "lakeside_chat_replies_total")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestBuildHandlerWithoutBackingServices(t *testing.T) {
	cfg := &appconfig.Config{
		CORSAllowedOrigins: []string{"*"},
		RateLimitRPS:       10,
		RateLimitBurst:     10,
	}
	handler := buildHandler(cfg, knowledge.MustDefault(), nil, nil, logging.New("error"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","gateway_configured":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Do you take insurance?"}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"source":"knowledge-base"`)
}
