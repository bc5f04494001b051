package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(method, origin string, preflight bool) *http.Request {
	req := httptest.NewRequest(method, "/api/chat", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	return req
}

func TestCORSOriginMatching(t *testing.T) {
	mw := CORS([]string{"https://lakesidefamilydental.com/", "https://*.preview.lakesidefamilydental.com"})
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		origin string
		allow  bool
	}{
		{"https://lakesidefamilydental.com", true},
		{"https://pr-12.preview.lakesidefamilydental.com", true},
		{"https://preview.lakesidefamilydental.com", false},
		{"http://pr-12.preview.lakesidefamilydental.com", false},
		{"https://evil.com/.preview.lakesidefamilydental.com", false},
		{"https://unknown.example", false},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, corsRequest(http.MethodPost, tt.origin, false))

		assert.Equal(t, http.StatusOK, rec.Code, tt.origin)
		if tt.allow {
			assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
			assert.Equal(t, corsAllowedMethods, rec.Header().Get("Access-Control-Allow-Methods"))
		} else {
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
		}
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS([]string{"*"})(http.NotFoundHandler()).ServeHTTP(rec, corsRequest(http.MethodGet, "https://random.example", false))
	assert.Equal(t, "https://random.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw := CORS([]string{"https://lakesidefamilydental.com"})

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, corsRequest(http.MethodOptions, "https://lakesidefamilydental.com", true))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mw(next).ServeHTTP(rec, corsRequest(http.MethodOptions, "https://unknown.example", true))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.False(t, called, "preflight never reaches the handler")
}

func TestCORSWithoutOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})).ServeHTTP(rec, corsRequest(http.MethodPost, "", false))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Header().Get("Vary"))
}
