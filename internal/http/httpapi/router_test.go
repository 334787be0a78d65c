package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"stockprompt/internal/http/handlers"
)

func TestRouterHealthAndHeaders(t *testing.T) {
	router := NewRouter(&handlers.App{Logger: zerolog.Nop()}, Options{AllowedOrigins: []string{"*"}, RateLimitPerMin: 1, Logger: zerolog.Nop()})

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing CORS header")
	}
}

func TestRouterRateLimitsGenerationRoutes(t *testing.T) {
	router := NewRouter(&handlers.App{Logger: zerolog.Nop()}, Options{RateLimitPerMin: 1, Logger: zerolog.Nop()})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/keywords/expand", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	// Empty body fails validation before any model call.
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
