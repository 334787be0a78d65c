package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	requestIDHeader            = "X-Request-ID"
	maxRequestIDLen            = 128
)

// RequestID propagates a caller-supplied X-Request-ID or assigns a new one,
// and attaches a request-scoped logger carrying it to the context.
func RequestID(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}
			ctx := context.WithValue(r.Context(), requestIDKey, rid)
			ctx = base.With().Str("request_id", rid).Logger().WithContext(ctx)
			w.Header().Set(requestIDHeader, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
