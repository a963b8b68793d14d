package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/observability"
)

type contextKey string

const htmxContextKey contextKey = "htmx.info"

// HTMXInfo is what the handlers need from the HX-* request headers.
type HTMXInfo struct {
	IsHTMX bool
	// TriggerID is the id of the element that fired the request, if it has one.
	TriggerID string
}

// HTMX returns middleware that inspects HX-* headers and annotates the context.
// Action routes answer both full-page posts and htmx swaps, so responses vary on HX-Request.
func HTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := HTMXInfo{
				IsHTMX:    strings.EqualFold(r.Header.Get("HX-Request"), "true"),
				TriggerID: r.Header.Get("HX-Trigger"),
			}
			w.Header().Add("Vary", "HX-Request")

			ctx := context.WithValue(r.Context(), htmxContextKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HTMXInfoFromContext retrieves HTMX metadata; returns zero value if absent.
func HTMXInfoFromContext(ctx context.Context) HTMXInfo {
	val, ok := ctx.Value(htmxContextKey).(HTMXInfo)
	if !ok {
		return HTMXInfo{}
	}
	return val
}

// IsHTMXRequest returns true when the current request was initiated by htmx.
func IsHTMXRequest(ctx context.Context) bool {
	return HTMXInfoFromContext(ctx).IsHTMX
}

// RequireHTMX answers 404 to direct navigation so fragment routes stay internal.
func RequireHTMX() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsHTMXRequest(r.Context()) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ErrorEnvelope is the JSON body htmx callers receive for rejected requests.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError answers htmx requests with an ErrorEnvelope and everything else
// with plain text.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if !IsHTMXRequest(r.Context()) {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorEnvelope{Success: false, Error: message}); err != nil {
		observability.FromContext(r.Context()).Warn("encode error response", zap.Error(err))
	}
}
