package api

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is the header WriteErrorR reads to populate a Problem
// Detail's trace_id field.
const RequestIDHeader = "X-Request-ID"

// WithRequestID assigns a fresh request ID to every inbound request that
// doesn't already carry one, so every error response (and every log line a
// handler emits) can be correlated back to a single call.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
