package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// requestIDKey is the context key for the request ID
	requestIDKey contextKey = "request_id"

	// subjectKey is the context key for the authenticated subject
	subjectKey contextKey = "subject"
)

// requestIDHeader carries the request ID back to the caller
const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a UUID, stores it in the context, and
// echoes it in the response headers.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// GetSubjectFromContext retrieves the authenticated subject from context
func GetSubjectFromContext(ctx context.Context) string {
	if subject, ok := ctx.Value(subjectKey).(string); ok {
		return subject
	}
	return ""
}
