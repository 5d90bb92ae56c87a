// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Header constants used across middleware.
const (
	// HeaderXRequestID is the header name for request ID.
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceID is the header name for trace ID.
	HeaderTraceID = "X-Trace-ID"
)

// requestIDKey is the context key type for request ID.
type requestIDKey struct{}

// ginRequestIDKey is the gin.Context key the request ID is stored under.
const ginRequestIDKey = "request_id"

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID returns the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDFromGin returns the request ID set by RequestID.
func RequestIDFromGin(c *gin.Context) string {
	if id := c.GetString(ginRequestIDKey); id != "" {
		return id
	}
	return GetRequestID(c.Request.Context())
}
