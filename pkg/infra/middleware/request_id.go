package middleware

import (
	"github.com/gin-gonic/gin"

	applogger "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/utils/id"
)

// RequestIDConfig defines the config for RequestID middleware.
type RequestIDConfig struct {
	// Header is the header name for request ID.
	// Default: X-Request-ID
	Header string

	// Generator generates new request IDs.
	// Default: ULID
	Generator id.Generator
}

// RequestID returns a middleware that adds a request ID to each request.
// An incoming ID in the header is reused.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig returns a RequestID middleware with custom config.
func RequestIDWithConfig(config RequestIDConfig) gin.HandlerFunc {
	if config.Header == "" {
		config.Header = HeaderXRequestID
	}
	if config.Generator == nil {
		config.Generator = id.NewULIDGenerator()
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(config.Header)
		if requestID == "" {
			requestID = config.Generator.Generate()
		}

		c.Set(ginRequestIDKey, requestID)
		c.Header(config.Header, requestID)

		ctx := WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(applogger.WithRequestID(ctx, requestID))

		c.Next()
	}
}
