package middleware

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Timeout returns a middleware that bounds the request context by timeout.
// Handlers observe the deadline through c.Request.Context(); if the deadline
// elapsed and nothing was written, ErrRequestTimeout is returned.
// A non-positive timeout disables the middleware.
func Timeout(timeout time.Duration, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			abortWithErrno(c, errors.ErrRequestTimeout)
		}
	}
}
