package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// Recovery returns a middleware that recovers from panics and answers with
// the ErrPanic envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"error", fmt.Sprint(r),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", RequestIDFromGin(c),
					"stack", string(debug.Stack()),
				)
				abortWithErrno(c, errors.ErrPanic)
			}
		}()
		c.Next()
	}
}

// abortWithErrno writes the error envelope unless a response was already sent.
func abortWithErrno(c *gin.Context, e *errors.Errno) {
	if c.Writer.Written() {
		c.Abort()
		return
	}
	resp := response.Err(e).WithRequestID(RequestIDFromGin(c))
	defer response.Release(resp)
	c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
}
