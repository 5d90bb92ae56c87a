package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per finished request.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
	IncInFlight()
	DecInFlight()
}

// Metrics returns a middleware that reports requests to recorder.
// Unmatched routes are reported as "unmatched" to bound label cardinality.
func Metrics(recorder RequestRecorder, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		recorder.IncInFlight()
		start := time.Now()
		defer recorder.DecInFlight()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
