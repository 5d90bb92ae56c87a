// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	applogger "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/response"
)

// WriteResponse writes the unified envelope to the client.
// Any error is translated with errors.FromError; server-side failures are logged.
func WriteResponse(c *gin.Context, err error, data any) {
	var resp *response.Response
	if err != nil {
		e := errors.FromError(err)
		if e.HTTPStatus() >= http.StatusInternalServerError {
			applogger.Errorw(c.Request.Context(), "Request failed", err,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"code", e.Code,
			)
		}
		resp = response.Err(e)
	} else {
		resp = response.Success(data)
	}
	defer response.Release(resp)

	resp.WithRequestID(middleware.RequestIDFromGin(c))
	c.JSON(resp.HTTPStatus(), resp)
}
