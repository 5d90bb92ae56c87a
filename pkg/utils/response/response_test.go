package response

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func TestSuccess(t *testing.T) {
	resp := Success(map[string]int{"chunks_added": 3})
	defer Release(resp)

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, http.StatusOK, resp.HTTPStatus())
	assert.Equal(t, "success", resp.Message)
	assert.NotZero(t, resp.Timestamp)
}

func TestErr(t *testing.T) {
	resp := Err(errors.ErrRAGValidation.WithMessage("query must not be empty"))
	defer Release(resp)

	assert.False(t, resp.IsSuccess())
	assert.Equal(t, errors.ErrRAGValidation.Code, resp.Code)
	assert.Equal(t, http.StatusBadRequest, resp.HTTPStatus())
	assert.Equal(t, "query must not be empty", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestErrNilIsSuccess(t *testing.T) {
	resp := Err(nil)
	defer Release(resp)
	assert.True(t, resp.IsSuccess())
}

func TestHTTPStatusFallsBackToCategory(t *testing.T) {
	resp := &Response{Code: errors.MakeCode(77, errors.CategoryTimeout, 9)}
	assert.Equal(t, http.StatusGatewayTimeout, resp.HTTPStatus())

	resp = &Response{Code: errors.ErrRAGUnavailable.Code}
	assert.Equal(t, http.StatusServiceUnavailable, resp.HTTPStatus())
}

func TestReleaseResetsResponse(t *testing.T) {
	resp := Success("x").WithRequestID("req-1")
	Release(resp)

	assert.Empty(t, resp.RequestID)
	assert.Nil(t, resp.Data)
	Release(nil)
}
