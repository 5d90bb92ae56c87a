// Package response defines the JSON envelope every HTTP endpoint answers with.
package response

import (
	"net/http"
	"sync"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode is the HTTP status code (optional, for client convenience)
	HTTPCode int `json:"http_code,omitempty"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data any `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`
}

var pool = sync.Pool{
	New: func() any { return new(Response) },
}

// Acquire returns a zeroed Response from the pool.
func Acquire() *Response {
	return pool.Get().(*Response)
}

// Release resets r and returns it to the pool. r must not be used afterwards.
func Release(r *Response) {
	if r == nil {
		return
	}
	*r = Response{}
	pool.Put(r)
}

// Success creates a successful response with data.
func Success(data any) *Response {
	r := Acquire()
	r.Code = 0
	r.HTTPCode = http.StatusOK
	r.Message = "success"
	r.Data = data
	r.Timestamp = time.Now().UnixMilli()
	return r
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	r := Acquire()
	r.Code = e.Code
	r.HTTPCode = e.HTTPStatus()
	r.Message = e.MessageEN
	r.Timestamp = time.Now().UnixMilli()
	return r
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the HTTP status for this response, falling back to the
// registered errno and finally to the code's category.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryPermission:
		return http.StatusForbidden
	case errors.CategoryResource:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
