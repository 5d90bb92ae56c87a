package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewClient(time.Second, 3, WithBackoff(time.Millisecond))
	req, err := NewJSONRequest(context.Background(), http.MethodPost, srv.URL, map[string]string{"name": "documents"})
	require.NoError(t, err)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.DoJSON(req, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
	// the body is replayed on every attempt
	for _, b := range bodies {
		assert.JSONEq(t, `{"name":"documents"}`, b)
	}
}

func TestDoJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("index exists"))
	}))
	defer srv.Close()

	req, err := NewJSONRequest(context.Background(), http.MethodPost, srv.URL, nil)
	require.NoError(t, err)

	err = NewClient(time.Second, 2).DoJSON(req, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, StatusCode(err))
	assert.Contains(t, err.Error(), "index exists")
}

func TestDoJSONExhaustedRetriesReportsStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	err = NewClient(time.Second, 2, WithBackoff(time.Millisecond)).DoJSON(req, nil)
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDefaultHeaders(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	require.NoError(t, NewClient(time.Second, 0, WithHeader("Authorization", "secret")).DoJSON(req, nil))
	assert.Equal(t, "secret", auth)
}

func TestDoRequestHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	client := NewClient(time.Second, 5, WithBackoff(time.Hour))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = client.DoRequest(req)
	assert.ErrorIs(t, err, context.Canceled)
}
