package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeopts "github.com/kart-io/sentinel-rag/pkg/options/store"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

func newEndee(t *testing.T, handler http.HandlerFunc, token string) *EndeeStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewEndeeStore(&storeopts.EndeeOptions{
		URL:        srv.URL + "/",
		AuthToken:  token,
		Timeout:    time.Second,
		MaxRetries: 3,
	}, httpclient.WithBackoff(time.Millisecond))
}

func TestEndeeEnsureIndexConflictIsSuccess(t *testing.T) {
	var got endeeCreateRequest
	s := newEndee(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/index/create", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusConflict)
	}, "Bearer secret")

	require.NoError(t, s.EnsureIndex(context.Background(), "documents", 768, MetricCosine))
	assert.Equal(t, endeeCreateRequest{Name: "documents", Dimension: 768, Metric: "cosine"}, got)
}

func TestEndeeEnsureIndexFailure(t *testing.T) {
	s := newEndee(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, "")

	err := s.EnsureIndex(context.Background(), "documents", 768, MetricCosine)
	require.ErrorIs(t, err, errors.ErrRAGStore)
	assert.Contains(t, err.Error(), `create index "documents"`)
}

func TestEndeeInsertRetries5xx(t *testing.T) {
	var calls atomic.Int32
	s := newEndee(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/index/documents/insert", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body endeeInsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Vectors, 2)

		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, "")

	err := s.Insert(context.Background(), "documents", []StoredVector{
		{ID: "a", Values: []float32{0.1, 0.2}, Metadata: map[string]any{"content": "x"}},
		{ID: "b", Values: []float32{0.3, 0.4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEndeeInsertExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	s := newEndee(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, "")

	err := s.Insert(context.Background(), "documents", []StoredVector{{ID: "a", Values: []float32{1}}})
	assert.ErrorIs(t, err, errors.ErrRAGStore)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEndeeSearchKeepsOrder(t *testing.T) {
	s := newEndee(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/index/documents/search", r.URL.Path)

		var body endeeSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2, body.K)
		assert.Equal(t, map[string]any{"document_name": "a.md"}, body.Filter)

		_, _ = w.Write([]byte(`{"results":[
			{"id":"b","score":0.8,"metadata":{"content":"second"}},
			{"id":"a","score":0.9,"metadata":{"content":"first"}}]}`))
	}, "")

	results, err := s.Search(context.Background(), "documents", []float32{1, 0}, 2, map[string]any{"document_name": "a.md"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	assert.Equal(t, "second", results[0].Metadata["content"])
	assert.Equal(t, "a", results[1].ID)
}

func TestEndeeSearchEmpty(t *testing.T) {
	s := newEndee(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, "")

	results, err := s.Search(context.Background(), "documents", []float32{1}, 5, nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEndeeHealthCheck(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var calls atomic.Int32
	s := newEndee(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}, "")

	assert.True(t, s.HealthCheck(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	calls.Store(0)
	assert.False(t, s.HealthCheck(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "health check is not retried")
}

func TestEndeeHealthCheckUnreachable(t *testing.T) {
	s := NewEndeeStore(&storeopts.EndeeOptions{URL: "http://127.0.0.1:1", Timeout: time.Second})
	assert.False(t, s.HealthCheck(context.Background()))
}

func TestEndeeStatsAndList(t *testing.T) {
	s := newEndee(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/index/list":
			_, _ = w.Write([]byte(`{"indices":["documents","notes"]}`))
		case "/api/v1/index/documents/stats":
			_, _ = w.Write([]byte(`{"total_vectors":42,"dimension":768}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, "")
	ctx := context.Background()

	names, err := s.ListIndices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"documents", "notes"}, names)

	stats, err := s.Stats(ctx, "documents")
	require.NoError(t, err)
	assert.EqualValues(t, 42, stats["total_vectors"])

	_, err = s.Stats(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrRAGStore)
}
