package metrics

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
)

var (
	_ biz.Observer               = (*Metrics)(nil)
	_ middleware.RequestRecorder = (*Metrics)(nil)
)

func TestObserveIngest(t *testing.T) {
	m := New("")

	m.ObserveIngest(3, 120*time.Millisecond, nil)
	m.ObserveIngest(2, 80*time.Millisecond, nil)
	m.ObserveIngest(0, time.Millisecond, stderrors.New("insert failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues(statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestTotal.WithLabelValues(statusError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ingestChunks))
}

func TestObserveSearchAndAnswer(t *testing.T) {
	m := New("test")

	m.ObserveSearch(2, 5*time.Millisecond, 40*time.Millisecond, nil)
	m.ObserveSearch(0, 0, time.Millisecond, stderrors.New("store down"))
	m.ObserveAnswer(biz.OutcomeGenerated)
	m.ObserveAnswer(biz.OutcomeNotConfigured)
	m.ObserveAnswer(biz.OutcomeNotConfigured)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchTotal.WithLabelValues(statusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searchTotal.WithLabelValues(statusError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.answers.WithLabelValues(biz.OutcomeNotConfigured)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.retrievalDuration))
}

func TestObserveRequest(t *testing.T) {
	m := New("")

	m.IncInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpInFlight))
	m.ObserveRequest(http.MethodPost, "/api/v1/search", http.StatusOK, 30*time.Millisecond)
	m.DecInFlight()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodPost, "/api/v1/search", "200")))
}

func TestHandlerExposition(t *testing.T) {
	m := New("")
	m.ObserveIngest(4, time.Second, nil)
	require.NoError(t, m.RegisterGauge("", "pipeline_ready", "Whether the pipeline is ready.", func() float64 { return 1 }))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `sentinel_rag_ingest_total{status="ok"} 1`)
	assert.Contains(t, body, "sentinel_rag_ingest_chunks_total 4")
	assert.Contains(t, body, "sentinel_rag_pipeline_ready 1")
	assert.True(t, strings.Contains(body, "go_goroutines"))
}

func TestRegisterGaugeDuplicate(t *testing.T) {
	m := New("")
	fn := func() float64 { return 0 }
	require.NoError(t, m.RegisterGauge("", "breaker_state", "state", fn))
	assert.Error(t, m.RegisterGauge("", "breaker_state", "state", fn))
}
