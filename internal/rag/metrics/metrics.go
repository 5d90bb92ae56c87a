// Package metrics 提供 RAG 服务的 Prometheus 指标。
//
// Metrics 同时实现 biz.Observer（业务事件）和 middleware.RequestRecorder（HTTP 请求），
// 所有指标注册在独立的 Registry 上，通过 Handler 暴露在 /metrics。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace 指标名前缀。
const DefaultNamespace = "sentinel_rag"

const (
	statusOK    = "ok"
	statusError = "error"
)

// Metrics RAG 服务指标集合。
type Metrics struct {
	registry *prometheus.Registry

	// 入库
	ingestTotal    *prometheus.CounterVec
	ingestChunks   prometheus.Counter
	ingestDuration prometheus.Histogram

	// 检索
	searchTotal       *prometheus.CounterVec
	searchResults     prometheus.Histogram
	retrievalDuration prometheus.Histogram
	searchDuration    prometheus.Histogram

	// 答案生成
	answers *prometheus.CounterVec

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New 创建指标集合并注册到新的 Registry。namespace 为空时使用 DefaultNamespace。
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Total number of document ingestions.",
		}, []string{"status"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Total number of chunks written to the vector store.",
		}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Document ingestion duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_total",
			Help:      "Total number of searches.",
		}, []string{"status"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Vector store search duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds, including query embedding and answer generation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer generation outcomes.",
		}, []string{"outcome"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests being served.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestTotal,
		m.ingestChunks,
		m.ingestDuration,
		m.searchTotal,
		m.searchResults,
		m.retrievalDuration,
		m.searchDuration,
		m.answers,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)
	return m
}

// Registry 返回底层 Registry。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 Prometheus exposition 格式的 http.Handler。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterGauge 注册一个按需取值的 gauge，例如熔断器状态或流水线就绪状态。
func (m *Metrics) RegisterGauge(namespace, name, help string, fn func() float64) error {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObserveIngest 记录一次入库。
func (m *Metrics) ObserveIngest(chunks int, duration time.Duration, err error) {
	if err != nil {
		m.ingestTotal.WithLabelValues(statusError).Inc()
		return
	}
	m.ingestTotal.WithLabelValues(statusOK).Inc()
	m.ingestChunks.Add(float64(chunks))
	m.ingestDuration.Observe(duration.Seconds())
}

// ObserveSearch 记录一次检索。
func (m *Metrics) ObserveSearch(results int, retrieval, total time.Duration, err error) {
	if err != nil {
		m.searchTotal.WithLabelValues(statusError).Inc()
		return
	}
	m.searchTotal.WithLabelValues(statusOK).Inc()
	m.searchResults.Observe(float64(results))
	m.retrievalDuration.Observe(retrieval.Seconds())
	m.searchDuration.Observe(total.Seconds())
}

// ObserveAnswer 记录答案生成结果。
func (m *Metrics) ObserveAnswer(outcome string) {
	m.answers.WithLabelValues(outcome).Inc()
}

// ObserveRequest 记录一次 HTTP 请求。
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncInFlight 进行中的请求数加一。
func (m *Metrics) IncInFlight() { m.httpInFlight.Inc() }

// DecInFlight 进行中的请求数减一。
func (m *Metrics) DecInFlight() { m.httpInFlight.Dec() }
