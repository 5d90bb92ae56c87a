package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	"github.com/kart-io/sentinel-rag/pkg/infra/resilience"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
	"github.com/kart-io/sentinel-rag/pkg/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	binding.Validator = validator.Global().Binding()
}

// letterEmbedder 按字母频次生成 26 维向量。
type letterEmbedder struct{}

var _ biz.Embedder = letterEmbedder{}

func (letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e letterEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e letterEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (letterEmbedder) Dimension() int { return 26 }

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type testEnv struct {
	engine   *gin.Engine
	pipeline *biz.Pipeline
	store    *store.MemoryStore
}

func newTestEnv(t *testing.T, initialize bool, opts ...Option) *testEnv {
	t.Helper()
	vs := store.NewMemoryStore()
	p, err := biz.NewPipeline(biz.Config{
		IndexName:    "documents",
		ChunkSize:    512,
		ChunkOverlap: 50,
		HealthRetry:  resilience.FixedRetryPolicy(1, time.Millisecond),
	}, vs, letterEmbedder{})
	require.NoError(t, err)
	if initialize {
		require.NoError(t, p.Initialize(context.Background()))
	}

	h := NewRAGHandler(p, vs, opts...)
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/health", h.Health)
	engine.GET("/", h.Info)
	v1 := engine.Group("/api/v1", h.RequireReady())
	v1.POST("/ingest", h.Ingest)
	v1.POST("/ingest-file", h.IngestFile)
	v1.POST("/search", h.Search)
	v1.GET("/statistics", h.Statistics)
	v1.GET("/indices", h.Indices)

	return &testEnv{engine: engine, pipeline: p, store: vs}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

func (e *testEnv) postFile(t *testing.T, filename string, content []byte, fields map[string]string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest-file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	code, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, HealthResponse{Status: "degraded", RAGInitialized: false, StoreConnected: true}, health)

	require.NoError(t, env.pipeline.Initialize(context.Background()))
	_, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "healthy", decode[HealthResponse](t, resp).Status)

	require.NoError(t, env.store.Close(context.Background()))
	code, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", decode[HealthResponse](t, resp).Status)
}

func TestInfo(t *testing.T) {
	env := newTestEnv(t, false, WithServiceInfo("sentinel-rag", "v1.2.3"))

	code, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, code)
	info := decode[ServiceInfo](t, resp)
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "POST /api/v1/search", info.Endpoints["search"])
}

func TestNotReady(t *testing.T) {
	env := newTestEnv(t, false)

	code, resp := env.postJSON(t, "/api/v1/search", map[string]any{"query": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, errors.ErrRAGNotReady.Code, resp.Code)
	assert.NotEmpty(t, resp.RequestID)

	code, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestIngestForm(t *testing.T) {
	env := newTestEnv(t, true)

	form := url.Values{"document_name": {"notes.txt"}, "content": {strings.Repeat("a", 1000)}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	code, resp := env.do(t, req)
	require.Equal(t, http.StatusOK, code, resp.Message)
	result := decode[biz.IngestResult](t, resp)
	assert.Equal(t, biz.IngestResult{DocumentName: "notes.txt", ChunksAdded: 3, TotalContentLength: 1000}, result)
}

func TestIngestJSONValidation(t *testing.T) {
	env := newTestEnv(t, true)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing content", map[string]any{"document_name": "a.md"}},
		{"blank name", map[string]any{"document_name": "  ", "content": "x"}},
		{"bad source url", map[string]any{"document_name": "a.md", "content": "x", "source_url": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := env.postJSON(t, "/api/v1/ingest", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, errors.ErrRAGValidation.Code, resp.Code)
		})
	}

	code, resp := env.postJSON(t, "/api/v1/ingest", map[string]any{
		"document_name": "a.md", "content": "hello", "source_url": "https://example.com/a.md",
	})
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, 1, decode[biz.IngestResult](t, resp).ChunksAdded)
}

func TestIngestFile(t *testing.T) {
	env := newTestEnv(t, true)

	code, resp := env.postFile(t, "guide.md", []byte("héllo wörld"), map[string]string{"source_url": "https://example.com/guide.md"})
	require.Equal(t, http.StatusOK, code, resp.Message)
	result := decode[biz.IngestResult](t, resp)
	assert.Equal(t, "guide.md", result.DocumentName)
	assert.Equal(t, 11, result.TotalContentLength)

	code, resp = env.postFile(t, "bin.dat", []byte{0xff, 0xfe, 0xfd}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "File must be UTF-8 encoded text", resp.Message)

	code, resp = env.postFile(t, "", nil, map[string]string{"source_url": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.ErrRAGValidation.Code, resp.Code)

	code, _ = env.postFile(t, "empty.txt", []byte("   "), nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestIngestFileTooLarge(t *testing.T) {
	env := newTestEnv(t, true, WithMaxUploadSize(128))

	code, resp := env.postFile(t, "big.txt", bytes.Repeat([]byte("a"), 4096), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "maximum upload size")
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, true)

	for name, content := range map[string]string{"a.md": "apples and bananas", "z.md": "zzz quiz jazz"} {
		code, resp := env.postJSON(t, "/api/v1/ingest", map[string]any{"document_name": name, "content": content})
		require.Equal(t, http.StatusOK, code, resp.Message)
	}

	code, resp := env.postJSON(t, "/api/v1/search", map[string]any{"query": "banana", "top_k": 1})
	require.Equal(t, http.StatusOK, code, resp.Message)
	out := decode[biz.RetrievalResponse](t, resp)
	require.Equal(t, 1, out.ResultCount)
	assert.Equal(t, "a.md", out.Results[0].Metadata["document_name"])
	assert.Nil(t, out.GeneratedAnswer)
	assert.LessOrEqual(t, out.RetrievalTimeMs, out.TotalTimeMs)

	code, resp = env.postJSON(t, "/api/v1/search", map[string]any{"query": "quiz", "use_llm": true, "filter": map[string]any{"document_name": "z.md"}})
	require.Equal(t, http.StatusOK, code, resp.Message)
	out = decode[biz.RetrievalResponse](t, resp)
	require.Equal(t, 1, out.ResultCount)
	require.NotNil(t, out.GeneratedAnswer)
	assert.Equal(t, biz.AnswerLLMNotConfigured, *out.GeneratedAnswer)
}

func TestSearchValidation(t *testing.T) {
	env := newTestEnv(t, true)

	for _, body := range []map[string]any{
		{"query": ""},
		{"query": "  "},
		{"query": "q", "top_k": 0},
		{"query": "q", "top_k": -3},
	} {
		code, resp := env.postJSON(t, "/api/v1/search", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, errors.ErrRAGValidation.Code, resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	code, _ := env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStatisticsAndIndices(t *testing.T) {
	env := newTestEnv(t, true)
	_, _ = env.postJSON(t, "/api/v1/ingest", map[string]any{"document_name": "a.md", "content": "hello"})

	code, resp := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))
	require.Equal(t, http.StatusOK, code)
	stats := decode[map[string]any](t, resp)
	assert.EqualValues(t, 1, stats["total_vectors"])

	code, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/indices", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, IndicesResponse{Indices: []string{"documents"}, Count: 1}, decode[IndicesResponse](t, resp))

	require.NoError(t, env.store.Close(context.Background()))
	code, resp = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/statistics", nil))
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"error": biz.StatisticsUnavailable}, decode[map[string]any](t, resp))
}
