package ragsvc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	storeopts "github.com/kart-io/sentinel-rag/pkg/options/store"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// fakeOllama 模拟 /api/embed 与 /api/chat。
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := make([][]float32, len(req.Input))
		for i, text := range req.Input {
			out[i] = []float32{float32(len(text)), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "fake", "embeddings": out})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "fake",
			"message": map[string]string{"role": "assistant", "content": "forty-two"},
			"done":    true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(ollamaURL string) *Config {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = "127.0.0.1:0"
	httpOpts.Mode = gin.TestMode

	embedding := llmopts.NewEmbeddingOptions()
	embedding.BaseURL = ollamaURL
	embedding.Timeout = 5 * time.Second

	chat := llmopts.NewChatOptions()
	chat.BaseURL = ollamaURL
	chat.Timeout = 5 * time.Second

	rag := ragopts.NewOptions()
	rag.HealthRetryDelay = time.Millisecond

	st := storeopts.NewOptions()
	st.Backend = storeopts.BackendMemory

	return &Config{
		HTTPOptions:      httpOpts,
		LogOptions:       logopts.NewOptions(),
		StoreOptions:     st,
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: embedding,
		ChatOptions:      chat,
		RAGOptions:       rag,
		CacheOptions:     cacheopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		ShutdownTimeout:  5 * time.Second,
	}
}

func TestServerEndToEnd(t *testing.T) {
	ollama := fakeOllama(t)
	cfg := newTestConfig(ollama.URL)

	srv, err := cfg.NewServer(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, srv.Pipeline().Ready, 5*time.Second, 10*time.Millisecond)
	base := "http://" + srv.Addr()

	body, _ := json.Marshal(map[string]any{"document_name": "a.md", "content": "the answer is forty-two"})
	resp, err := http.Post(base+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ = json.Marshal(map[string]any{"query": "what is the answer", "use_llm": true})
	resp, err = http.Post(base+"/api/v1/search", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var env struct {
		Data struct {
			ResultCount     int     `json:"result_count"`
			GeneratedAnswer *string `json:"generated_answer"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	_ = resp.Body.Close()
	assert.Equal(t, 1, env.Data.ResultCount)
	require.NotNil(t, env.Data.GeneratedAnswer)
	assert.Equal(t, "forty-two", *env.Data.GeneratedAnswer)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerExitsWhenStoreUnavailable(t *testing.T) {
	ollama := fakeOllama(t)
	cfg := newTestConfig(ollama.URL)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	cfg.StoreOptions.Backend = storeopts.BackendEndee
	cfg.StoreOptions.Endee.URL = dead.URL
	cfg.RAGOptions.HealthRetries = 2
	cfg.RAGOptions.EmbeddingDim = 3

	srv, err := cfg.NewServer(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrRAGUnavailable)
	case <-time.After(10 * time.Second):
		t.Fatal("server kept running with an unavailable store")
	}
	assert.False(t, srv.Pipeline().Ready())
}

func TestNewServerRejectsUnknownBackend(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:1")
	cfg.StoreOptions.Backend = "faiss"
	cfg.RAGOptions.EmbeddingDim = 3

	_, err := cfg.NewServer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("%q", "faiss"))
}
