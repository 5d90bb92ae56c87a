package biz

import (
	"context"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// mockEmbeddingProvider 返回 [len(text), 1, 0, ...] 形式的向量。
type mockEmbeddingProvider struct {
	mu      sync.Mutex
	dim     int
	err     error
	short   bool
	batches [][]string
}

var _ llm.EmbeddingProvider = (*mockEmbeddingProvider)(nil)

func (m *mockEmbeddingProvider) vector(text string) []float32 {
	v := make([]float32, m.dim)
	v[0] = float32(len(text))
	if m.dim > 1 {
		v[1] = 1
	}
	return v
}

func (m *mockEmbeddingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, texts)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, m.vector(t))
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingProvider) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingProvider) Name() string { return "mock" }

// stubEmbedder 固定维度的 Embedder。
type stubEmbedder struct {
	dim int
	err error
}

var _ Embedder = (*stubEmbedder)(nil)

func (s *stubEmbedder) EmbedOne(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedMany(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return s.dim }

// mockStore 可编程的 VectorStore。
type mockStore struct {
	mu          sync.Mutex
	healthy     []bool
	healthCalls int
	ensureErr   error
	ensured     []string
	dimension   int
	metric      store.Metric
	insertErr   error
	inserted    []store.StoredVector
	results     []store.SearchResult
	searchErr   error
	lastK       int
	lastFilter  map[string]any
	stats       map[string]any
	statsErr    error
	indices     []string
	listErr     error
}

var _ store.VectorStore = (*mockStore)(nil)

func (m *mockStore) EnsureIndex(_ context.Context, name string, dimension int, metric store.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, name)
	m.dimension = dimension
	m.metric = metric
	return m.ensureErr
}

func (m *mockStore) Insert(_ context.Context, _ string, vectors []store.StoredVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, vectors...)
	return nil
}

func (m *mockStore) Search(_ context.Context, _ string, _ []float32, k int, filter map[string]any) ([]store.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastK = k
	m.lastFilter = filter
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.results) > k {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockStore) HealthCheck(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.healthCalls
	m.healthCalls++
	if len(m.healthy) == 0 {
		return true
	}
	if i >= len(m.healthy) {
		return m.healthy[len(m.healthy)-1]
	}
	return m.healthy[i]
}

func (m *mockStore) Stats(context.Context, string) (map[string]any, error) {
	return m.stats, m.statsErr
}

func (m *mockStore) ListIndices(context.Context) ([]string, error) {
	return m.indices, m.listErr
}

func (m *mockStore) Close(context.Context) error { return nil }

// mockAnswerer 记录调用参数。
type mockAnswerer struct {
	answer      string
	err         error
	calls       int
	prompt      string
	system      string
	maxTokens   int
	temperature float64
}

var _ Answerer = (*mockAnswerer)(nil)

func (m *mockAnswerer) Generate(_ context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error) {
	m.calls++
	m.prompt = prompt
	m.system = systemPrompt
	m.maxTokens = maxTokens
	m.temperature = temperature
	return m.answer, m.err
}

// mockChatProvider 用于 LLMAnswerer 测试。
type mockChatProvider struct {
	out      string
	err      error
	lastOpts llm.ChatOptions
	lastMsgs []llm.Message
}

var _ llm.ChatProvider = (*mockChatProvider)(nil)

func (m *mockChatProvider) Chat(_ context.Context, msgs []llm.Message, opts ...llm.ChatOption) (string, error) {
	m.lastMsgs = msgs
	m.lastOpts = llm.ApplyChatOptions(opts...)
	return m.out, m.err
}

func (m *mockChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, opts ...llm.ChatOption) (string, error) {
	return m.Chat(ctx, llm.BuildMessages(prompt, systemPrompt), opts...)
}

func (m *mockChatProvider) Name() string { return "mock-chat" }
