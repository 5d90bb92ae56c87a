package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	applogger "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/infra/resilience"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// 生成答案时的占位结果。
const (
	AnswerLLMNotConfigured = "LLM not configured"
	AnswerGenerationError  = "Error generating answer"
	AnswerEmpty            = "Unable to generate answer"

	systemPrompt = "You are a helpful assistant that answers questions based on provided documents. Be concise and accurate."

	// contextDocuments 构造 LLM 上下文时使用的结果数。
	contextDocuments = 3
)

// StatisticsUnavailable Statistics 失败时 "error" 字段的内容。
const StatisticsUnavailable = "Unable to fetch statistics"

// Config 流水线配置。
type Config struct {
	IndexName            string
	ChunkSize            int
	ChunkOverlap         int
	TopK                 int
	Metric               store.Metric
	ContextPreviewLength int
	MaxTokens            int
	Temperature          float64
	// HealthRetry 启动时等待存储可用的重试策略。
	HealthRetry *resilience.RetryPolicy
}

// Observer 接收流水线事件，用于指标采集。
type Observer interface {
	ObserveIngest(chunks int, duration time.Duration, err error)
	ObserveSearch(results int, retrieval, total time.Duration, err error)
	ObserveAnswer(outcome string)
}

// Answer outcomes reported to Observer.
const (
	OutcomeGenerated     = "generated"
	OutcomeNotConfigured = "not_configured"
	OutcomeError         = "error"
	OutcomeEmpty         = "empty"
)

type nopObserver struct{}

func (nopObserver) ObserveIngest(int, time.Duration, error)                {}
func (nopObserver) ObserveSearch(int, time.Duration, time.Duration, error) {}
func (nopObserver) ObserveAnswer(string)                                   {}

// Option 配置 Pipeline。
type Option func(*Pipeline)

// WithAnswerer 设置答案生成器；不设置时检索请求 use_llm 返回 "LLM not configured"。
func WithAnswerer(a Answerer) Option {
	return func(p *Pipeline) {
		p.answerer = a
	}
}

// WithObserver 设置事件观察者。
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// Pipeline 编排入库与检索。进程内只构造一个实例，各请求并发调用，不持有请求级状态。
type Pipeline struct {
	cfg      Config
	store    store.VectorStore
	embedder Embedder
	answerer Answerer
	observer Observer
	ready    atomic.Bool
}

// NewPipeline 创建流水线。分块参数非法时返回 ErrRAGConfiguration。
func NewPipeline(cfg Config, vs store.VectorStore, embedder Embedder, opts ...Option) (*Pipeline, error) {
	if cfg.ChunkOverlap < 0 || cfg.ChunkSize <= cfg.ChunkOverlap {
		return nil, errors.ErrRAGConfiguration.WithMessagef(
			"chunk size %d must be greater than overlap %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Metric == "" {
		cfg.Metric = store.MetricCosine
	}
	if cfg.ContextPreviewLength <= 0 {
		cfg.ContextPreviewLength = 300
	}
	if cfg.HealthRetry == nil {
		cfg.HealthRetry = resilience.FixedRetryPolicy(10, time.Second)
	}

	p := &Pipeline{
		cfg:      cfg,
		store:    vs,
		embedder: embedder,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ready 报告 Initialize 是否已成功。
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// HasAnswerer 报告是否配置了答案生成器。
func (p *Pipeline) HasAnswerer() bool {
	return p.answerer != nil
}

// IndexName 返回配置的索引名称。
func (p *Pipeline) IndexName() string {
	return p.cfg.IndexName
}

var errStoreUnhealthy = stderrors.New("vector store health check failed")

// Initialize 等待向量存储可用后确保索引存在，成功后流水线进入就绪状态。
// 等待期间 ctx 取消会立即返回。
func (p *Pipeline) Initialize(ctx context.Context) error {
	ctx = applogger.WithIndex(ctx, p.cfg.IndexName)
	ctx, span := tracing.StartSpan(ctx, "rag.Initialize", tracing.AttrIndexName.String(p.cfg.IndexName))
	defer span.End()

	attempt := 0
	err := p.cfg.HealthRetry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if p.store.HealthCheck(ctx) {
			return nil
		}
		applogger.Warnw(ctx, "Vector store not healthy yet", "attempt", attempt, "max_attempts", p.cfg.HealthRetry.MaxAttempts)
		return errStoreUnhealthy
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return errors.ErrRAGUnavailable.WithMessagef("vector store unavailable after %d attempts", attempt).WithCause(err)
	}

	dim := p.embedder.Dimension()
	if err := p.store.EnsureIndex(ctx, p.cfg.IndexName, dim, p.cfg.Metric); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}

	p.ready.Store(true)
	applogger.Infow(ctx, "RAG pipeline initialized", "dimension", dim, "metric", string(p.cfg.Metric))
	return nil
}

// Ingest 分块、向量化并写入文档。写入失败则整个入库失败。
func (p *Pipeline) Ingest(ctx context.Context, documentName, content, sourceURL string) (result *IngestResult, err error) {
	start := time.Now()
	chunkCount := 0
	defer func() {
		p.observer.ObserveIngest(chunkCount, time.Since(start), err)
	}()

	if strings.TrimSpace(documentName) == "" {
		return nil, errors.ErrRAGValidation.WithMessage("document_name must not be empty")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.ErrRAGValidation.WithMessage("content must not be empty")
	}

	ctx = applogger.WithIndex(ctx, p.cfg.IndexName)
	ctx, span := tracing.StartSpan(ctx, "rag.Ingest",
		tracing.AttrIndexName.String(p.cfg.IndexName),
		tracing.AttrDocumentName.String(documentName),
	)
	defer span.End()
	defer func() { tracing.RecordError(ctx, err) }()

	chunks, err := ChunkDocument(documentName, content, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	chunkCount = len(chunks)
	span.SetAttributes(tracing.AttrChunkCount.Int(chunkCount))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, errors.ErrRAGEmbedding.WithMessagef("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	records := make([]store.StoredVector, len(chunks))
	for i, c := range chunks {
		records[i] = store.StoredVector{
			ID:       c.ID,
			Values:   vectors[i],
			Metadata: c.Metadata(sourceURL),
		}
	}
	if err := p.store.Insert(ctx, p.cfg.IndexName, records); err != nil {
		return nil, err
	}

	result = &IngestResult{
		DocumentName:       documentName,
		ChunksAdded:        len(chunks),
		TotalContentLength: utf8.RuneCountInString(content),
	}
	applogger.Infow(ctx, "Document ingested",
		"document_name", documentName,
		"chunks", result.ChunksAdded,
		"content_length", result.TotalContentLength,
		"elapsed", time.Since(start).String(),
	)
	return result, nil
}

// Search 向量化查询并检索，可选地调用 LLM 生成答案。
// retrieval_time_ms 只统计存储检索；total_time_ms 从查询向量化开始计时。
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (resp *RetrievalResponse, err error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.ErrRAGValidation.WithMessage("query must not be empty")
	}
	topK := p.cfg.TopK
	if req.TopK != nil {
		if *req.TopK <= 0 {
			return nil, errors.ErrRAGValidation.WithMessagef("top_k must be positive, got %d", *req.TopK)
		}
		topK = *req.TopK
	}

	ctx = applogger.WithIndex(ctx, p.cfg.IndexName)
	ctx, span := tracing.StartSpan(ctx, "rag.Search",
		tracing.AttrIndexName.String(p.cfg.IndexName),
		tracing.AttrTopK.Int(topK),
		tracing.AttrUseLLM.Bool(req.UseLLM),
	)
	defer span.End()

	var retrieval time.Duration
	start := time.Now()
	defer func() {
		tracing.RecordError(ctx, err)
		n := 0
		if resp != nil {
			n = resp.ResultCount
		}
		p.observer.ObserveSearch(n, retrieval, time.Since(start), err)
	}()

	queryVec, err := p.embedder.EmbedOne(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	retrievalStart := time.Now()
	results, err := p.store.Search(ctx, p.cfg.IndexName, queryVec, topK, req.Filter)
	retrieval = time.Since(retrievalStart)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []store.SearchResult{}
	}
	span.SetAttributes(tracing.AttrResultCount.Int(len(results)))

	var answer *string
	if req.UseLLM && len(results) > 0 {
		a := p.generateAnswer(ctx, req.Query, results)
		answer = &a
	}

	total := time.Since(start)
	resp = &RetrievalResponse{
		Query:           req.Query,
		Results:         results,
		GeneratedAnswer: answer,
		RetrievalTimeMs: milliseconds(retrieval),
		TotalTimeMs:     milliseconds(total),
		ResultCount:     len(results),
	}
	applogger.Infow(ctx, "Search completed",
		"query", req.Query,
		"top_k", topK,
		"results", resp.ResultCount,
		"use_llm", req.UseLLM,
		"retrieval_ms", resp.RetrievalTimeMs,
		"total_ms", resp.TotalTimeMs,
	)
	return resp, nil
}

// generateAnswer 生成答案。任何错误都降级为占位答案，不向调用方返回。
func (p *Pipeline) generateAnswer(ctx context.Context, query string, results []store.SearchResult) string {
	if p.answerer == nil {
		p.observer.ObserveAnswer(OutcomeNotConfigured)
		return AnswerLLMNotConfigured
	}

	prompt := fmt.Sprintf("Based on the following documents, answer the query:\n\nQuery: %s\n\nContext:\n%s",
		query, BuildContext(results, p.cfg.ContextPreviewLength))

	ctx, span := tracing.StartSpan(ctx, "rag.GenerateAnswer")
	defer span.End()

	answer, err := p.answerer.Generate(ctx, prompt, systemPrompt, p.cfg.MaxTokens, p.cfg.Temperature)
	if err != nil {
		tracing.RecordError(ctx, err)
		applogger.Errorw(ctx, "Error generating answer", err, "query", query)
		p.observer.ObserveAnswer(OutcomeError)
		return AnswerGenerationError
	}
	if strings.TrimSpace(answer) == "" {
		p.observer.ObserveAnswer(OutcomeEmpty)
		return AnswerEmpty
	}
	p.observer.ObserveAnswer(OutcomeGenerated)
	return answer
}

// BuildContext 取前 3 条结果的 content，各截取 previewLength 个码点并追加 "..."，
// 格式为 "[Document i]:\n<preview>"，以空行分隔。content 为空的结果跳过，但保留编号。
func BuildContext(results []store.SearchResult, previewLength int) string {
	parts := make([]string, 0, contextDocuments)
	for i, r := range results {
		if i == contextDocuments {
			break
		}
		content, _ := r.Metadata["content"].(string)
		if content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Document %d]:\n%s...", i+1, textutil.TruncateRunes(content, previewLength)))
	}
	return strings.Join(parts, "\n\n")
}

// Statistics 返回索引统计；失败时记录日志并返回错误标记，不返回错误。
func (p *Pipeline) Statistics(ctx context.Context) map[string]any {
	ctx = applogger.WithIndex(ctx, p.cfg.IndexName)
	stats, err := p.store.Stats(ctx, p.cfg.IndexName)
	if err != nil {
		applogger.Errorw(ctx, "Error fetching statistics", err)
		return map[string]any{"error": StatisticsUnavailable}
	}
	return stats
}

// ListIndices 列出存储中的所有索引。
func (p *Pipeline) ListIndices(ctx context.Context) ([]string, error) {
	return p.store.ListIndices(ctx)
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / float64(time.Millisecond)
}
