// Package ragsvc provides the RAG Service server implementation.
package ragsvc

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/viper"

	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/internal/rag/router"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/app"
	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/component/redis"
	"github.com/kart-io/sentinel-rag/pkg/component/storage"
	"github.com/kart-io/sentinel-rag/pkg/infra/config"
	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/infra/resilience"
	"github.com/kart-io/sentinel-rag/pkg/infra/server"
	"github.com/kart-io/sentinel-rag/pkg/infra/tracing"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/sentinel-rag/pkg/llm/ollama"
	_ "github.com/kart-io/sentinel-rag/pkg/llm/openai"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	storeopts "github.com/kart-io/sentinel-rag/pkg/options/store"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
)

// Name is the name of the application.
const Name = "sentinel-rag"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	StoreOptions     *storeopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ChatOptions
	RAGOptions       *ragopts.Options
	CacheOptions     *cacheopts.Options
	TracingOptions   *tracingopts.Options
	ShutdownTimeout  time.Duration

	// Viper 非空且加载了配置文件时，监听文件变化并热更新日志级别。
	Viper *viper.Viper
}

// Server represents the RAG server.
type Server struct {
	pipeline *biz.Pipeline
	store    store.VectorStore
	storage  *storage.Manager
	workers  *pool.Pool
	tracing  *tracing.Provider
	http     *server.HTTPServer
	manager  *server.Manager
	watcher  *config.Watcher
}

// NewServer initializes and returns a new Server instance.
// Nothing here waits for the vector store; that happens in Run.
func (cfg *Config) NewServer(ctx context.Context) (srv *Server, err error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s := &Server{storage: storage.NewManager()}
	defer func() {
		if err != nil {
			s.close(context.Background())
		}
	}()

	// 2. 链路追踪
	if cfg.TracingOptions.ServiceName == "" {
		cfg.TracingOptions.ServiceName = Name
	}
	if s.tracing, err = tracing.NewProvider(ctx, cfg.TracingOptions, app.GetVersion()); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// 3. 向量存储
	if s.store, err = cfg.newStore(ctx, s.storage); err != nil {
		return nil, err
	}

	// 4. Embedding
	provider, err := cfg.newEmbeddingProvider(ctx, s.storage)
	if err != nil {
		return nil, err
	}
	dim := cfg.RAGOptions.EmbeddingDim
	if dim == 0 {
		if dim, err = biz.ProbeDimension(ctx, provider); err != nil {
			return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
		}
		logger.Infow("Embedding dimension probed", "provider", provider.Name(), "dimension", dim)
	}
	if s.workers, err = pool.NewPool("embedding", pool.EmbeddingPoolConfig(cfg.RAGOptions.EmbedWorkers)); err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	embedder, err := biz.NewEmbedder(provider, dim, cfg.RAGOptions.EmbedBatchSize, s.workers)
	if err != nil {
		return nil, err
	}

	m := metrics.New("")
	pipelineOpts := []biz.Option{biz.WithObserver(m)}

	// 5. 答案生成（可选）
	if cfg.ChatOptions.Enabled() {
		answerer, err := cfg.newAnswerer(m)
		if err != nil {
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, biz.WithAnswerer(answerer))
	} else {
		logger.Warn("Chat provider not configured, answer generation disabled")
	}

	// 6. 流水线
	metric, err := store.ParseMetric(cfg.RAGOptions.Metric)
	if err != nil {
		return nil, err
	}
	s.pipeline, err = biz.NewPipeline(biz.Config{
		IndexName:            cfg.RAGOptions.IndexName,
		ChunkSize:            cfg.RAGOptions.ChunkSize,
		ChunkOverlap:         cfg.RAGOptions.ChunkOverlap,
		TopK:                 cfg.RAGOptions.TopK,
		Metric:               metric,
		ContextPreviewLength: cfg.RAGOptions.ContextPreviewLength,
		MaxTokens:            cfg.ChatOptions.MaxTokens,
		Temperature:          cfg.ChatOptions.Temperature,
		HealthRetry:          resilience.FixedRetryPolicy(cfg.RAGOptions.HealthRetries, cfg.RAGOptions.HealthRetryDelay),
	}, s.store, embedder, pipelineOpts...)
	if err != nil {
		return nil, err
	}
	if err := m.RegisterGauge("", "pipeline_ready", "Whether the RAG pipeline finished initialization.", func() float64 {
		if s.pipeline.Ready() {
			return 1
		}
		return 0
	}); err != nil {
		return nil, err
	}

	// 7. HTTP
	h := handler.NewRAGHandler(s.pipeline, s.store,
		handler.WithServiceInfo(Name, app.GetVersion()),
		handler.WithMaxUploadSize(cfg.HTTPOptions.MaxUploadSize),
	)
	s.http = server.NewHTTPServer(cfg.HTTPOptions, router.New(cfg.HTTPOptions, h, m))
	s.manager = server.NewManager(cfg.ShutdownTimeout, s.http)

	// 8. 配置热更新
	if cfg.Viper != nil {
		s.watcher = config.NewWatcher(cfg.Viper)
		s.watcher.Subscribe("log-level", config.LogLevelHandler("log.level"))
	}

	logger.Infow("RAG server created",
		"addr", cfg.HTTPOptions.Addr,
		"store", cfg.StoreOptions.Backend,
		"index", cfg.RAGOptions.IndexName,
		"embedding", cfg.EmbeddingOptions.Provider+"/"+cfg.EmbeddingOptions.Model,
		"dimension", dim,
		"metric", string(metric),
		"answerer", s.pipeline.HasAnswerer(),
	)
	return s, nil
}

// newStore 按配置创建向量存储。Milvus 连接注册到 storage.Manager 统一关闭。
func (cfg *Config) newStore(ctx context.Context, mgr *storage.Manager) (store.VectorStore, error) {
	switch cfg.StoreOptions.Backend {
	case storeopts.BackendMemory:
		logger.Warn("Using in-memory vector store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case storeopts.BackendMilvus:
		client, err := milvus.New(ctx, cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to milvus: %w", err)
		}
		if err := mgr.Register(client.Name(), client); err != nil {
			_ = client.Close()
			return nil, err
		}
		return store.NewMilvusStore(client), nil
	case storeopts.BackendEndee:
		return store.NewEndeeStore(cfg.StoreOptions.Endee), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreOptions.Backend)
	}
}

// newEmbeddingProvider 创建 embedding 供应商，启用缓存时包装 Redis 缓存。
func (cfg *Config) newEmbeddingProvider(ctx context.Context, mgr *storage.Manager) (llm.EmbeddingProvider, error) {
	provider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if !cfg.CacheOptions.Enabled {
		return provider, nil
	}

	client, err := redis.New(ctx, cfg.CacheOptions.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to embedding cache: %w", err)
	}
	if err := mgr.Register(client.Name(), client); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Infow("Embedding cache enabled", "addr", cfg.CacheOptions.Redis.Addr(), "ttl", cfg.CacheOptions.TTL.String())
	return llm.NewCachedEmbeddingProvider(provider, client.Client(), &llm.EmbeddingCacheConfig{
		TTL:       cfg.CacheOptions.TTL,
		KeyPrefix: cfg.CacheOptions.KeyPrefix,
		Namespace: cfg.EmbeddingOptions.Provider + ":" + cfg.EmbeddingOptions.Model,
	}), nil
}

// newAnswerer 创建带重试与熔断的答案生成器，并导出熔断器状态。
func (cfg *Config) newAnswerer(m *metrics.Metrics) (biz.Answerer, error) {
	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to create chat provider: %w", err)
	}

	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = max(cfg.ChatOptions.MaxRetries, 1)
	resilient := llm.NewResilientChatProvider(chat, retry, nil)
	if err := m.RegisterGauge("", "chat_circuit_breaker_state",
		"Chat provider circuit breaker state (0=closed, 1=open, 2=half-open).",
		func() float64 { return float64(resilient.BreakerState()) },
	); err != nil {
		return nil, err
	}
	return biz.NewAnswerer(resilient), nil
}

// Run starts the HTTP server, initializes the pipeline in the background and
// blocks until ctx is cancelled. A failed initialization stops the server and
// is returned so the process exits non-zero.
func (s *Server) Run(ctx context.Context) error {
	defer s.close(context.Background())

	if s.watcher != nil {
		s.watcher.Start()
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		if err := s.pipeline.Initialize(runCtx); err != nil {
			if runCtx.Err() != nil {
				return
			}
			logger.Errorw("RAG pipeline initialization failed", "error", err.Error())
			cancel(err)
		}
	}()
	go func() {
		select {
		case err := <-s.http.Err():
			cancel(err)
		case <-runCtx.Done():
		}
	}()

	if err := s.manager.Run(runCtx); err != nil {
		return err
	}
	if ctx.Err() == nil {
		if cause := context.Cause(runCtx); cause != nil && !stderrors.Is(cause, context.Canceled) {
			return cause
		}
	}
	logger.Info("RAG server stopped")
	return nil
}

// Addr returns the address the HTTP server is bound to.
func (s *Server) Addr() string {
	return s.http.Addr()
}

// Pipeline returns the retrieval pipeline.
func (s *Server) Pipeline() *biz.Pipeline {
	return s.pipeline
}

// close 释放存储、连接池与追踪资源。
func (s *Server) close(ctx context.Context) {
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			logger.Warnw("Failed to close vector store", "error", err.Error())
		}
	}
	if err := s.storage.CloseAll(); err != nil {
		logger.Warnw("Failed to close storage clients", "error", err.Error())
	}
	if s.workers != nil {
		s.workers.Release()
	}
	if s.tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("Failed to shutdown tracing", "error", err.Error())
		}
	}
	_ = logger.Flush()
}
