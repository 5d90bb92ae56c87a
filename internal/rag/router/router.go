// Package router provides RAG service routing.
package router

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-rag/internal/rag/handler"
	"github.com/kart-io/sentinel-rag/internal/rag/metrics"
	"github.com/kart-io/sentinel-rag/pkg/infra/middleware"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	"github.com/kart-io/sentinel-rag/pkg/validator"
)

// 不计入访问日志、追踪与请求指标的路径。
var probePaths = []string{"/health", "/metrics"}

var bindingOnce sync.Once

// New builds the gin engine with the middleware chain and all RAG routes.
// m may be nil, in which case /metrics is not served.
func New(opts *httpopts.Options, h *handler.RAGHandler, m *metrics.Metrics) *gin.Engine {
	bindingOnce.Do(func() {
		binding.Validator = validator.Global().Binding()
	})
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = opts.MaxUploadSize

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Tracing(probePaths...),
		middleware.LoggerWithConfig(middleware.LoggerConfig{SkipPaths: probePaths}),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m, probePaths...))
	}
	engine.Use(
		middleware.CORS(opts.CORSAllowOrigins...),
		middleware.Timeout(opts.RequestTimeout, probePaths...),
	)

	Register(engine, h, m)
	return engine
}

// Register registers the RAG service routes.
func Register(engine *gin.Engine, h *handler.RAGHandler, m *metrics.Metrics) {
	engine.GET("/health", h.Health)
	engine.GET("/", h.Info)
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := engine.Group("/api/v1", h.RequireReady())
	{
		v1.POST("/ingest", h.Ingest)
		v1.POST("/ingest-file", h.IngestFile)
		v1.POST("/search", h.Search)
		v1.GET("/statistics", h.Statistics)
		v1.GET("/indices", h.Indices)
	}

	logger.Infow("HTTP routes registered", "routes", len(engine.Routes()))
}
