// Package handler provides HTTP handlers for RAG service.
package handler

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/internal/pkg/httputils"
	"github.com/kart-io/sentinel-rag/internal/rag/biz"
	"github.com/kart-io/sentinel-rag/internal/rag/store"
	applogger "github.com/kart-io/sentinel-rag/pkg/infra/logger"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

const defaultMaxUploadSize int64 = 32 << 20

// ServiceInfo 根路径返回的服务信息。
type ServiceInfo struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Health      string            `json:"health"`
	Endpoints   map[string]string `json:"endpoints"`
}

// Option 配置 RAGHandler。
type Option func(*RAGHandler)

// WithServiceInfo 设置根路径返回的名称与版本。
func WithServiceInfo(name, version string) Option {
	return func(h *RAGHandler) {
		h.info.Name = name
		h.info.Version = version
	}
}

// WithMaxUploadSize 设置 ingest-file 允许的最大请求体字节数。
func WithMaxUploadSize(n int64) Option {
	return func(h *RAGHandler) {
		if n > 0 {
			h.maxUploadSize = n
		}
	}
}

// RAGHandler handles RAG HTTP requests.
type RAGHandler struct {
	pipeline      *biz.Pipeline
	store         store.VectorStore
	info          ServiceInfo
	maxUploadSize int64
}

// NewRAGHandler creates a new RAGHandler.
func NewRAGHandler(pipeline *biz.Pipeline, vs store.VectorStore, opts ...Option) *RAGHandler {
	h := &RAGHandler{
		pipeline: pipeline,
		store:    vs,
		info: ServiceInfo{
			Name:        "sentinel-rag",
			Version:     "dev",
			Description: "Retrieval Augmented Generation over a vector store",
			Health:      "/health",
			Endpoints: map[string]string{
				"ingest":      "POST /api/v1/ingest",
				"ingest_file": "POST /api/v1/ingest-file",
				"search":      "POST /api/v1/search",
				"statistics":  "GET /api/v1/statistics",
				"indices":     "GET /api/v1/indices",
				"metrics":     "GET /metrics",
			},
		},
		maxUploadSize: defaultMaxUploadSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RequireReady 在流水线初始化完成前拒绝请求。
func (h *RAGHandler) RequireReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.pipeline.Ready() {
			httputils.WriteResponse(c, errors.ErrRAGNotReady, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// HealthResponse /health 响应。
type HealthResponse struct {
	Status         string `json:"status"`
	RAGInitialized bool   `json:"rag_initialized"`
	StoreConnected bool   `json:"store_connected"`
}

// Health reports pipeline and store health. It always answers 200.
func (h *RAGHandler) Health(c *gin.Context) {
	connected := h.store.HealthCheck(c.Request.Context())
	ready := h.pipeline.Ready()

	status := "healthy"
	if !connected || !ready {
		status = "degraded"
	}
	httputils.WriteResponse(c, nil, HealthResponse{
		Status:         status,
		RAGInitialized: ready,
		StoreConnected: connected,
	})
}

// Info returns service information.
func (h *RAGHandler) Info(c *gin.Context) {
	httputils.WriteResponse(c, nil, h.info)
}

// IngestRequest 文本入库请求，支持表单或 JSON。
type IngestRequest struct {
	DocumentName string `json:"document_name" form:"document_name" binding:"required,notblank"`
	Content      string `json:"content" form:"content" binding:"required,notblank"`
	SourceURL    string `json:"source_url" form:"source_url" binding:"omitempty,url"`
}

// Ingest ingests a text document.
func (h *RAGHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBind(&req); err != nil {
		httputils.WriteResponse(c, bindError(err), nil)
		return
	}

	result, err := h.pipeline.Ingest(c.Request.Context(), req.DocumentName, req.Content, req.SourceURL)
	httputils.WriteResponse(c, err, result)
}

// IngestFile ingests an uploaded UTF-8 text file. The document name is the file name.
func (h *RAGHandler) IngestFile(c *gin.Context) {
	tooLarge := errors.ErrRAGValidation.WithMessagef("file exceeds maximum upload size of %d bytes", h.maxUploadSize)
	if c.Request.ContentLength > h.maxUploadSize {
		httputils.WriteResponse(c, tooLarge, nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if stderrors.As(err, &maxBytes) {
			httputils.WriteResponse(c, tooLarge, nil)
			return
		}
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessage("multipart field \"file\" is required").WithCause(err), nil)
		return
	}

	content, err := readUpload(header)
	if err != nil {
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessage("unable to read uploaded file").WithCause(err), nil)
		return
	}
	if !utf8.Valid(content) {
		httputils.WriteResponse(c, errors.ErrRAGValidation.WithMessage("File must be UTF-8 encoded text"), nil)
		return
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "document"
	}
	ctx := applogger.WithFields(c.Request.Context(), "file_size", header.Size)

	result, err := h.pipeline.Ingest(ctx, name, string(content), c.PostForm("source_url"))
	httputils.WriteResponse(c, err, result)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// SearchRequest 检索请求。
type SearchRequest struct {
	Query  string         `json:"query" binding:"required,notblank"`
	TopK   *int           `json:"top_k" binding:"omitempty,gt=0"`
	UseLLM bool           `json:"use_llm"`
	Filter map[string]any `json:"filter"`
}

// Search runs a semantic search and optionally generates an answer.
func (h *RAGHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, bindError(err), nil)
		return
	}

	resp, err := h.pipeline.Search(c.Request.Context(), biz.SearchRequest{
		Query:  req.Query,
		TopK:   req.TopK,
		UseLLM: req.UseLLM,
		Filter: req.Filter,
	})
	httputils.WriteResponse(c, err, resp)
}

// Statistics returns index statistics, or the error marker when the store cannot answer.
func (h *RAGHandler) Statistics(c *gin.Context) {
	httputils.WriteResponse(c, nil, h.pipeline.Statistics(c.Request.Context()))
}

// IndicesResponse /api/v1/indices 响应。
type IndicesResponse struct {
	Indices []string `json:"indices"`
	Count   int      `json:"count"`
}

// Indices lists all indices in the store.
func (h *RAGHandler) Indices(c *gin.Context) {
	names, err := h.pipeline.ListIndices(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if names == nil {
		names = []string{}
	}
	httputils.WriteResponse(c, nil, IndicesResponse{Indices: names, Count: len(names)})
}

// bindError 把绑定/校验错误转换为 ErrRAGValidation。
func bindError(err error) error {
	return errors.ErrRAGValidation.WithMessage(fmt.Sprintf("invalid request: %s", err.Error())).WithCause(err)
}
