// Package rag defines the retrieval pipeline options.
package rag

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// Options RAG 流水线配置。
type Options struct {
	// IndexName 向量索引名称。
	IndexName string `json:"index-name" mapstructure:"index-name"`
	// ChunkSize 分块大小（字符数）。
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`
	// ChunkOverlap 相邻分块重叠字符数。
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`
	// TopK 默认返回结果数。
	TopK int `json:"top-k" mapstructure:"top-k"`
	// Metric 相似度度量（cosine, l2, ip）。
	Metric string `json:"metric" mapstructure:"metric"`
	// EmbeddingDim 向量维度，0 表示启动时探测。
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`
	// EmbedBatchSize 单次 embedding 请求的最大文本数。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`
	// EmbedWorkers embedding 并发数。
	EmbedWorkers int `json:"embed-workers" mapstructure:"embed-workers"`
	// ContextPreviewLength 每个上下文文档截取的字符数。
	ContextPreviewLength int `json:"context-preview-length" mapstructure:"context-preview-length"`
	// HealthRetries 启动时健康检查的最大次数。
	HealthRetries int `json:"health-retries" mapstructure:"health-retries"`
	// HealthRetryDelay 健康检查间隔。
	HealthRetryDelay time.Duration `json:"health-retry-delay" mapstructure:"health-retry-delay"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 返回默认配置。
func NewOptions() *Options {
	return &Options{
		IndexName:            "documents",
		ChunkSize:            512,
		ChunkOverlap:         50,
		TopK:                 5,
		Metric:               "cosine",
		EmbeddingDim:         0,
		EmbedBatchSize:       32,
		EmbedWorkers:         4,
		ContextPreviewLength: 300,
		HealthRetries:        10,
		HealthRetryDelay:     time.Second,
	}
}

// AddFlags 注册 RAG flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "rag")...)
	fs.StringVar(&o.IndexName, p+"index-name", o.IndexName, "Vector index name")
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Chunk size in characters")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Overlap between consecutive chunks in characters")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Default number of search results")
	fs.StringVar(&o.Metric, p+"metric", o.Metric, "Similarity metric (cosine, l2, ip)")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Embedding dimension, 0 probes the provider at startup")
	fs.IntVar(&o.EmbedBatchSize, p+"embed-batch-size", o.EmbedBatchSize, "Maximum texts per embedding request")
	fs.IntVar(&o.EmbedWorkers, p+"embed-workers", o.EmbedWorkers, "Concurrent embedding requests")
	fs.IntVar(&o.ContextPreviewLength, p+"context-preview-length", o.ContextPreviewLength, "Characters of each document passed to the answerer")
	fs.IntVar(&o.HealthRetries, p+"health-retries", o.HealthRetries, "Store health checks before giving up at startup")
	fs.DurationVar(&o.HealthRetryDelay, p+"health-retry-delay", o.HealthRetryDelay, "Delay between store health checks")
}

// Validate 校验配置。
func (o *Options) Validate() []error {
	var errs []error
	if o.IndexName == "" {
		errs = append(errs, fmt.Errorf("rag.index-name is required"))
	}
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size), got %d", o.ChunkOverlap))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.top-k must be positive"))
	}
	switch o.Metric {
	case "cosine", "l2", "ip", "dot":
	default:
		errs = append(errs, fmt.Errorf("rag.metric must be one of cosine, l2, ip, got %q", o.Metric))
	}
	if o.EmbeddingDim < 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must not be negative"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.embed-batch-size must be positive"))
	}
	if o.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("rag.embed-workers must be positive"))
	}
	if o.ContextPreviewLength <= 0 {
		errs = append(errs, fmt.Errorf("rag.context-preview-length must be positive"))
	}
	if o.HealthRetries <= 0 {
		errs = append(errs, fmt.Errorf("rag.health-retries must be positive"))
	}
	if o.HealthRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("rag.health-retry-delay must not be negative"))
	}
	return errs
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	if o.Metric == "dot" {
		o.Metric = "ip"
	}
	return nil
}
