// Package store 提供向量存储的统一接口及 Endee、Milvus、内存三种实现。
package store

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Metric 向量相似度度量。
type Metric string

const (
	// MetricCosine 余弦相似度，分数越高越相似。
	MetricCosine Metric = "cosine"
	// MetricL2 欧氏距离，分数越低越相似。
	MetricL2 Metric = "l2"
	// MetricIP 内积，分数越高越相似。
	MetricIP Metric = "ip"
)

// ParseMetric 解析度量名称，"dot" 视为 ip，空字符串视为 cosine。
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "cosine":
		return MetricCosine, nil
	case "l2":
		return MetricL2, nil
	case "ip", "dot":
		return MetricIP, nil
	default:
		return "", fmt.Errorf("unsupported metric %q", s)
	}
}

// StoredVector 一条待写入的向量记录，ID 与 Chunk.ID 相同。
type StoredVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResult 检索命中，分数含义由索引度量决定。
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// VectorStore 定义向量存储接口。
//
// 除 HealthCheck 外，所有失败都以 errors.ErrRAGStore 返回，并携带操作名与索引名。
type VectorStore interface {
	// EnsureIndex 创建索引；索引已存在视为成功。
	EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error

	// Insert 批量写入，对调用方而言要么全部成功要么失败。
	Insert(ctx context.Context, index string, vectors []StoredVector) error

	// Search 返回至多 k 条结果，保持后端原生顺序。filter 为 metadata 等值条件，可为空。
	Search(ctx context.Context, index string, vector []float32, k int, filter map[string]any) ([]SearchResult, error)

	// HealthCheck 探测后端是否可用，不返回错误。
	HealthCheck(ctx context.Context) bool

	// Stats 返回索引统计信息。
	Stats(ctx context.Context, index string) (map[string]any, error)

	// ListIndices 列出所有索引名称。
	ListIndices(ctx context.Context) ([]string, error)

	// Close 释放连接。
	Close(ctx context.Context) error
}

// storeError 构造带操作名和索引名的 StoreError。index 为空时省略。
func storeError(op, index string, cause error) error {
	if index == "" {
		return errors.ErrRAGStore.WithMessagef("%s failed", op).WithCause(cause)
	}
	return errors.ErrRAGStore.WithMessagef("%s %q failed", op, index).WithCause(cause)
}
