package biz

import (
	"github.com/kart-io/sentinel-rag/internal/rag/store"
)

// Chunk 文档分块。偏移与长度均按 Unicode 码点计数。
type Chunk struct {
	ID             string
	Content        string
	DocumentName   string
	ChunkIndex     int
	OriginalLength int
	StartPos       int
	EndPos         int
}

// Metadata 返回写入向量存储的元数据，sourceURL 为空时不包含 source_url。
func (c Chunk) Metadata(sourceURL string) map[string]any {
	m := map[string]any{
		"document_name":   c.DocumentName,
		"chunk_index":     c.ChunkIndex,
		"original_length": c.OriginalLength,
		"start_pos":       c.StartPos,
		"end_pos":         c.EndPos,
		"content":         c.Content,
	}
	if sourceURL != "" {
		m["source_url"] = sourceURL
	}
	return m
}

// IngestResult 入库结果。
type IngestResult struct {
	DocumentName       string `json:"document_name"`
	ChunksAdded        int    `json:"chunks_added"`
	TotalContentLength int    `json:"total_content_length"`
}

// SearchRequest 检索请求。TopK 为 nil 时使用默认值。
type SearchRequest struct {
	Query  string
	TopK   *int
	UseLLM bool
	Filter map[string]any
}

// RetrievalResponse 检索结果，Results 保持存储返回的原始顺序。
type RetrievalResponse struct {
	Query           string               `json:"query"`
	Results         []store.SearchResult `json:"results"`
	GeneratedAnswer *string              `json:"generated_answer"`
	RetrievalTimeMs float64              `json:"retrieval_time_ms"`
	TotalTimeMs     float64              `json:"total_time_ms"`
	ResultCount     int                  `json:"result_count"`
}
