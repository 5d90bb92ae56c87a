package biz

import (
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/id"
)

// ChunkDocument 按固定窗口切分文档，窗口每次前移 chunkSize-overlap 个码点，
// 直到某个分块的结束位置到达文档末尾。空文档返回零个分块。
//
// 要求 chunkSize > overlap >= 0，否则返回 ErrRAGConfiguration。
func ChunkDocument(documentName, content string, chunkSize, overlap int) ([]Chunk, error) {
	if overlap < 0 || chunkSize <= overlap {
		return nil, errors.ErrRAGConfiguration.WithMessagef(
			"chunk size %d must be greater than overlap %d, and overlap must not be negative", chunkSize, overlap)
	}

	runes := []rune(content)
	total := len(runes)
	if total == 0 {
		return []Chunk{}, nil
	}

	step := chunkSize - overlap
	chunks := make([]Chunk, 0, (total+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+chunkSize, total)
		chunks = append(chunks, Chunk{
			ID:             id.NewUUID(),
			Content:        string(runes[start:end]),
			DocumentName:   documentName,
			ChunkIndex:     len(chunks),
			OriginalLength: total,
			StartPos:       start,
			EndPos:         end,
		})
		if end >= total {
			break
		}
	}
	return chunks, nil
}
