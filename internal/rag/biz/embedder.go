package biz

import (
	"context"

	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Embedder 文本向量化接口。输出顺序与长度与输入一致。
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ProviderEmbedder 基于 llm.EmbeddingProvider 的 Embedder。
// 大批量文本拆分为子批次，通过 worker pool 并发请求后按原顺序拼接。
type ProviderEmbedder struct {
	provider  llm.EmbeddingProvider
	dimension int
	batchSize int
	pool      *pool.Pool
}

var _ Embedder = (*ProviderEmbedder)(nil)

// NewEmbedder 创建 Embedder。workers 为 nil 时子批次串行执行。
func NewEmbedder(provider llm.EmbeddingProvider, dimension, batchSize int, workers *pool.Pool) (*ProviderEmbedder, error) {
	if dimension <= 0 {
		return nil, errors.ErrRAGConfiguration.WithMessagef("embedding dimension must be positive, got %d", dimension)
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	return &ProviderEmbedder{
		provider:  provider,
		dimension: dimension,
		batchSize: batchSize,
		pool:      workers,
	}, nil
}

// ProbeDimension 请求一次向量化，返回 provider 的输出维度。
func ProbeDimension(ctx context.Context, provider llm.EmbeddingProvider) (int, error) {
	vec, err := provider.EmbedSingle(ctx, "dimension probe")
	if err != nil {
		return 0, errors.ErrRAGEmbedding.WithMessagef("probe %s dimension", provider.Name()).WithCause(err)
	}
	if len(vec) == 0 {
		return 0, errors.ErrRAGEmbedding.WithMessagef("%s returned an empty vector", provider.Name())
	}
	return len(vec), nil
}

func (e *ProviderEmbedder) Dimension() int {
	return e.dimension
}

func (e *ProviderEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, errors.ErrRAGEmbedding.WithMessagef("embed query with %s", e.provider.Name()).WithCause(err)
	}
	if err := e.checkDimension(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *ProviderEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	tasks := make([]func(ctx context.Context) error, 0, (len(texts)+e.batchSize-1)/e.batchSize)
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		tasks = append(tasks, func(ctx context.Context) error {
			return e.embedBatch(ctx, texts[start:end], out[start:end])
		})
	}

	var err error
	if e.pool == nil || len(tasks) == 1 {
		for _, task := range tasks {
			if err = task(ctx); err != nil {
				break
			}
		}
	} else {
		err = e.pool.Run(ctx, tasks...)
	}
	if err != nil {
		if errors.IsCode(err, errors.ErrRAGEmbedding.Code) || errors.IsCode(err, errors.ErrRAGConfiguration.Code) {
			return nil, err
		}
		return nil, errors.ErrRAGEmbedding.WithMessagef("embed %d texts", len(texts)).WithCause(err)
	}
	return out, nil
}

// embedBatch 对一个子批次向量化，结果写入 dst（与 batch 等长）。
func (e *ProviderEmbedder) embedBatch(ctx context.Context, batch []string, dst [][]float32) error {
	vecs, err := e.provider.Embed(ctx, batch)
	if err != nil {
		return errors.ErrRAGEmbedding.WithMessagef("embed %d texts with %s", len(batch), e.provider.Name()).WithCause(err)
	}
	if len(vecs) != len(batch) {
		return errors.ErrRAGEmbedding.WithMessagef("%s returned %d vectors for %d texts", e.provider.Name(), len(vecs), len(batch))
	}
	for i, v := range vecs {
		if err := e.checkDimension(v); err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func (e *ProviderEmbedder) checkDimension(vec []float32) error {
	if len(vec) != e.dimension {
		return errors.ErrRAGConfiguration.WithMessagef(
			"embedding has dimension %d, expected %d", len(vec), e.dimension)
	}
	return nil
}
