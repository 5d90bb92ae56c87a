package store

import (
	"context"
	"fmt"

	"github.com/kart-io/sentinel-rag/pkg/component/milvus"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// MilvusStore 实现基于 Milvus 的向量存储，每个索引对应一个集合。
type MilvusStore struct {
	client *milvus.Client
}

var _ VectorStore = (*MilvusStore)(nil)

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

func (s *MilvusStore) EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error {
	mt, err := milvus.MetricType(string(metric))
	if err != nil {
		return storeError("create index", name, err)
	}
	err = s.client.EnsureCollection(ctx, &milvus.CollectionSchema{
		Name:        name,
		Description: "RAG document chunks",
		Dimension:   dimension,
		Metric:      mt,
	})
	if err != nil {
		return storeError("create index", name, err)
	}
	return nil
}

// Insert 写入并 flush，返回后数据即可检索。
func (s *MilvusStore) Insert(ctx context.Context, index string, vectors []StoredVector) error {
	if len(vectors) == 0 {
		return nil
	}

	ids := make([]string, len(vectors))
	values := make([][]float32, len(vectors))
	metadata := make([][]byte, len(vectors))
	dim := len(vectors[0].Values)
	for i, v := range vectors {
		if len(v.Values) != dim {
			return storeError("insert into", index, fmt.Errorf("vector %d has dimension %d, batch uses %d", i, len(v.Values), dim))
		}
		b, err := json.Marshal(v.Metadata)
		if err != nil {
			return storeError("insert into", index, fmt.Errorf("encode metadata of %s: %w", v.ID, err))
		}
		ids[i] = v.ID
		values[i] = v.Values
		metadata[i] = b
	}

	if err := s.client.Insert(ctx, index, ids, values, metadata); err != nil {
		return storeError("insert into", index, err)
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, index string, vector []float32, k int, filter map[string]any) ([]SearchResult, error) {
	expr, err := milvus.BuildFilter(filter)
	if err != nil {
		return nil, storeError("search", index, err)
	}

	hits, err := s.client.Search(ctx, index, vector, k, expr)
	if err != nil {
		return nil, storeError("search", index, err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		r := SearchResult{ID: h.ID, Score: float64(h.Score)}
		if len(h.Metadata) > 0 {
			if err := json.Unmarshal(h.Metadata, &r.Metadata); err != nil {
				return nil, storeError("search", index, fmt.Errorf("decode metadata of %s: %w", h.ID, err))
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *MilvusStore) HealthCheck(ctx context.Context) bool {
	return s.client.Ping(ctx) == nil
}

func (s *MilvusStore) Stats(ctx context.Context, index string) (map[string]any, error) {
	rows, err := s.client.GetCollectionStats(ctx, index)
	if err != nil {
		return nil, storeError("stats", index, err)
	}
	return map[string]any{
		"name":          index,
		"row_count":     rows,
		"total_vectors": rows,
		"backend":       "milvus",
	}, nil
}

func (s *MilvusStore) ListIndices(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, storeError("list indices", "", err)
	}
	return names, nil
}

// Close 由 storage.Manager 统一关闭 Milvus 连接，此处不重复关闭。
func (s *MilvusStore) Close(context.Context) error {
	return nil
}
