package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/textutil"
)

type memoryIndex struct {
	dimension int
	metric    Metric
	order     []string
	vectors   map[string]StoredVector
}

// MemoryStore 进程内暴力检索实现，用于开发与测试。
type MemoryStore struct {
	mu      sync.RWMutex
	indices map[string]*memoryIndex
	closed  bool
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indices: make(map[string]*memoryIndex)}
}

var errStoreClosed = errors.New("store is closed")

// lookup 调用方需持有锁。
func (s *MemoryStore) lookup(op, name string) (*memoryIndex, error) {
	if s.closed {
		return nil, storeError(op, name, errStoreClosed)
	}
	idx, ok := s.indices[name]
	if !ok {
		return nil, storeError(op, name, fmt.Errorf("index not found"))
	}
	return idx, nil
}

func (s *MemoryStore) EnsureIndex(_ context.Context, name string, dimension int, metric Metric) error {
	if dimension <= 0 {
		return storeError("create index", name, fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[name]; ok {
		return nil
	}
	s.indices[name] = &memoryIndex{
		dimension: dimension,
		metric:    metric,
		vectors:   make(map[string]StoredVector),
	}
	return nil
}

// Insert 先校验整批数据，全部通过后才写入；相同 ID 覆盖旧值。
func (s *MemoryStore) Insert(_ context.Context, index string, vectors []StoredVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.lookup("insert into", index)
	if err != nil {
		return err
	}
	for i, v := range vectors {
		if len(v.Values) != idx.dimension {
			return storeError("insert into", index, fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v.Values), idx.dimension))
		}
		if v.ID == "" {
			return storeError("insert into", index, fmt.Errorf("vector %d has empty id", i))
		}
	}

	for _, v := range vectors {
		if _, exists := idx.vectors[v.ID]; !exists {
			idx.order = append(idx.order, v.ID)
		}
		idx.vectors[v.ID] = StoredVector{
			ID:       v.ID,
			Values:   append([]float32(nil), v.Values...),
			Metadata: maps.Clone(v.Metadata),
		}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, index string, vector []float32, k int, filter map[string]any) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.lookup("search", index)
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.dimension {
		return nil, storeError("search", index, fmt.Errorf("query has dimension %d, index expects %d", len(vector), idx.dimension))
	}
	if k <= 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(idx.vectors))
	for _, id := range idx.order {
		v := idx.vectors[id]
		if !matches(v.Metadata, filter) {
			continue
		}
		results = append(results, SearchResult{
			ID:       v.ID,
			Score:    score(idx.metric, vector, v.Values),
			Metadata: maps.Clone(v.Metadata),
		})
	}

	// l2 距离越小越好，其余越大越好；稳定排序保证同分时按写入顺序。
	sort.SliceStable(results, func(i, j int) bool {
		if idx.metric == MetricL2 {
			return results[i].Score < results[j].Score
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) HealthCheck(context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

func (s *MemoryStore) Stats(_ context.Context, index string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.lookup("stats", index)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":          index,
		"dimension":     idx.dimension,
		"metric":        string(idx.metric),
		"total_vectors": len(idx.vectors),
		"backend":       "memory",
	}, nil
}

func (s *MemoryStore) ListIndices(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indices))
	for name := range s.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func matches(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue 比较元数据值，数值类型统一按 float64 比较（JSON 解码后的数字均为 float64）。
func equalValue(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func score(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricL2:
		return textutil.L2Distance(a, b)
	case MetricIP:
		return textutil.InnerProduct(a, b)
	default:
		return textutil.CosineSimilarity(a, b)
	}
}
