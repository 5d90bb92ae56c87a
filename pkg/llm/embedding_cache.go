package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-rag/pkg/utils/json"
)

// EmbeddingCacheConfig Embedding 缓存配置。
type EmbeddingCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
	// Namespace 参与键计算，通常为模型标识，避免不同模型的向量互相覆盖。
	Namespace string
}

// DefaultEmbeddingCacheConfig 返回默认的 Embedding 缓存配置。
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       time.Hour,
		KeyPrefix: "rag:emb:",
	}
}

// CachedEmbeddingProvider 为 EmbeddingProvider 增加 Redis 缓存。
// Redis 故障只记录日志并回退到底层供应商。
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    goredis.UniversalClient
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider 创建带缓存的 Embedding Provider。redis 为 nil 时直接透传。
func NewCachedEmbeddingProvider(provider EmbeddingProvider, redis goredis.UniversalClient, config *EmbeddingCacheConfig) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// CacheKey 返回 text 对应的缓存键。
func (c *CachedEmbeddingProvider) CacheKey(text string) string {
	hash := sha256.Sum256([]byte(c.config.Namespace + "\x00" + text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// EmbedSingle 生成单个文本的 Embedding（带缓存）。
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Embed 批量生成 Embedding。命中的条目取自缓存，其余条目一次性交给底层供应商。
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.redis == nil || len(texts) == 0 {
		return c.provider.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.CacheKey(text)
	}

	embeddings := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))

	values, err := c.redis.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warnw("redis mget error, falling back to provider", "error", err.Error())
		values = make([]any, len(texts))
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			logger.Warnw("failed to unmarshal cached embedding", "error", err.Error(), "key", keys[i])
			missing = append(missing, i)
			continue
		}
		embeddings[i] = vec
	}

	if len(missing) == 0 {
		logger.Debugw("all embeddings from cache", "total", len(texts))
		return embeddings, nil
	}

	uncached := make([]string, len(missing))
	for j, idx := range missing {
		uncached[j] = texts[idx]
	}
	fresh, err := c.provider.Embed(ctx, uncached)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(uncached) {
		// 交给上层做数量校验
		return fresh, nil
	}

	pipe := c.redis.Pipeline()
	for j, idx := range missing {
		embeddings[idx] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[idx], data, c.config.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warnw("failed to cache embeddings", "error", err.Error(), "count", len(missing))
	}

	logger.Debugw("embedding cache", "total", len(texts), "misses", len(missing))
	return embeddings, nil
}

// Name 返回底层 provider 的名称。
func (c *CachedEmbeddingProvider) Name() string {
	return c.provider.Name() + "-cached"
}
