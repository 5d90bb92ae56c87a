// Package cache defines the embedding cache options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
	redisopts "github.com/kart-io/sentinel-rag/pkg/options/redis"
)

// Options embedding 缓存配置。
type Options struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 创建默认缓存配置。缓存默认关闭。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       time.Hour,
		KeyPrefix: "rag:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags 注册缓存 flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "cache")...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable the Redis embedding cache")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Cache TTL duration")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Cache key prefix")
	o.Redis.AddFlags(fs, append(prefixes, "cache")...)
}

// Validate 校验配置。未启用时跳过 Redis 校验。
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}
	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive"))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("cache.key-prefix is required"))
	}
	return append(errs, o.Redis.Validate()...)
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
