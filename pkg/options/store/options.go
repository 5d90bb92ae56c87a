// Package store defines the vector store backend options.
package store

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// Backend names.
const (
	BackendEndee  = "endee"
	BackendMilvus = "milvus"
	BackendMemory = "memory"
)

// EndeeOptions Endee 向量服务 REST 客户端配置。
type EndeeOptions struct {
	URL        string        `json:"url" mapstructure:"url"`
	AuthToken  string        `json:"-" mapstructure:"auth-token"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`
}

// Options 向量存储配置。
type Options struct {
	// Backend 后端类型：endee, milvus, memory。
	Backend string        `json:"backend" mapstructure:"backend"`
	Endee   *EndeeOptions `json:"endee" mapstructure:"endee"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 返回默认配置。
func NewOptions() *Options {
	return &Options{
		Backend: BackendEndee,
		Endee: &EndeeOptions{
			URL:        "http://localhost:8080",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
	}
}

// AddFlags 注册存储 flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "store")...)
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Vector store backend (endee, milvus, memory)")
	fs.StringVar(&o.Endee.URL, p+"endee.url", o.Endee.URL, "Endee server base URL")
	fs.StringVar(&o.Endee.AuthToken, p+"endee.auth-token", o.Endee.AuthToken, "Endee Authorization header value")
	fs.DurationVar(&o.Endee.Timeout, p+"endee.timeout", o.Endee.Timeout, "Endee request timeout")
	fs.IntVar(&o.Endee.MaxRetries, p+"endee.max-retries", o.Endee.MaxRetries, "Endee max attempts on transport errors and 5xx")
}

// Validate 校验配置。
func (o *Options) Validate() []error {
	var errs []error
	switch o.Backend {
	case BackendEndee:
		u, err := url.Parse(o.Endee.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("store.endee.url %q is not an absolute URL", o.Endee.URL))
		}
		if o.Endee.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("store.endee.timeout must be positive"))
		}
	case BackendMilvus, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of endee, milvus, memory, got %q", o.Backend))
	}
	return errs
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	if o.Endee == nil {
		o.Endee = NewOptions().Endee
	}
	if o.Endee.MaxRetries <= 0 {
		o.Endee.MaxRetries = 1
	}
	return nil
}
