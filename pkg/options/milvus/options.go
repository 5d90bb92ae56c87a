// Package milvus defines the Milvus connection options.
package milvus

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// Options Milvus 连接配置。
type Options struct {
	Address  string        `json:"address" mapstructure:"address"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"-" mapstructure:"password"`
	Database string        `json:"database" mapstructure:"database"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 返回默认配置。
func NewOptions() *Options {
	return &Options{
		Address: "localhost:19530",
		Timeout: 30 * time.Second,
	}
}

// AddFlags 注册 Milvus flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "milvus")...)
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Milvus connect timeout")
}

// Validate 校验配置。
func (o *Options) Validate() []error {
	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus.address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus.timeout must be positive"))
	}
	return errs
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	return nil
}
