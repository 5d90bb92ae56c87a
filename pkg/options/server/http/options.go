// Package http defines the HTTP server options.
package http

import (
	"fmt"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// Options HTTP 服务配置。
type Options struct {
	Addr             string        `json:"addr" mapstructure:"addr"`
	Mode             string        `json:"mode" mapstructure:"mode"`
	ReadTimeout      time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout     time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	IdleTimeout      time.Duration `json:"idle-timeout" mapstructure:"idle-timeout"`
	RequestTimeout   time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
	MaxUploadSize    int64         `json:"max-upload-size" mapstructure:"max-upload-size"`
	CORSAllowOrigins []string      `json:"cors-allow-origins" mapstructure:"cors-allow-origins"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 返回默认配置。
func NewOptions() *Options {
	return &Options{
		Addr:             ":8000",
		Mode:             gin.ReleaseMode,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     120 * time.Second,
		IdleTimeout:      120 * time.Second,
		RequestTimeout:   60 * time.Second,
		MaxUploadSize:    32 << 20,
		CORSAllowOrigins: []string{"*"},
	}
}

// AddFlags 注册 HTTP 服务 flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "http")...)
	fs.StringVar(&o.Addr, p+"addr", o.Addr, "HTTP listen address")
	fs.StringVar(&o.Mode, p+"mode", o.Mode, "Gin mode (debug|release|test)")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.IdleTimeout, p+"idle-timeout", o.IdleTimeout, "HTTP idle timeout")
	fs.DurationVar(&o.RequestTimeout, p+"request-timeout", o.RequestTimeout, "Per-request deadline propagated to the pipeline")
	fs.Int64Var(&o.MaxUploadSize, p+"max-upload-size", o.MaxUploadSize, "Maximum multipart upload size in bytes")
	fs.StringSliceVar(&o.CORSAllowOrigins, p+"cors-allow-origins", o.CORSAllowOrigins, "Allowed CORS origins")
}

// Validate 校验配置。
func (o *Options) Validate() []error {
	var errs []error
	if _, _, err := net.SplitHostPort(o.Addr); err != nil {
		errs = append(errs, fmt.Errorf("http.addr %q is invalid: %w", o.Addr, err))
	}
	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("http.mode %q is invalid", o.Mode))
	}
	if o.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.request-timeout must not be negative"))
	}
	if o.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("http.max-upload-size must be positive"))
	}
	return errs
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	if len(o.CORSAllowOrigins) == 0 {
		o.CORSAllowOrigins = []string{"*"}
	}
	return nil
}
