// Package logger defines the logging options and initialises the global kart-io logger.
package logger

import (
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// Options 日志配置。
type Options struct {
	Engine            string   `json:"engine" mapstructure:"engine"`
	Level             string   `json:"level" mapstructure:"level"`
	Format            string   `json:"format" mapstructure:"format"`
	OutputPaths       []string `json:"output-paths" mapstructure:"output-paths"`
	Development       bool     `json:"development" mapstructure:"development"`
	DisableCaller     bool     `json:"disable-caller" mapstructure:"disable-caller"`
	DisableStacktrace bool     `json:"disable-stacktrace" mapstructure:"disable-stacktrace"`
	OTLPEndpoint      string   `json:"otlp-endpoint" mapstructure:"otlp-endpoint"`

	initialFields map[string]any
}

var _ options.IOptions = (*Options)(nil)

// NewOptions 返回默认日志配置。
func NewOptions() *Options {
	def := option.DefaultLogOption()
	return &Options{
		Engine:      def.Engine,
		Level:       def.Level,
		Format:      def.Format,
		OutputPaths: def.OutputPaths,
	}
}

// AddFlags 注册日志相关 flag。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "log")...)
	fs.StringVar(&o.Engine, p+"engine", o.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Level, p+"level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, p+"format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, p+"output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, p+"development", o.Development, "Enable development mode (caller info and stacktraces)")
	fs.BoolVar(&o.DisableCaller, p+"disable-caller", o.DisableCaller, "Disable caller detection")
	fs.BoolVar(&o.DisableStacktrace, p+"disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture")
	fs.StringVar(&o.OTLPEndpoint, p+"otlp-endpoint", o.OTLPEndpoint, "OTLP endpoint for log export")
}

// Validate 校验日志配置。
func (o *Options) Validate() []error {
	var errs []error
	switch strings.ToLower(o.Engine) {
	case "zap", "slog":
	default:
		errs = append(errs, fmt.Errorf("log.engine must be zap or slog, got %q", o.Engine))
	}
	switch strings.ToUpper(o.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR", "FATAL":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid", o.Level))
	}
	switch strings.ToLower(o.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", o.Format))
	}
	if len(o.OutputPaths) == 0 {
		errs = append(errs, fmt.Errorf("log.output-paths must not be empty"))
	}
	return errs
}

// Complete 补全默认值。
func (o *Options) Complete() error {
	if len(o.OutputPaths) == 0 {
		o.OutputPaths = []string{"stdout"}
	}
	return nil
}

// AddInitialField 添加每条日志都会携带的字段。
func (o *Options) AddInitialField(key string, value any) *Options {
	if o.initialFields == nil {
		o.initialFields = make(map[string]any)
	}
	o.initialFields[key] = value
	return o
}

// ToLogOption 转换为 kart-io/logger 的配置。
func (o *Options) ToLogOption() *option.LogOption {
	opt := option.DefaultLogOption()
	opt.Engine = o.Engine
	opt.Level = o.Level
	opt.Format = o.Format
	opt.OutputPaths = o.OutputPaths
	opt.Development = o.Development
	opt.DisableCaller = o.DisableCaller
	opt.DisableStacktrace = o.DisableStacktrace
	opt.OTLPEndpoint = o.OTLPEndpoint
	for k, v := range o.initialFields {
		opt.AddInitialField(k, v)
	}
	return opt
}

// Init 创建 logger 并设置为全局 logger。
func (o *Options) Init() error {
	l, err := logger.New(o.ToLogOption())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger.SetGlobal(l)
	return nil
}
