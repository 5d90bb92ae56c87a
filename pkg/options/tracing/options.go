// Package tracing defines OpenTelemetry tracing options.
package tracing

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// SamplerType defines the type of sampler to use.
type SamplerType string

const (
	// SamplerAlwaysOn samples all traces.
	SamplerAlwaysOn SamplerType = "always_on"
	// SamplerAlwaysOff never samples traces.
	SamplerAlwaysOff SamplerType = "always_off"
	// SamplerRatio samples traces based on a ratio.
	SamplerRatio SamplerType = "ratio"
	// SamplerParentBased uses the parent span's sampling decision.
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType defines the type of exporter to use.
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp-grpc"
	ExporterOTLPHTTP ExporterType = "otlp-http"
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	// Enabled enables or disables tracing.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName is the name of the service. Filled from the application name when empty.
	ServiceName string `json:"service-name" mapstructure:"service-name"`

	// Environment is the deployment environment (e.g., production, development).
	Environment string `json:"environment" mapstructure:"environment"`

	// Exporter specifies which exporter to use.
	Exporter ExporterType `json:"exporter" mapstructure:"exporter"`

	// Endpoint is the OTLP exporter endpoint, e.g. "localhost:4317" for gRPC.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// Sampler specifies the sampling strategy.
	Sampler SamplerType `json:"sampler" mapstructure:"sampler"`

	// SampleRatio is the sampling ratio (0.0 to 1.0) for ratio and parent based sampling.
	SampleRatio float64 `json:"sample-ratio" mapstructure:"sample-ratio"`

	// BatchTimeout is the maximum time to wait before exporting a batch.
	BatchTimeout time.Duration `json:"batch-timeout" mapstructure:"batch-timeout"`
}

var _ options.IOptions = (*Options)(nil)

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		Environment:  "development",
		Exporter:     ExporterOTLPGRPC,
		Endpoint:     "localhost:4317",
		Insecure:     true,
		Sampler:      SamplerParentBased,
		SampleRatio:  1.0,
		BatchTimeout: 5 * time.Second,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(append(prefixes, "tracing")...)
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable OpenTelemetry tracing")
	fs.StringVar(&o.ServiceName, p+"service-name", o.ServiceName, "Service name reported with spans")
	fs.StringVar(&o.Environment, p+"environment", o.Environment, "Deployment environment")
	fs.StringVar((*string)(&o.Exporter), p+"exporter", string(o.Exporter), "Exporter (otlp-grpc, otlp-http, stdout, noop)")
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "OTLP exporter endpoint")
	fs.BoolVar(&o.Insecure, p+"insecure", o.Insecure, "Disable TLS for the OTLP connection")
	fs.StringVar((*string)(&o.Sampler), p+"sampler", string(o.Sampler), "Sampler (always_on, always_off, ratio, parent_based)")
	fs.Float64Var(&o.SampleRatio, p+"sample-ratio", o.SampleRatio, "Sampling ratio (0.0 to 1.0)")
	fs.DurationVar(&o.BatchTimeout, p+"batch-timeout", o.BatchTimeout, "Maximum time to wait before exporting a batch")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if !o.Enabled {
		return nil
	}

	var errs []error
	switch o.Exporter {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing.endpoint is required for exporter %s", o.Exporter))
		}
	case ExporterStdout, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is invalid", o.Exporter))
	}

	switch o.Sampler {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		errs = append(errs, fmt.Errorf("tracing.sampler %q is invalid", o.Sampler))
	}

	if o.SampleRatio < 0.0 || o.SampleRatio > 1.0 {
		errs = append(errs, fmt.Errorf("tracing.sample-ratio must be between 0.0 and 1.0, got %f", o.SampleRatio))
	}
	if o.BatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracing.batch-timeout must be positive"))
	}
	return errs
}

// Complete fills in any missing values with defaults.
func (o *Options) Complete() error {
	if o.Sampler == "" {
		o.Sampler = SamplerParentBased
	}
	return nil
}
