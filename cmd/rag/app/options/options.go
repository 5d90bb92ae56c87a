// Package options contains flags and options for initializing the RAG server.
package options

import (
	"errors"
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	cliflag "github.com/kart-io/sentinel-rag/pkg/app/cliflag"
	genericoptions "github.com/kart-io/sentinel-rag/pkg/options"
	cacheopts "github.com/kart-io/sentinel-rag/pkg/options/cache"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/server/http"
	storeopts "github.com/kart-io/sentinel-rag/pkg/options/store"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// StoreOptions selects and configures the vector store backend.
	StoreOptions *storeopts.Options `json:"store" mapstructure:"store"`

	// MilvusOptions is used when the store backend is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains the answer generation provider. Empty provider disables it.
	ChatOptions *llmopts.ChatOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains chunking, retrieval and startup configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// CacheOptions contains the embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8000"

	tracingOpts := tracingopts.NewOptions()
	tracingOpts.ServiceName = ragsvc.Name

	return &ServerOptions{
		HTTPOptions:      httpOpts,
		LogOptions:       logopts.NewOptions(),
		StoreOptions:     storeopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RAGOptions:       ragopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		TracingOptions:   tracingOpts,
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	completers := []struct {
		name string
		fn   func() error
	}{
		{"http", o.HTTPOptions.Complete},
		{"log", o.LogOptions.Complete},
		{"store", o.StoreOptions.Complete},
		{"milvus", o.MilvusOptions.Complete},
		{"embedding", o.EmbeddingOptions.Complete},
		{"chat", o.ChatOptions.Complete},
		{"rag", o.RAGOptions.Complete},
		{"cache", o.CacheOptions.Complete},
		{"tracing", o.TracingOptions.Complete},
	}
	for _, c := range completers {
		if err := c.fn(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := genericoptions.ValidateAll(
		o.HTTPOptions,
		o.LogOptions,
		o.StoreOptions,
		o.RAGOptions,
		o.CacheOptions,
		o.TracingOptions,
	)
	if o.StoreOptions.Backend == storeopts.BackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	errs = append(errs, o.EmbeddingOptions.Validate("embedding")...)
	errs = append(errs, o.ChatOptions.Validate()...)
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown-timeout must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a ragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragsvc.Config, error) {
	return &ragsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		StoreOptions:     o.StoreOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RAGOptions:       o.RAGOptions,
		CacheOptions:     o.CacheOptions,
		TracingOptions:   o.TracingOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
