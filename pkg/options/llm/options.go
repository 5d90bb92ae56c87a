// Package llm defines embedding and chat provider options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/options"
)

// ProviderOptions LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（ollama, openai）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥（OpenAI 等需要）。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`
}

func newProviderOptions(model string) ProviderOptions {
	return ProviderOptions{
		Provider:   "ollama",
		BaseURL:    "http://localhost:11434",
		Model:      model,
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// NewEmbeddingOptions 创建默认 embedding 配置。
func NewEmbeddingOptions() *ProviderOptions {
	o := newProviderOptions("nomic-embed-text")
	return &o
}

// AddFlags 注册供应商 flag，section 为 embedding 或 chat。
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, section string, prefixes ...string) {
	p := options.Join(append(prefixes, section)...)
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name (ollama, openai)")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key (openai and compatible services)")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Request timeout")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Max retries on transient failures")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "Organization ID (openai, optional)")
}

// Validate 校验配置，section 用于错误信息。
func (o *ProviderOptions) Validate(section string) []error {
	var errs []error
	if o.Provider == "" {
		return []error{fmt.Errorf("%s.provider is required", section)}
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s.base-url is required", section))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", section))
	}
	// OpenAI 供应商需要 API key
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api-key is required for openai provider", section))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", section))
	}
	return errs
}

// Complete 补全默认值。
func (o *ProviderOptions) Complete() error {
	if o.Provider == "openai" && o.BaseURL == "http://localhost:11434" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	return nil
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// ChatOptions chat 供应商配置，Provider 为空时不启用回答生成。
type ChatOptions struct {
	ProviderOptions `mapstructure:",squash"`

	// Temperature 采样温度。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxTokens 单次回答的最大 token 数。
	MaxTokens int `json:"max-tokens" mapstructure:"max-tokens"`
}

// NewChatOptions 创建默认 chat 配置。
func NewChatOptions() *ChatOptions {
	return &ChatOptions{
		ProviderOptions: newProviderOptions("llama3.2"),
		Temperature:     0.7,
		MaxTokens:       500,
	}
}

// Enabled 报告是否配置了 chat 供应商。
func (o *ChatOptions) Enabled() bool {
	return o.Provider != ""
}

// AddFlags 注册 chat flag。
func (o *ChatOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	o.ProviderOptions.AddFlags(fs, "chat", prefixes...)
	p := options.Join(append(prefixes, "chat")...)
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature for answer generation")
	fs.IntVar(&o.MaxTokens, p+"max-tokens", o.MaxTokens, "Maximum tokens per generated answer")
}

// Validate 校验 chat 配置。未启用时跳过。
func (o *ChatOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}
	errs := o.ProviderOptions.Validate("chat")
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("chat.temperature must be within [0, 2]"))
	}
	if o.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("chat.max-tokens must be positive"))
	}
	return errs
}
