// Package ollama 提供 Ollama LLM 供应商实现。
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/httpclient"
)

const ProviderName = "ollama"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	EmbedModel string        `json:"embed_model" mapstructure:"embed_model"`
	ChatModel  string        `json:"chat_model" mapstructure:"chat_model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		EmbedModel: "nomic-embed-text",
		ChatModel:  "llama3.2",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
	}
}

// Provider Ollama 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 从配置 map 创建 Ollama 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
func NewProviderWithConfig(cfg *Config, opts ...httpclient.Option) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries, opts...),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/api/embed", embedRequest{
		Model: p.config.EmbedModel,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: 创建请求失败: %w", err)
	}

	var resp embedResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return nil, fmt.Errorf("ollama: embed 请求失败: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: 期望 %d 个向量，实际返回 %d 个", len(texts), len(resp.Embeddings))
	}

	return resp.Embeddings, nil
}

// EmbedSingle 为单个文本生成向量嵌入。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Chat 进行多轮对话。
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.ChatOption) (string, error) {
	o := llm.ApplyChatOptions(opts...)

	body := chatRequest{
		Model:    p.config.ChatModel,
		Messages: make([]chatMessage, len(messages)),
	}
	for i, m := range messages {
		body.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	// Ollama 通过 options 传递采样参数
	options := map[string]any{}
	if o.MaxTokens > 0 {
		options["num_predict"] = o.MaxTokens
	}
	if o.Temperature != nil {
		options["temperature"] = *o.Temperature
	}
	if len(options) > 0 {
		body.Options = options
	}

	req, err := httpclient.NewJSONRequest(ctx, http.MethodPost, p.config.BaseURL+"/api/chat", body)
	if err != nil {
		return "", fmt.Errorf("ollama: 创建请求失败: %w", err)
	}

	var resp chatResponse
	if err := p.client.DoJSON(req, &resp); err != nil {
		return "", fmt.Errorf("ollama: chat 请求失败: %w", err)
	}
	return resp.Message.Content, nil
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string, opts ...llm.ChatOption) (string, error) {
	return p.Chat(ctx, llm.BuildMessages(prompt, systemPrompt), opts...)
}
