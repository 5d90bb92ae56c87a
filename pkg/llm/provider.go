// Package llm 提供统一的 LLM 供应商抽象层。
// Embedding 和 Chat 可以使用不同供应商的模型，供应商通过注册表按名称创建。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，输出顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Chat 进行多轮对话。
	Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error)

	// Generate 根据提示生成文本（单轮），systemPrompt 为空时不发送系统消息。
	Generate(ctx context.Context, prompt string, systemPrompt string, opts ...ChatOption) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BuildMessages 组装单轮对话消息。
func BuildMessages(prompt, systemPrompt string) []Message {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return append(messages, Message{Role: RoleUser, Content: prompt})
}

// ChatOptions 单次调用的生成参数。零值表示使用供应商默认值。
type ChatOptions struct {
	MaxTokens   int
	Temperature *float64
}

// ChatOption 修改 ChatOptions。
type ChatOption func(*ChatOptions)

// WithMaxTokens 限制生成的最大 token 数。
func WithMaxTokens(n int) ChatOption {
	return func(o *ChatOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature 设置采样温度。
func WithTemperature(t float64) ChatOption {
	return func(o *ChatOptions) {
		o.Temperature = &t
	}
}

// ApplyChatOptions 将 opts 依次应用到默认值上。
func ApplyChatOptions(opts ...ChatOption) ChatOptions {
	var o ChatOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

var registry = &providerRegistry{
	providers: make(map[string]ProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// RegisterProvider 注册供应商工厂，重复注册会覆盖旧值。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// NewProvider 根据名称创建完整供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (registered: %v)", name, ListProviders())
	}
	return factory(config)
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return NewProvider(name, config)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return NewProvider(name, config)
}

// ListProviders 按名称排序列出已注册的供应商。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
