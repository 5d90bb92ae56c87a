package llm

import (
	"context"
	"errors"

	"github.com/kart-io/sentinel-rag/pkg/infra/resilience"
)

// ResilientChatProvider 为 ChatProvider 增加重试与熔断。
// 熔断打开时直接返回 resilience.ErrCircuitBreakerOpen，不再访问后端。
type ResilientChatProvider struct {
	provider ChatProvider
	retry    *resilience.RetryPolicy
	cb       *resilience.CircuitBreaker
}

var _ ChatProvider = (*ResilientChatProvider)(nil)

// NewResilientChatProvider 创建带韧性功能的 Chat Provider。nil 参数使用默认配置。
func NewResilientChatProvider(provider ChatProvider, retry *resilience.RetryPolicy, cbConfig *resilience.CircuitBreakerConfig) *ResilientChatProvider {
	if retry == nil {
		retry = resilience.DefaultRetryPolicy()
	}
	if retry.Retryable == nil {
		retry.Retryable = func(err error) bool {
			return !errors.Is(err, resilience.ErrCircuitBreakerOpen) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		}
	}
	return &ResilientChatProvider{
		provider: provider,
		retry:    retry,
		cb:       resilience.NewCircuitBreaker("chat:"+provider.Name(), cbConfig),
	}
}

// Chat 进行多轮对话（带重试和熔断）。
func (r *ResilientChatProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	var out string
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		return r.cb.Execute(func() error {
			var err error
			out, err = r.provider.Chat(ctx, messages, opts...)
			return err
		})
	})
	return out, err
}

// Generate 单轮生成（带重试和熔断）。
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt, systemPrompt string, opts ...ChatOption) (string, error) {
	return r.Chat(ctx, BuildMessages(prompt, systemPrompt), opts...)
}

// Name 返回底层供应商名称。
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name()
}

// BreakerState 返回熔断器当前状态。
func (r *ResilientChatProvider) BreakerState() resilience.State {
	return r.cb.State()
}
