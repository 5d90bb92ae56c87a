package biz

import (
	"context"

	"github.com/kart-io/sentinel-rag/pkg/llm"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Answerer 根据检索上下文生成答案。
type Answerer interface {
	Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error)
}

// LLMAnswerer 基于 llm.ChatProvider 的 Answerer，错误统一转换为 ErrRAGAnswerer。
type LLMAnswerer struct {
	provider llm.ChatProvider
}

var _ Answerer = (*LLMAnswerer)(nil)

// NewAnswerer 创建 Answerer。熔断与重试由传入的 provider 负责（见 llm.ResilientChatProvider）。
func NewAnswerer(provider llm.ChatProvider) *LLMAnswerer {
	return &LLMAnswerer{provider: provider}
}

func (a *LLMAnswerer) Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (string, error) {
	out, err := a.provider.Generate(ctx, prompt, systemPrompt,
		llm.WithMaxTokens(maxTokens),
		llm.WithTemperature(temperature),
	)
	if err != nil {
		return "", errors.ErrRAGAnswerer.WithMessagef("generate with %s", a.provider.Name()).WithCause(err)
	}
	return out, nil
}
