package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/infra/resilience"
)

type flakyChat struct {
	mockProvider
	failures int
	calls    int
}

func (f *flakyChat) Chat(ctx context.Context, msgs []Message, opts ...ChatOption) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("upstream 503")
	}
	return f.mockProvider.Chat(ctx, msgs, opts...)
}

func TestResilientChatProvider_Retries(t *testing.T) {
	inner := &flakyChat{mockProvider: mockProvider{name: "openai"}, failures: 2}
	r := NewResilientChatProvider(inner, resilience.FixedRetryPolicy(3, time.Millisecond), nil)

	out, err := r.Generate(context.Background(), "q", "sys", WithMaxTokens(10))
	require.NoError(t, err)
	assert.Equal(t, "mock response", out)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 10, inner.lastOpts.MaxTokens)
	assert.Equal(t, "openai", r.Name())
}

func TestResilientChatProvider_BreakerOpens(t *testing.T) {
	inner := &flakyChat{mockProvider: mockProvider{name: "openai"}, failures: 100}
	r := NewResilientChatProvider(inner,
		resilience.FixedRetryPolicy(1, time.Millisecond),
		&resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour, HalfOpenMaxCalls: 1},
	)

	for i := 0; i < 2; i++ {
		_, err := r.Generate(context.Background(), "q", "")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, r.BreakerState())

	_, err := r.Generate(context.Background(), "q", "")
	assert.ErrorIs(t, err, resilience.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, inner.calls)
}
