// Package resilience 提供重试策略与熔断器。
//
// RetryPolicy 是一个显式的策略对象：启动时的存储健康检查、LLM 调用重试都通过它
// 执行，等待点是可被 context 取消的 select。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
)

// ErrMaxAttempts 重试次数耗尽。返回的错误同时包装最后一次失败的原因。
var ErrMaxAttempts = errors.New("max retry attempts reached")

// RetryPolicy 重试策略。
type RetryPolicy struct {
	// MaxAttempts 最大尝试次数（包括首次调用）。
	MaxAttempts int
	// InitialDelay 首次重试前的等待时间。
	InitialDelay time.Duration
	// MaxDelay 等待时间上限，0 表示不限制。
	MaxDelay time.Duration
	// Multiplier 延迟倍增因子，1 表示固定间隔。
	Multiplier float64
	// Retryable 判断错误是否可重试，nil 表示全部可重试。
	Retryable func(error) bool
}

// DefaultRetryPolicy 返回指数退避的默认策略。
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// FixedRetryPolicy 返回固定间隔的策略。
func FixedRetryPolicy(attempts int, delay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  attempts,
		InitialDelay: delay,
		Multiplier:   1,
	}
}

// Delay 返回第 attempt 次失败后（从 1 开始）的等待时间。
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		if p.Multiplier <= 1 {
			break
		}
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxDelay > 0 && d > p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do 按策略执行 fn，直到成功、遇到不可重试错误、次数耗尽或 ctx 结束。
// ctx 结束时返回 ctx.Err()；次数耗尽时返回包装了 ErrMaxAttempts 和最后一次错误的错误。
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			logger.Debugw("error is not retryable", "error", err.Error())
			return err
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		logger.Debugw("retrying after delay",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay.String(),
			"error", err.Error(),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, attempts, lastErr)
}
