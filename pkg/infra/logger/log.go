package logger

import (
	"context"
	"errors"
	"fmt"
)

// Debugw logs at debug level with the context fields.
func Debugw(ctx context.Context, msg string, keysAndValues ...any) {
	GetLogger(ctx).Debugw(msg, keysAndValues...)
}

// Infow logs at info level with the context fields.
func Infow(ctx context.Context, msg string, keysAndValues ...any) {
	GetLogger(ctx).Infow(msg, keysAndValues...)
}

// Warnw logs at warn level with the context fields.
func Warnw(ctx context.Context, msg string, keysAndValues ...any) {
	GetLogger(ctx).Warnw(msg, keysAndValues...)
}

// Errorw logs err at error level with its type and unwrapped chain.
func Errorw(ctx context.Context, msg string, err error, keysAndValues ...any) {
	fields := append([]any{
		"error", err.Error(),
		"error_type", fmt.Sprintf("%T", err),
	}, keysAndValues...)
	if chain := UnwrapError(err); len(chain) > 1 {
		fields = append(fields, "error_chain", chain)
	}
	GetLogger(ctx).Errorw(msg, fields...)
}

// UnwrapError follows single-error Unwrap links and returns every message.
func UnwrapError(err error) []string {
	var messages []string
	for err != nil {
		messages = append(messages, err.Error())
		err = errors.Unwrap(err)
	}
	return messages
}
