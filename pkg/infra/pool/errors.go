// Package pool wraps ants goroutine pools with statistics and a fan-out helper.
package pool

import "errors"

var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("池已关闭")

	// ErrPoolOverload 池已满
	ErrPoolOverload = errors.New("池已满")

	// ErrInvalidPoolConfig 无效的池配置
	ErrInvalidPoolConfig = errors.New("无效的池配置")
)
