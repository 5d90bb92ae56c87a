package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// PreAlloc 是否预分配内存
	PreAlloc bool
	// Nonblocking 提交任务是否非阻塞（若池满则返回错误）
	Nonblocking bool
	// MaxBlockingTasks 当 Nonblocking=false 时，最大等待任务数（0 表示无限制）
	MaxBlockingTasks int
	// PanicHandler 恐慌处理函数
	PanicHandler func(any)
}

// DefaultPoolConfig 返回默认池配置
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       100,
		ExpiryDuration: 10 * time.Second,
	}
}

// EmbeddingPoolConfig 返回向量化子批次并发池配置。提交阻塞等待，保证所有子批次都会执行。
func EmbeddingPoolConfig(workers int) *Config {
	return &Config{
		Capacity:       workers,
		ExpiryDuration: 30 * time.Second,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name     string
	pool     *ants.Pool
	stats    counters
	closed   atomic.Bool
	closedMu sync.Mutex
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks int64 `json:"submitted_tasks"`
	CompletedTasks int64 `json:"completed_tasks"`
	FailedTasks    int64 `json:"failed_tasks"`
	RejectedTasks  int64 `json:"rejected_tasks"`
	PanicRecovered int64 `json:"panic_recovered"`
	Running        int   `json:"running"`
	Capacity       int   `json:"capacity"`
}

// NewPool creates a new worker pool with the given configuration.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}
	if config.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidPoolConfig, config.Capacity)
	}

	p := &Pool{name: name}

	panicHandler := config.PanicHandler
	if panicHandler == nil {
		panicHandler = func(r any) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}
	}

	ap, err := ants.NewPool(config.Capacity,
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(panicHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}
	p.pool = ap

	logger.Infow("Worker pool created", "name", name, "capacity", config.Capacity)
	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string {
	return p.name
}

// Submit 提交任务到池中执行
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.stats.submitted.Add(1)
	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.stats.panics.Add(1)
				p.stats.failed.Add(1)
				panic(r)
			}
			p.stats.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		p.stats.failed.Add(1)
		return err
	}
	return nil
}

// Run 在池中并发执行 tasks 并等待全部结束，返回第一个错误。
// 任一任务失败后 ctx 会被取消，尚未开始的任务不再执行。
// 任务内部的 panic 会被转换为错误，Run 本身不会 panic。
func (p *Pool) Run(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	setErr := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, task := range tasks {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					setErr(fmt.Errorf("task panic: %v", r))
				}
			}()
			if err := ctx.Err(); err != nil {
				setErr(err)
				return
			}
			if err := task(ctx); err != nil {
				setErr(err)
			}
		})
		if err != nil {
			wg.Done()
			setErr(err)
			break
		}
	}

	wg.Wait()
	return firstErr
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}
	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.submitted.Load(),
		CompletedTasks: p.stats.completed.Load(),
		FailedTasks:    p.stats.failed.Load(),
		RejectedTasks:  p.stats.rejected.Load(),
		PanicRecovered: p.stats.panics.Load(),
		Running:        p.pool.Running(),
		Capacity:       p.pool.Cap(),
	}
}
