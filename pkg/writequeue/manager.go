// Package writequeue serializes write operations per key
// Package writequeue 按 key 串行化写操作
//
// Every library owns one queue; all mutations of that library, from any
// connection or from an import run, execute one at a time in submission order.
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrWriteQueueFull 写队列已满
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed 写队列管理器已关闭
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout 写操作等待超时
	ErrWriteTimeout = errors.New("write operation timeout")

	errQueueStopped = errors.New("write queue stopped")
)

// Config 写队列配置
type Config struct {
	// QueueCapacity pending operations per key, default 100
	// QueueCapacity 每个 key 的队列容量，默认 100
	QueueCapacity int
	// WriteTimeout how long a caller waits for its operation, default 30s
	// WriteTimeout 调用方等待写操作完成的最长时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout idle queues are stopped after this, default 10m
	// IdleTimeout 队列空闲多久后回收，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

type writeOp struct {
	ctx    context.Context
	fn     func() error
	result chan error
}

// keyQueue 单个 key 的写队列
type keyQueue struct {
	key      string
	ch       chan writeOp
	lastUsed atomic.Int64
	closed   atomic.Bool
	workerWg sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	// mu 保证 stop 之后不会再有操作入队
	mu sync.Mutex
}

// enqueue 入队成功返回 nil，队列已停止返回 errQueueStopped
func (q *keyQueue) enqueue(op writeOp) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed.Load() {
		return errQueueStopped
	}
	select {
	case q.ch <- op:
		q.lastUsed.Store(time.Now().UnixNano())
		return nil
	default:
		return ErrWriteQueueFull
	}
}

func (q *keyQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed.Store(true)
	q.stopOnce.Do(func() { close(q.stopCh) })
}

// Manager 管理所有 key 的写队列
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[string]*keyQueue

	// retired 已停止但 worker 可能仍在排空的队列，新 worker 需等其退出
	retired sync.Map // map[string]*keyQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	cleanupWg   sync.WaitGroup
	cleanupDone chan struct{}
}

// New 创建写队列管理器，cfg 为 nil 时使用默认配置
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:      c,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))

	return m
}

// Execute runs fn on the key's worker and waits for its result.
// Operations on the same key run one at a time in FIFO order.
// Execute 在 key 对应的 worker 上执行 fn 并等待结果
func (m *Manager) Execute(ctx context.Context, key string, fn func() error) error {
	if m.IsClosed() {
		return ErrWriteQueueClosed
	}

	result := make(chan error, 1)
	op := writeOp{ctx: ctx, fn: fn, result: result}
	for {
		queue := m.getOrCreateQueue(key)
		if queue == nil {
			return ErrWriteQueueClosed
		}
		err := queue.enqueue(op)
		if err == nil {
			break
		}
		if !errors.Is(err, errQueueStopped) {
			return err
		}
		// 队列刚被回收，重新获取
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrWriteTimeout
	case <-m.ctx.Done():
		return ErrWriteQueueClosed
	}
}

// getOrCreateQueue 懒加载 key 的队列
func (m *Manager) getOrCreateQueue(key string) *keyQueue {
	if v, ok := m.queues.Load(key); ok {
		q := v.(*keyQueue)
		if !q.closed.Load() {
			q.lastUsed.Store(time.Now().UnixNano())
			return q
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}

	q := &keyQueue{
		key:    key,
		ch:     make(chan writeOp, m.config.QueueCapacity),
		stopCh: make(chan struct{}),
	}
	q.lastUsed.Store(time.Now().UnixNano())

	for {
		actual, loaded := m.queues.LoadOrStore(key, q)
		if !loaded {
			break
		}
		existing := actual.(*keyQueue)
		if !existing.closed.Load() {
			existing.lastUsed.Store(time.Now().UnixNano())
			return existing
		}
		// 已存在的队列已被回收，替换为新队列
		if m.queues.CompareAndSwap(key, existing, q) {
			m.retired.Store(key, existing)
			break
		}
	}

	var prev *keyQueue
	if v, ok := m.retired.LoadAndDelete(key); ok {
		prev = v.(*keyQueue)
	}
	q.workerWg.Add(1)
	go m.worker(q, prev)

	m.logger.Debug("created write queue", zap.String("key", key), zap.Int("capacity", m.config.QueueCapacity))
	return q
}

func (m *Manager) worker(q *keyQueue, prev *keyQueue) {
	defer q.workerWg.Done()
	defer m.logger.Debug("write queue worker stopped", zap.String("key", q.key))

	// 同一 key 同时只有一个 worker 在执行
	if prev != nil {
		prev.workerWg.Wait()
	}

	for {
		select {
		case <-m.ctx.Done():
			m.drainQueue(q)
			return
		case <-q.stopCh:
			m.drainQueue(q)
			return
		case op := <-q.ch:
			m.executeOp(q, op)
		}
	}
}

func (m *Manager) executeOp(q *keyQueue, op writeOp) {
	q.lastUsed.Store(time.Now().UnixNano())

	// 调用方已放弃等待时不再执行
	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("write operation panic", zap.String("key", q.key), zap.Any("panic", r), zap.Stack("stack"))
				err = errors.New("write operation panicked")
			}
		}()
		return op.fn()
	}()

	select {
	case op.result <- err:
	default:
	}
}

func (m *Manager) drainQueue(q *keyQueue) {
	for {
		select {
		case op := <-q.ch:
			m.executeOp(q, op)
		default:
			return
		}
	}
}

func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.cleanupDone:
			return
		case <-ticker.C:
			m.doCleanup()
		}
	}
}

// doCleanup 回收空闲且为空的队列
func (m *Manager) doCleanup() {
	now := time.Now().UnixNano()
	idle := m.config.IdleTimeout.Nanoseconds()

	m.queues.Range(func(k, v interface{}) bool {
		q := v.(*keyQueue)
		last := q.lastUsed.Load()
		if now-last > idle && len(q.ch) == 0 && !q.closed.Load() {
			m.logger.Debug("cleaning up idle write queue",
				zap.String("key", k.(string)),
				zap.Duration("idleTime", time.Duration(now-last)))
			q.stop()
			m.retired.Store(k, q)
			m.queues.CompareAndDelete(k, q)
		}
		return true
	})
}

// Shutdown stops accepting work and waits for queued operations to finish.
// Shutdown 关闭管理器并等待已排队的写操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down")
	close(m.cleanupDone)

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(_, v interface{}) bool {
			v.(*keyQueue).stop()
			return true
		})
		m.queues.Range(func(_, v interface{}) bool {
			v.(*keyQueue).workerWg.Wait()
			return true
		})
		m.retired.Range(func(_, v interface{}) bool {
			v.(*keyQueue).workerWg.Wait()
			return true
		})
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager shutdown completed")
		m.cancel()
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout, forcing cancellation")
		m.cancel()
		return ctx.Err()
	}
}

// QueueCount 返回活跃队列数量
func (m *Manager) QueueCount() int {
	count := 0
	m.queues.Range(func(_, v interface{}) bool {
		if !v.(*keyQueue).closed.Load() {
			count++
		}
		return true
	})
	return count
}

// QueuedCount 返回 key 队列中等待的操作数
func (m *Manager) QueuedCount(key string) int {
	if v, ok := m.queues.Load(key); ok {
		return len(v.(*keyQueue).ch)
	}
	return 0
}

// IsClosed 返回管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
