// Package safe_close 协调多个后台 goroutine 的优雅关闭
package safe_close

import (
	"sync"
)

// SafeClose 关闭协调器
// Attach 的每个函数在收到关闭信号后必须调用 done
type SafeClose struct {
	closeSignal chan struct{}
	wg          sync.WaitGroup

	once sync.Once
	mu   sync.Mutex
	err  error
}

// NewSafeClose 创建关闭协调器
func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
	}
}

// Attach 启动一个受管 goroutine
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var doneOnce sync.Once
	done := func() { doneOnce.Do(s.wg.Done) }
	go fn(done, s.closeSignal)
}

// SendCloseSignal 广播关闭信号，仅第一次调用生效，err 作为关闭原因保存
func (s *SafeClose) SendCloseSignal(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closeSignal)
	})
}

// CloseSignal 返回关闭信号通道
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeSignal
}

// IsClosed 是否已发送关闭信号
func (s *SafeClose) IsClosed() bool {
	select {
	case <-s.closeSignal:
		return true
	default:
		return false
	}
}

// WaitClosed 等待所有受管 goroutine 结束，返回关闭原因
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
