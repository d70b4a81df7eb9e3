package service

import (
	"context"
	"sync"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/pkg/code"
)

// Session 连接级会话，最多绑定一个已打开的库
type Session struct {
	svc LibraryService

	mu    sync.Mutex
	store domain.LibraryStore

	// closed 显式关闭后为 true，只有 create library 可以重新绑定
	closed bool
}

func NewSession(svc LibraryService) *Session {
	return &Session{svc: svc}
}

// LibraryID 当前绑定的库 ID，未绑定时为空
func (s *Session) LibraryID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ""
	}
	return s.store.LibraryID()
}

// Store 返回会话绑定的库
// 未绑定且指定了 libraryID 时隐式打开已注册的库，显式关闭后不再隐式打开
func (s *Session) Store(ctx context.Context, libraryID string) (domain.LibraryStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if libraryID != "" && libraryID != s.store.LibraryID() {
			return nil, code.ErrorLibraryMismatch.WithDetails("bound " + s.store.LibraryID() + ", requested " + libraryID)
		}
		return s.store, nil
	}
	if libraryID == "" || s.closed {
		return nil, code.ErrorLibraryNotOpen
	}

	store, err := s.svc.Acquire(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	s.store = store
	return store, nil
}

// Open 打开库并绑定到会话，替换之前绑定的库
func (s *Session) Open(ctx context.Context, cfg domain.LibraryConfig) (domain.LibraryStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.svc.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		_ = s.store.Close(ctx)
	}
	s.store = store
	s.closed = false
	return store, nil
}

// CloseLibrary 解除绑定并释放库，返回被关闭的库 ID
func (s *Session) CloseLibrary(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return "", code.ErrorLibraryNotOpen
	}
	id := s.store.LibraryID()
	err := s.store.Close(ctx)
	s.store = nil
	s.closed = true
	return id, err
}

// Close 连接关闭时释放绑定的库
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	err := s.store.Close(ctx)
	s.store = nil
	return err
}
