package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/upgrade"
	"github.com/haierkeys/fast-library-service/pkg/code"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
	"github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// LibraryService 库注册与生命周期管理
// 同一个库被多个会话共享，按引用计数关闭
type LibraryService interface {
	// Open 注册（或更新注册）并打开库，返回一个持有句柄
	Open(ctx context.Context, cfg domain.LibraryConfig) (domain.LibraryStore, error)

	// Acquire 打开已注册的库
	Acquire(ctx context.Context, id string) (domain.LibraryStore, error)

	// Release 释放一次持有，通常由句柄的 Close 调用
	Release(id string)

	// Get 获取注册信息
	Get(ctx context.Context, id string) (*domain.Library, error)

	List(ctx context.Context) ([]*domain.Library, error)

	// CloseIdle 关闭无人持有且空闲超过 idle 的库，返回关闭数量
	CloseIdle(ctx context.Context, idle time.Duration) int

	// OpenCount 当前已打开的库数量
	OpenCount() int

	Shutdown(ctx context.Context) error
}

type libraryEntry struct {
	library  *domain.Library
	refs     int
	lastUsed time.Time
}

type libraryService struct {
	dao         *dao.Dao
	libraryRepo domain.LibraryRepository
	folderRepo  domain.FolderRepository
	tagRepo     domain.TagRepository
	fileRepo    domain.FileRepository
	queryRepo   domain.QueryRepository
	logger      *zap.Logger

	// idleRelease 为 0 时最后一个持有者释放即关闭
	idleRelease time.Duration

	sf      singleflight.Group
	mu      sync.Mutex
	entries map[string]*libraryEntry
	// regMu 串行化主库中的注册表写入
	regMu sync.Mutex
}

// LibraryServiceOption 配置选项
type LibraryServiceOption func(*libraryService)

// WithIdleRelease 设置空闲释放时间
func WithIdleRelease(d time.Duration) LibraryServiceOption {
	return func(s *libraryService) { s.idleRelease = d }
}

func WithLogger(l *zap.Logger) LibraryServiceOption {
	return func(s *libraryService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLibraryService 创建库服务
func NewLibraryService(d *dao.Dao, opts ...LibraryServiceOption) LibraryService {
	s := &libraryService{
		dao:         d,
		libraryRepo: dao.NewLibraryRepository(d),
		folderRepo:  dao.NewFolderRepository(d),
		tagRepo:     dao.NewTagRepository(d),
		fileRepo:    dao.NewFileRepository(d),
		queryRepo:   dao.NewQueryRepository(d),
		logger:      zap.NewNop(),
		entries:     make(map[string]*libraryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *libraryService) Open(ctx context.Context, cfg domain.LibraryConfig) (domain.LibraryStore, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" || strings.ContainsAny(id, "\x00") {
		return nil, code.ErrorLibraryIDInvalid.WithDetails(cfg.ID)
	}
	raw := cfg.Raw
	if raw == nil {
		raw = map[string]any{"id": id}
	}

	name := cfg.Name
	if name == "" {
		name = id
	}
	s.regMu.Lock()
	lib, err := s.libraryRepo.Save(ctx, &domain.Library{
		ID:     id,
		Name:   name,
		Path:   cfg.Path,
		Config: raw,
	})
	s.regMu.Unlock()
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorDBWrite, err)
	}
	return s.acquire(ctx, lib)
}

func (s *libraryService) Acquire(ctx context.Context, id string) (domain.LibraryStore, error) {
	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		e.refs++
		e.lastUsed = time.Now()
		lib := e.library
		s.mu.Unlock()
		return s.newStore(lib), nil
	}
	s.mu.Unlock()

	lib, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.acquire(ctx, lib)
}

// acquire 确保库已打开并增加引用
// 打开与加引用之间库可能被释放，此时重新打开
func (s *libraryService) acquire(ctx context.Context, lib *domain.Library) (domain.LibraryStore, error) {
	for {
		if err := s.ensureOpen(ctx, lib); err != nil {
			return nil, err
		}
		s.mu.Lock()
		if e, ok := s.entries[lib.ID]; ok {
			e.library = lib
			e.refs++
			e.lastUsed = time.Now()
			s.mu.Unlock()
			return s.newStore(lib), nil
		}
		s.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// ensureOpen 合并同一个库的并发打开与迁移
func (s *libraryService) ensureOpen(ctx context.Context, lib *domain.Library) error {
	_, err, _ := s.sf.Do("open_"+lib.ID, func() (any, error) {
		s.mu.Lock()
		_, open := s.entries[lib.ID]
		s.mu.Unlock()
		if open {
			return nil, nil
		}

		db, err := s.dao.OpenLibraryDB(lib.ID, lib.Path)
		if err != nil {
			return nil, code.ErrorLibraryOpenFailed.WithDetails(err.Error())
		}
		applied, err := upgrade.NewMigrationManager(db, s.logger).Run(ctx)
		if err != nil {
			_ = s.dao.CloseLibraryDB(lib.ID)
			return nil, code.ErrorLibraryOpenFailed.WithDetails(err.Error())
		}

		s.mu.Lock()
		if _, ok := s.entries[lib.ID]; !ok {
			s.entries[lib.ID] = &libraryEntry{library: lib, lastUsed: time.Now()}
		}
		s.mu.Unlock()

		s.logger.Info("library opened",
			zap.String(logger.FieldLibraryID, lib.ID),
			zap.String(logger.FieldPath, s.dao.LibraryDBPath(lib.ID, lib.Path)),
			zap.Int("migrations", applied))
		return nil, nil
	})
	return err
}

func (s *libraryService) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	e.lastUsed = time.Now()
	if e.refs == 0 && s.idleRelease <= 0 {
		delete(s.entries, id)
		s.closeDB(id)
	}
}

// closeDB 调用方持有 s.mu
func (s *libraryService) closeDB(id string) {
	if err := s.dao.CloseLibraryDB(id); err != nil {
		s.logger.Warn("library close failed", zap.String(logger.FieldLibraryID, id), zap.Error(err))
		return
	}
	s.logger.Info("library closed", zap.String(logger.FieldLibraryID, id))
}

func (s *libraryService) Get(ctx context.Context, id string) (*domain.Library, error) {
	lib, err := s.libraryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, code.ErrorLibraryNotFound.WithDetails(id)
		}
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return lib, nil
}

func (s *libraryService) List(ctx context.Context) ([]*domain.Library, error) {
	libs, err := s.libraryRepo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(code.ErrorDBQuery, err)
	}
	return libs, nil
}

func (s *libraryService) CloseIdle(ctx context.Context, idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, e := range s.entries {
		if e.refs == 0 && now.Sub(e.lastUsed) >= idle {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		delete(s.entries, id)
		s.closeDB(id)
		closed++
	}
	return closed
}

func (s *libraryService) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Shutdown 关闭全部库，持有中的句柄随后返回未打开错误
func (s *libraryService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*libraryEntry)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.dao.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *libraryService) newStore(lib *domain.Library) *libraryStore {
	return &libraryStore{svc: s, lib: lib}
}
