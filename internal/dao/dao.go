// Package dao implements the data access layer
package dao

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/fileurl"
	"github.com/haierkeys/fast-library-service/pkg/util"
	"github.com/haierkeys/fast-library-service/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type            string
	Path            string
	UserName        string
	Password        string
	Host            string
	Port            int
	Name            string
	TablePrefix     string
	AutoMigrate     bool
	Charset         string
	ParseTime       bool
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	RunMode         string
	// LibraryDir sqlite 库文件默认目录
	LibraryDir string
}

type Dao struct {
	Db            *gorm.DB
	ctx           context.Context
	config        *DatabaseConfig
	logger        *zap.Logger
	writeQueueMgr *writequeue.Manager

	mu         sync.Mutex
	libraryDBs map[string]*gorm.DB
	onceKeys   sync.Map
}

// Option DAO 配置选项
type Option func(*Dao)

func WithConfig(c *DatabaseConfig) Option {
	return func(d *Dao) { d.config = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) { d.logger = l }
}

func WithWriteQueueManager(m *writequeue.Manager) Option {
	return func(d *Dao) { d.writeQueueMgr = m }
}

// New 创建 DAO，db 为主数据库（库注册表）
func New(db *gorm.DB, ctx context.Context, opts ...Option) *Dao {
	d := &Dao{
		Db:         db,
		ctx:        ctx,
		libraryDBs: make(map[string]*gorm.DB),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.config == nil {
		d.config = &DatabaseConfig{Type: "sqlite", LibraryDir: "storage/library"}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

func (d *Dao) DB() *gorm.DB {
	return d.Db
}

// ExecuteWrite 通过写队列按库串行执行写操作
// fn 内不得再次调用 ExecuteWrite 同一 key，否则会死锁
func (d *Dao) ExecuteWrite(ctx context.Context, lib string, fn func() error) error {
	if d.writeQueueMgr == nil {
		return fn()
	}
	return d.writeQueueMgr.Execute(ctx, "library_"+lib, fn)
}

// LibraryDBPath 计算库数据库位置
// sqlite: path 为 .db/.sqlite/.sqlite3 文件时直接使用，为目录时在其中放置 library.sqlite3，
// 为空时使用 LibraryDir/library_<id>.sqlite3；mysql/postgres 返回带库 ID 后缀的数据库名
func (d *Dao) LibraryDBPath(lib, path string) string {
	key := util.SafeKey(lib)
	switch d.config.Type {
	case "mysql", "postgres":
		return d.config.Name + "_" + key
	}
	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			return path
		}
		return filepath.Join(path, "library.sqlite3")
	}
	return filepath.Join(d.config.LibraryDir, "library_"+key+".sqlite3")
}

// OpenLibraryDB 打开（或复用）库的数据库连接
func (d *Dao) OpenLibraryDB(lib, path string) (*gorm.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if db, ok := d.libraryDBs[lib]; ok {
		return db, nil
	}

	c := *d.config
	switch c.Type {
	case "mysql", "postgres":
		c.Name = d.LibraryDBPath(lib, path)
	default:
		c.Path = d.LibraryDBPath(lib, path)
	}
	// 库表不加前缀，每个库独占一个数据库
	c.TablePrefix = ""

	db, err := NewDBEngineWithConfig(c, d.logger)
	if err != nil {
		return nil, fmt.Errorf("open library %s database: %w", lib, err)
	}
	d.libraryDBs[lib] = db
	d.logger.Debug("library database opened", zap.String("libraryId", lib), zap.String("path", c.Path))
	return db, nil
}

// LibraryDB 返回已打开的库数据库
func (d *Dao) LibraryDB(lib string) (*gorm.DB, error) {
	d.mu.Lock()
	db, ok := d.libraryDBs[lib]
	d.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("library %s is not open", lib)
	}
	return db, nil
}

// CloseLibraryDB 关闭库数据库并清除迁移标记
func (d *Dao) CloseLibraryDB(lib string) error {
	d.mu.Lock()
	db, ok := d.libraryDBs[lib]
	delete(d.libraryDBs, lib)
	d.mu.Unlock()
	if !ok {
		return nil
	}

	prefix := lib + "#"
	d.onceKeys.Range(func(k, _ any) bool {
		if s, _ := k.(string); strings.HasPrefix(s, prefix) {
			d.onceKeys.Delete(k)
		}
		return true
	})

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenLibraryIDs 返回当前已打开的库 ID
func (d *Dao) OpenLibraryIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.libraryDBs))
	for id := range d.libraryDBs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close 关闭所有库数据库
func (d *Dao) Close() error {
	var firstErr error
	for _, id := range d.OpenLibraryIDs() {
		if err := d.CloseLibraryDB(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type migrateFlag struct {
	mu   sync.Mutex
	done bool
}

// migrateOnce 每个库每个模型只迁移一次，并发调用方等待迁移完成
func (d *Dao) migrateOnce(lib, name string, fn func() error) error {
	key := lib + "#" + name + "#migrated"
	v, _ := d.onceKeys.LoadOrStore(key, &migrateFlag{})
	f := v.(*migrateFlag)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	f.done = true
	return nil
}

// NewDBEngineWithConfig 创建数据库引擎
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀，`Folder` 的表名应该是 `t_folder`
			SingularTable: true,          // 使用单数表名
		},
	})
	if err != nil {
		return nil, err
	}

	if c.RunMode == "debug" {
		db.Config.Logger = logger.Default.LogMode(logger.Info)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	switch c.Type {
	case "sqlite", "":
		// sqlite 单文件，限制连接数避免锁竞争
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
	default:
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(util.MustParseDuration(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.MustParseDuration(c.ConnMaxIdleTime, 10*time.Minute))

	if err := db.Use(&gormTracing.OpentracingPlugin{}); err != nil && lg != nil {
		lg.Warn("gorm tracing plugin not installed", zap.Error(err))
	}

	return db, nil
}

func useDialector(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		host := c.Host
		if c.Port > 0 {
			host = fmt.Sprintf("%s:%d", c.Host, c.Port)
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			host,
			c.Name,
			charset,
			c.ParseTime,
		)), nil
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		port := c.Port
		if port == 0 {
			port = 5432
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=Local",
			c.Host, c.UserName, c.Password, c.Name, port, sslMode)), nil
	case "sqlite", "":
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite database path is empty")
		}
		if !fileurl.IsExist(filepath.Dir(c.Path)) {
			if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(c.Path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", c.Type)
}
