// Package upgrade 按库执行有序的数据迁移
package upgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/fast-library-service/internal/model"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

// SchemaVersion 数据库版本记录表
type SchemaVersion struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Version     string    `gorm:"not null;uniqueIndex;type:varchar(64)" json:"version"`
	Description string    `gorm:"type:text" json:"description"`
	AppliedAt   time.Time `gorm:"not null" json:"applied_at"`
}

// TableName 指定表名
func (SchemaVersion) TableName() string {
	return "schema_version"
}

// Migration 定义升级接口
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB, ctx context.Context) error
}

// DefaultMigrations 所有已注册的升级脚本
func DefaultMigrations() []Migration {
	return []Migration{
		&RootParentMigrate{},
		&EmptyTagSetMigrate{},
	}
}

// MigrationManager 升级管理器，作用于单个库数据库
type MigrationManager struct {
	db         *gorm.DB
	logger     *zap.Logger
	migrations []Migration
}

// NewMigrationManager 创建升级管理器，未指定脚本时使用 DefaultMigrations
func NewMigrationManager(db *gorm.DB, logger *zap.Logger, migrations ...Migration) *MigrationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(migrations) == 0 {
		migrations = DefaultMigrations()
	}
	sorted := append([]Migration(nil), migrations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return semver.Compare(canonical(sorted[i].Version()), canonical(sorted[j].Version())) < 0
	})
	return &MigrationManager{db: db, logger: logger, migrations: sorted}
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Run 迁移表结构并执行所有未应用的升级脚本，返回本次执行的数量
func (m *MigrationManager) Run(ctx context.Context) (int, error) {
	for _, name := range model.LibraryModels {
		if err := model.AutoMigrate(m.db, name); err != nil {
			return 0, fmt.Errorf("failed to auto migrate %s: %w", name, err)
		}
	}

	// 确保 schema_version 表存在
	if err := m.db.AutoMigrate(&SchemaVersion{}); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	appliedVersions, err := m.AppliedVersions()
	if err != nil {
		return 0, fmt.Errorf("failed to get applied versions: %w", err)
	}

	executed := 0
	for _, migration := range m.migrations {
		if err := ctx.Err(); err != nil {
			return executed, err
		}
		if !semver.IsValid(canonical(migration.Version())) {
			m.logger.Warn("skip migration with invalid version", zap.String("scriptVersion", migration.Version()))
			continue
		}
		if appliedVersions[migration.Version()] {
			continue
		}

		m.logger.Info("applying migration",
			zap.String("scriptVersion", migration.Version()),
			zap.String("desc", migration.Description()))

		// 在事务中执行升级
		if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx, ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			record := &SchemaVersion{
				Version:     migration.Version(),
				Description: migration.Description(),
				AppliedAt:   time.Now(),
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to record version: %w", err)
			}
			return nil
		}); err != nil {
			return executed, fmt.Errorf("failed to apply migration %s: %w", migration.Version(), err)
		}

		executed++
	}

	if executed > 0 {
		m.logger.Info("upgrade completed", zap.Int("migrations_applied", executed))
	}
	return executed, nil
}

// AppliedVersions 获取已应用的版本
func (m *MigrationManager) AppliedVersions() (map[string]bool, error) {
	var versions []SchemaVersion
	if err := m.db.Find(&versions).Error; err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v.Version] = true
	}
	return applied, nil
}
