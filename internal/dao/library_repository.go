package dao

import (
	"context"
	"time"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/model"
	"github.com/haierkeys/fast-library-service/pkg/timex"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// libraryRepository implements domain.LibraryRepository on the main database
type libraryRepository struct {
	dao *Dao
}

// NewLibraryRepository 创建 LibraryRepository 实例
func NewLibraryRepository(dao *Dao) domain.LibraryRepository {
	return &libraryRepository{dao: dao}
}

var _ domain.LibraryRepository = (*libraryRepository)(nil)

func (r *libraryRepository) getDB() (*gorm.DB, error) {
	db := r.dao.Db
	err := r.dao.migrateOnce("main", "Library", func() error {
		return model.AutoMigrate(db, "Library")
	})
	return db, err
}

func (r *libraryRepository) toDomain(m *model.Library) *domain.Library {
	if m == nil {
		return nil
	}
	cfg := map[string]any{}
	if m.Config != "" {
		_ = sonic.UnmarshalString(m.Config, &cfg)
	}
	return &domain.Library{
		ID:        m.ID,
		Name:      m.Name,
		Path:      m.Path,
		Config:    cfg,
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
}

func (r *libraryRepository) GetByID(ctx context.Context, id string) (*domain.Library, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}
	var m model.Library
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// Save 按 ID upsert，保留首次创建时间
func (r *libraryRepository) Save(ctx context.Context, library *domain.Library) (*domain.Library, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}
	cfg, err := sonic.MarshalString(library.Config)
	if err != nil {
		return nil, err
	}
	now := timex.Now()
	m := &model.Library{
		ID:        library.ID,
		Name:      library.Name,
		Path:      library.Path,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "path", "config", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, library.ID)
}

func (r *libraryRepository) List(ctx context.Context) ([]*domain.Library, error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}
	var ms []*model.Library
	if err := db.WithContext(ctx).Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.Library, 0, len(ms))
	for _, m := range ms {
		res = append(res, r.toDomain(m))
	}
	return res, nil
}
