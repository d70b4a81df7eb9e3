package dao

import (
	"context"
	"time"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/model"
	"github.com/haierkeys/fast-library-service/pkg/timex"

	"gorm.io/gorm"
)

type tagRepository struct {
	dao *Dao
}

func NewTagRepository(d *Dao) domain.TagRepository {
	return &tagRepository{dao: d}
}

var _ domain.TagRepository = (*tagRepository)(nil)

// getDB gets the library database and ensures the table is migrated
func (r *tagRepository) getDB(lib string) (*gorm.DB, error) {
	db, err := r.dao.LibraryDB(lib)
	if err != nil {
		return nil, err
	}
	err = r.dao.migrateOnce(lib, "Tag", func() error {
		return model.AutoMigrate(db, "Tag")
	})
	return db, err
}

func (r *tagRepository) GetByID(ctx context.Context, id int64, lib string) (*domain.Tag, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	var m model.Tag
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag, lib string) (*domain.Tag, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	m := r.toModel(tag)
	m.CreatedAt = timex.Now()
	m.UpdatedAt = m.CreatedAt
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

func (r *tagRepository) Update(ctx context.Context, id int64, update domain.TagUpdate, lib string) error {
	db, err := r.getDB(lib)
	if err != nil {
		return err
	}
	updates := treeUpdates(update.Title, update.ParentID, update.ClearParent)
	updates["updated_at"] = timex.Now()
	return db.WithContext(ctx).Model(&model.Tag{}).Where("id = ?", id).Updates(updates).Error
}

func (r *tagRepository) Delete(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model.Tag{})
	return res.RowsAffected, res.Error
}

func (r *tagRepository) List(ctx context.Context, filter domain.TreeFilter, lib string) ([]*domain.Tag, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	var ms []*model.Tag
	if err := applyTreeFilter(db.WithContext(ctx), filter).Find(&ms).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.Tag, 0, len(ms))
	for _, m := range ms {
		res = append(res, r.toDomain(m))
	}
	return res, nil
}

func (r *tagRepository) CountChildren(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.WithContext(ctx).Model(&model.Tag{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

func (r *tagRepository) toDomain(m *model.Tag) *domain.Tag {
	if m == nil {
		return nil
	}
	return &domain.Tag{
		ID:        m.ID,
		Title:     m.Title,
		ParentID:  m.ParentID,
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
}

func (r *tagRepository) toModel(d *domain.Tag) *model.Tag {
	if d == nil {
		return nil
	}
	return &model.Tag{
		ID:        d.ID,
		Title:     d.Title,
		ParentID:  d.ParentID,
		CreatedAt: timex.Time(d.CreatedAt),
		UpdatedAt: timex.Time(d.UpdatedAt),
	}
}
