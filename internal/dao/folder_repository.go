package dao

import (
	"context"
	"time"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/model"
	"github.com/haierkeys/fast-library-service/pkg/timex"

	"gorm.io/gorm"
)

type folderRepository struct {
	dao *Dao
}

func NewFolderRepository(d *Dao) domain.FolderRepository {
	return &folderRepository{dao: d}
}

var _ domain.FolderRepository = (*folderRepository)(nil)

// getDB gets the library database and ensures the table is migrated
func (r *folderRepository) getDB(lib string) (*gorm.DB, error) {
	db, err := r.dao.LibraryDB(lib)
	if err != nil {
		return nil, err
	}
	err = r.dao.migrateOnce(lib, "Folder", func() error {
		return model.AutoMigrate(db, "Folder")
	})
	return db, err
}

func (r *folderRepository) GetByID(ctx context.Context, id int64, lib string) (*domain.Folder, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	var m model.Folder
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *folderRepository) Create(ctx context.Context, folder *domain.Folder, lib string) (*domain.Folder, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	m := r.toModel(folder)
	m.CreatedAt = timex.Now()
	m.UpdatedAt = m.CreatedAt
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

func (r *folderRepository) Update(ctx context.Context, id int64, update domain.FolderUpdate, lib string) error {
	db, err := r.getDB(lib)
	if err != nil {
		return err
	}
	updates := treeUpdates(update.Title, update.ParentID, update.ClearParent)
	updates["updated_at"] = timex.Now()
	return db.WithContext(ctx).Model(&model.Folder{}).Where("id = ?", id).Updates(updates).Error
}

func (r *folderRepository) Delete(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model.Folder{})
	return res.RowsAffected, res.Error
}

func (r *folderRepository) List(ctx context.Context, filter domain.TreeFilter, lib string) ([]*domain.Folder, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	var ms []*model.Folder
	if err := applyTreeFilter(db.WithContext(ctx), filter).Find(&ms).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.Folder, 0, len(ms))
	for _, m := range ms {
		res = append(res, r.toDomain(m))
	}
	return res, nil
}

func (r *folderRepository) CountChildren(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.WithContext(ctx).Model(&model.Folder{}).Where("parent_id = ?", id).Count(&n).Error
	return n, err
}

func (r *folderRepository) toDomain(m *model.Folder) *domain.Folder {
	if m == nil {
		return nil
	}
	return &domain.Folder{
		ID:        m.ID,
		Title:     m.Title,
		ParentID:  m.ParentID,
		CreatedAt: time.Time(m.CreatedAt),
		UpdatedAt: time.Time(m.UpdatedAt),
	}
}

func (r *folderRepository) toModel(d *domain.Folder) *model.Folder {
	if d == nil {
		return nil
	}
	return &model.Folder{
		ID:        d.ID,
		Title:     d.Title,
		ParentID:  d.ParentID,
		CreatedAt: timex.Time(d.CreatedAt),
		UpdatedAt: timex.Time(d.UpdatedAt),
	}
}
