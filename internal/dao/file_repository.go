package dao

import (
	"context"
	"strconv"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/model"
	"github.com/haierkeys/fast-library-service/pkg/convert"
	"github.com/haierkeys/fast-library-service/pkg/util"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
)

type fileRepository struct {
	dao *Dao
}

func NewFileRepository(d *Dao) domain.FileRepository {
	return &fileRepository{dao: d}
}

var _ domain.FileRepository = (*fileRepository)(nil)

func (r *fileRepository) getDB(lib string) (*gorm.DB, error) {
	db, err := r.dao.LibraryDB(lib)
	if err != nil {
		return nil, err
	}
	err = r.dao.migrateOnce(lib, "File", func() error {
		return model.AutoMigrate(db, "File")
	})
	return db, err
}

func (r *fileRepository) GetByID(ctx context.Context, id int64, lib string) (*domain.File, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	var m model.File
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

func (r *fileRepository) Create(ctx context.Context, file *domain.File, lib string) (*domain.File, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	m := r.toModel(file)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

func (r *fileRepository) Update(ctx context.Context, id int64, u domain.FileUpdate, lib string) error {
	db, err := r.getDB(lib)
	if err != nil {
		return err
	}
	updates := map[string]any{}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.CreatedAt != nil {
		updates["created_at"] = *u.CreatedAt
	}
	if u.Size != nil {
		updates["size"] = *u.Size
	}
	if u.Hash != nil {
		updates["hash"] = *u.Hash
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	if u.ClearFolder {
		updates["folder_id"] = nil
	} else if u.FolderID != nil {
		updates["folder_id"] = *u.FolderID
	}
	if u.Tags != nil {
		updates["tags"] = EncodeTagSet(*u.Tags)
	}
	if u.Reference != nil {
		updates["reference"] = *u.Reference
	}
	if u.Path != nil {
		updates["path"] = *u.Path
	}
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).Updates(updates).Error
}

func (r *fileRepository) Delete(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&model.File{})
	return res.RowsAffected, res.Error
}

func (r *fileRepository) ClearHash(ctx context.Context, id int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).Update("hash", "")
	return res.RowsAffected, res.Error
}

var fileOrderColumns = map[domain.FileOrder]string{
	domain.FileOrderID:        "id",
	domain.FileOrderName:      "name",
	domain.FileOrderCreatedAt: "created_at",
	domain.FileOrderSize:      "size",
}

func (r *fileRepository) List(ctx context.Context, f domain.FileFilter, lib string) ([]*domain.File, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return nil, err
	}
	q := db.WithContext(ctx).Model(&model.File{})
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Name != "" {
		q = q.Where("name LIKE ? ESCAPE '!'", likeContains(f.Name))
	}
	if f.FolderID != nil {
		q = q.Where("folder_id = ?", *f.FolderID)
	}
	if f.TagID != nil {
		q = q.Where("tags LIKE ?", tagPattern(*f.TagID))
	}
	if f.Hash != nil {
		q = q.Where("hash = ?", *f.Hash)
	}
	if f.Reference != "" {
		q = q.Where("reference = ?", f.Reference)
	}
	if f.Path != "" {
		q = q.Where("path = ?", f.Path)
	}
	if f.CreatedFrom > 0 {
		q = q.Where("created_at >= ?", f.CreatedFrom)
	}
	if f.CreatedTo > 0 {
		q = q.Where("created_at <= ?", f.CreatedTo)
	}

	column, ok := fileOrderColumns[f.OrderBy]
	if !ok {
		column = "id"
	}
	if f.Desc {
		column += " DESC"
	}
	q = q.Order(column)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var ms []*model.File
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.File, 0, len(ms))
	for _, m := range ms {
		res = append(res, r.toDomain(m))
	}
	return res, nil
}

func (r *fileRepository) CountByFolder(ctx context.Context, folderID int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.WithContext(ctx).Model(&model.File{}).Where("folder_id = ?", folderID).Count(&n).Error
	return n, err
}

func (r *fileRepository) CountByTag(ctx context.Context, tagID int64, lib string) (int64, error) {
	db, err := r.getDB(lib)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.WithContext(ctx).Model(&model.File{}).Where("tags LIKE ?", tagPattern(tagID)).Count(&n).Error
	return n, err
}

func tagPattern(id int64) string {
	return `%"` + strconv.FormatInt(id, 10) + `"%`
}

// EncodeTagSet 将标签集合编码为字符串数组 JSON，空集合返回 nil
func EncodeTagSet(ids []int64) *string {
	ids = util.Unique(ids)
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, strconv.FormatInt(id, 10))
	}
	s, err := sonic.MarshalString(strs)
	if err != nil {
		return nil
	}
	return &s
}

// DecodeTagSet 解析标签集合，兼容字符串与数字两种元素
func DecodeTagSet(s *string) []int64 {
	if s == nil || *s == "" {
		return nil
	}
	var raw []any
	if err := sonic.UnmarshalString(*s, &raw); err != nil {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			if id, err := convert.StrTo(x).Int64(); err == nil {
				ids = append(ids, id)
			}
		case float64:
			ids = append(ids, int64(x))
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func (r *fileRepository) toDomain(m *model.File) *domain.File {
	if m == nil {
		return nil
	}
	return &domain.File{
		ID:         m.ID,
		Name:       m.Name,
		CreatedAt:  m.CreatedAt,
		ImportedAt: m.ImportedAt,
		Size:       m.Size,
		Hash:       m.Hash,
		Notes:      m.Notes,
		FolderID:   m.FolderID,
		Tags:       DecodeTagSet(m.Tags),
		Reference:  m.Reference,
		Path:       m.Path,
	}
}

func (r *fileRepository) toModel(d *domain.File) *model.File {
	if d == nil {
		return nil
	}
	return &model.File{
		ID:         d.ID,
		Name:       d.Name,
		CreatedAt:  d.CreatedAt,
		ImportedAt: d.ImportedAt,
		Size:       d.Size,
		Hash:       d.Hash,
		Notes:      d.Notes,
		FolderID:   d.FolderID,
		Tags:       EncodeTagSet(d.Tags),
		Reference:  d.Reference,
		Path:       d.Path,
	}
}
