package dao

import (
	"strings"

	"github.com/haierkeys/fast-library-service/internal/domain"

	"gorm.io/gorm"
)

// applyTreeFilter 文件夹与标签共用的查询条件
func applyTreeFilter(db *gorm.DB, f domain.TreeFilter) *gorm.DB {
	if len(f.IDs) > 0 {
		db = db.Where("id IN ?", f.IDs)
	}
	if f.RootOnly {
		db = db.Where("parent_id IS NULL")
	} else if f.ParentID != nil {
		db = db.Where("parent_id = ?", *f.ParentID)
	}
	if f.Title != "" {
		db = db.Where("title LIKE ? ESCAPE '!'", likeContains(f.Title))
	}
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	if f.Offset > 0 {
		db = db.Offset(f.Offset)
	}
	return db.Order("id")
}

// treeUpdates 构造部分更新的列
func treeUpdates(title *string, parentID *int64, clearParent bool) map[string]any {
	updates := map[string]any{}
	if title != nil {
		updates["title"] = *title
	}
	if clearParent {
		updates["parent_id"] = nil
	} else if parentID != nil {
		updates["parent_id"] = *parentID
	}
	return updates
}

// likeContains 构造子串匹配模式，使用 ! 作为转义符
func likeContains(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}
