package upgrade

import (
	"context"

	"github.com/haierkeys/fast-library-service/internal/model"

	"gorm.io/gorm"
)

// RootParentMigrate 旧数据以 parent_id = 0 表示根节点，统一改为 NULL
type RootParentMigrate struct{}

func (m *RootParentMigrate) Version() string {
	return "1.0.1"
}

func (m *RootParentMigrate) Description() string {
	return "Store root folders and tags with a NULL parent_id instead of 0"
}

func (m *RootParentMigrate) Up(db *gorm.DB, ctx context.Context) error {
	for _, table := range []string{model.TableNameFolder, model.TableNameTag} {
		if err := db.WithContext(ctx).Table(table).Where("parent_id = ?", 0).Update("parent_id", nil).Error; err != nil {
			return err
		}
	}
	return nil
}
