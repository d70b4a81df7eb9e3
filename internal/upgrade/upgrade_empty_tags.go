package upgrade

import (
	"context"

	"github.com/haierkeys/fast-library-service/internal/model"

	"gorm.io/gorm"
)

// EmptyTagSetMigrate 空标签集合统一存为 NULL
type EmptyTagSetMigrate struct{}

func (m *EmptyTagSetMigrate) Version() string {
	return "1.0.2"
}

func (m *EmptyTagSetMigrate) Description() string {
	return "Store empty file tag sets as NULL"
}

func (m *EmptyTagSetMigrate) Up(db *gorm.DB, ctx context.Context) error {
	return db.WithContext(ctx).Table(model.TableNameFile).
		Where("tags IN ?", []string{"", "[]"}).
		Update("tags", nil).Error
}
