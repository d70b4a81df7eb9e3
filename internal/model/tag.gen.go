package model

import "github.com/haierkeys/fast-library-service/pkg/timex"

const TableNameTag = "tag"

// Tag mapped from table <tag>
type Tag struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	Title     string     `gorm:"column:title;not null" json:"title" form:"title"`
	ParentID  *int64     `gorm:"column:parent_id;index:idx_tag_parent_id" json:"parentId" form:"parentId"`
	CreatedAt timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Tag's table name
func (*Tag) TableName() string {
	return TableNameTag
}
