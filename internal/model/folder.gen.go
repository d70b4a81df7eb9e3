package model

import "github.com/haierkeys/fast-library-service/pkg/timex"

const TableNameFolder = "folder"

// Folder mapped from table <folder>
type Folder struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	Title     string     `gorm:"column:title;not null" json:"title" form:"title"`
	ParentID  *int64     `gorm:"column:parent_id;index:idx_folder_parent_id" json:"parentId" form:"parentId"`
	CreatedAt timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Folder's table name
func (*Folder) TableName() string {
	return TableNameFolder
}
