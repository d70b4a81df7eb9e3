package model

const TableNameFile = "file"

// File mapped from table <file>
// Tags 为标签 ID 字符串数组的 JSON，空集合存为 NULL
type File struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement" json:"id" form:"id"`
	Name       string  `gorm:"column:name;not null" json:"name" form:"name"`
	CreatedAt  int64   `gorm:"column:created_at;not null;default:0;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	ImportedAt int64   `gorm:"column:imported_at;not null;default:0" json:"importedAt" form:"importedAt"`
	Size       int64   `gorm:"column:size;not null;default:0" json:"size" form:"size"`
	Hash       string  `gorm:"column:hash;not null;default:'';index:idx_file_hash" json:"hash" form:"hash"`
	Notes      *string `gorm:"column:notes" json:"notes" form:"notes"`
	FolderID   *int64  `gorm:"column:folder_id;index:idx_file_folder_id" json:"folderId" form:"folderId"`
	Tags       *string `gorm:"column:tags" json:"tags" form:"tags"`
	Reference  *string `gorm:"column:reference" json:"reference" form:"reference"`
	Path       *string `gorm:"column:path" json:"path" form:"path"`
}

// TableName File's table name
func (*File) TableName() string {
	return TableNameFile
}
