package model

import "github.com/haierkeys/fast-library-service/pkg/timex"

const TableNameLibrary = "library"

// Library mapped from table <library>
type Library struct {
	ID        string     `gorm:"column:id;primaryKey;size:191" json:"id" form:"id"`
	Name      string     `gorm:"column:name;not null;default:''" json:"name" form:"name"`
	Path      string     `gorm:"column:path;not null;default:''" json:"path" form:"path"`
	Config    string     `gorm:"column:config" json:"config" form:"config"`
	CreatedAt timex.Time `gorm:"column:created_at;default:NULL;autoCreateTime:false" json:"createdAt" form:"createdAt"`
	UpdatedAt timex.Time `gorm:"column:updated_at;default:NULL;autoUpdateTime:false" json:"updatedAt" form:"updatedAt"`
}

// TableName Library's table name
func (*Library) TableName() string {
	return TableNameLibrary
}
