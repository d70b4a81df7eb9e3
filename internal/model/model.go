// Package model 定义数据模型
package model

import (
	"gorm.io/gorm"
)

// AutoMigrate 按模型名迁移表结构
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {

	case "Library":
		return db.AutoMigrate(Library{})

	case "Folder":
		return db.AutoMigrate(Folder{})

	case "Tag":
		return db.AutoMigrate(Tag{})

	case "File":
		return db.AutoMigrate(File{})
	}
	return nil
}

// LibraryModels 单个库数据库中的全部模型名
var LibraryModels = []string{"Folder", "Tag", "File"}
