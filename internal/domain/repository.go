// Package domain 定义领域模型和接口
package domain

import "context"

// LibraryRepository 库注册表仓储接口（主数据库）
type LibraryRepository interface {
	// GetByID 根据ID获取库
	GetByID(ctx context.Context, id string) (*Library, error)

	// Save 创建或更新库记录
	Save(ctx context.Context, library *Library) (*Library, error)

	// List 获取全部已注册的库
	List(ctx context.Context) ([]*Library, error)
}

// FolderRepository 文件夹仓储接口，lib 为库 ID
type FolderRepository interface {
	GetByID(ctx context.Context, id int64, lib string) (*Folder, error)

	// Create 创建文件夹，folder.ID 大于 0 时使用指定 ID
	Create(ctx context.Context, folder *Folder, lib string) (*Folder, error)

	Update(ctx context.Context, id int64, update FolderUpdate, lib string) error

	// Delete 物理删除，返回受影响行数
	Delete(ctx context.Context, id int64, lib string) (int64, error)

	List(ctx context.Context, filter TreeFilter, lib string) ([]*Folder, error)

	// CountChildren 统计直接子文件夹数量
	CountChildren(ctx context.Context, id int64, lib string) (int64, error)
}

// TagRepository 标签仓储接口
type TagRepository interface {
	GetByID(ctx context.Context, id int64, lib string) (*Tag, error)

	Create(ctx context.Context, tag *Tag, lib string) (*Tag, error)

	Update(ctx context.Context, id int64, update TagUpdate, lib string) error

	Delete(ctx context.Context, id int64, lib string) (int64, error)

	List(ctx context.Context, filter TreeFilter, lib string) ([]*Tag, error)

	CountChildren(ctx context.Context, id int64, lib string) (int64, error)
}

// FileRepository 文件仓储接口
type FileRepository interface {
	GetByID(ctx context.Context, id int64, lib string) (*File, error)

	Create(ctx context.Context, file *File, lib string) (*File, error)

	Update(ctx context.Context, id int64, update FileUpdate, lib string) error

	Delete(ctx context.Context, id int64, lib string) (int64, error)

	// ClearHash 清空内容哈希，返回受影响行数
	ClearHash(ctx context.Context, id int64, lib string) (int64, error)

	List(ctx context.Context, filter FileFilter, lib string) ([]*File, error)

	// CountByFolder 统计放置在该文件夹下的文件数量
	CountByFolder(ctx context.Context, folderID int64, lib string) (int64, error)

	// CountByTag 统计标签集合包含该标签的文件数量
	CountByTag(ctx context.Context, tagID int64, lib string) (int64, error)
}

// QueryRepository 只读 SQL 查询
type QueryRepository interface {
	Select(ctx context.Context, expression string, lib string) ([]map[string]any, error)
}

// LibraryStore 单个已打开库的存储能力
// 写操作在同一个库内按提交顺序串行执行
type LibraryStore interface {
	GetFolder(ctx context.Context, id int64) (*Folder, error)
	CreateFolder(ctx context.Context, folder *Folder) (int64, error)
	UpdateFolder(ctx context.Context, id int64, update FolderUpdate) (bool, error)
	DeleteFolder(ctx context.Context, id int64) (bool, error)
	QueryFolder(ctx context.Context, filter TreeFilter) ([]*Folder, error)

	GetTag(ctx context.Context, id int64) (*Tag, error)
	CreateTag(ctx context.Context, tag *Tag) (int64, error)
	UpdateTag(ctx context.Context, id int64, update TagUpdate) (bool, error)
	DeleteTag(ctx context.Context, id int64) (bool, error)
	QueryTag(ctx context.Context, filter TreeFilter) ([]*Tag, error)

	GetFile(ctx context.Context, id int64) (*File, error)
	QueryFile(ctx context.Context, filter FileFilter) ([]*File, error)
	CreateFile(ctx context.Context, file *File) (int64, error)
	UpdateFile(ctx context.Context, id int64, update FileUpdate) (bool, error)
	DeleteFile(ctx context.Context, id int64, options DeleteFileOptions) (bool, error)

	// LibraryID 返回库 ID
	LibraryID() string
	Library() *Library
	// Query 执行只读 SELECT 语句
	Query(ctx context.Context, expression string) ([]map[string]any, error)
	// Close 释放本次持有，最后一个持有者关闭时库才真正关闭
	Close(ctx context.Context) error
}
