package domain

import "time"

// Folder 文件夹领域模型，ParentID 为 nil 表示根节点
type Folder struct {
	ID        int64
	Title     string
	ParentID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsRoot 判断是否为根文件夹
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// FolderUpdate 文件夹部分更新
// ClearParent 为 true 时将父节点置空，优先于 ParentID
type FolderUpdate struct {
	Title       *string
	ParentID    *int64
	ClearParent bool
}

// IsEmpty 没有任何待更新字段
func (u FolderUpdate) IsEmpty() bool {
	return u.Title == nil && u.ParentID == nil && !u.ClearParent
}

// TreeFilter 文件夹与标签的查询条件
type TreeFilter struct {
	IDs      []int64
	ParentID *int64
	// RootOnly 仅返回根节点，与 ParentID 互斥
	RootOnly bool
	// Title 标题子串匹配
	Title  string
	Limit  int
	Offset int
}
