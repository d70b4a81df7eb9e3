package domain

import "time"

// Tag 标签领域模型，与文件夹是相互独立的两棵树
type Tag struct {
	ID        int64
	Title     string
	ParentID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagUpdate 标签部分更新
type TagUpdate struct {
	Title       *string
	ParentID    *int64
	ClearParent bool
}

func (u TagUpdate) IsEmpty() bool {
	return u.Title == nil && u.ParentID == nil && !u.ClearParent
}
