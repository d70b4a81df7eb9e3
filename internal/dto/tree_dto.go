package dto

import "github.com/haierkeys/fast-library-service/pkg/timex"

// FolderDTO 文件夹数据传输对象
type FolderDTO struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	ParentID  *int64     `json:"parent_id"`
	CreatedAt timex.Time `json:"created_at"`
	UpdatedAt timex.Time `json:"updated_at"`
}

// TagDTO 标签数据传输对象
type TagDTO struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	ParentID  *int64     `json:"parent_id"`
	CreatedAt timex.Time `json:"created_at"`
	UpdatedAt timex.Time `json:"updated_at"`
}

// TreeCreateRequest 创建文件夹或标签
// ID 大于 0 时使用指定 ID
type TreeCreateRequest struct {
	ID       int64  `json:"id" form:"id" validate:"gte=0"`
	Title    string `json:"title" form:"title" validate:"required,max=255"`
	ParentID *int64 `json:"parent_id" form:"parent_id" validate:"omitempty,gt=0"`
}

// TreeUpdateRequest 更新文件夹或标签
// parent_id 显式为 null 时移动到根节点
type TreeUpdateRequest struct {
	ID       int64   `json:"id" form:"id" validate:"required,gt=0"`
	Title    *string `json:"title" form:"title" validate:"omitempty,min=1,max=255"`
	ParentID *int64  `json:"parent_id" form:"parent_id" validate:"omitempty,gt=0"`
}

// TreeQuery 文件夹或标签查询条件
type TreeQuery struct {
	IDs      []int64 `json:"ids" form:"ids"`
	ParentID *int64  `json:"parent_id" form:"parent_id"`
	Root     bool    `json:"root" form:"root"`
	Title    string  `json:"title" form:"title"`
	Limit    int     `json:"limit" form:"limit" validate:"gte=0,lte=10000"`
	Offset   int     `json:"offset" form:"offset" validate:"gte=0"`
}

// TreeQueryRequest 查询请求，条件位于 data.query
type TreeQueryRequest struct {
	Query TreeQuery `json:"query" form:"query"`
}

// DeleteRequest 按 ID 删除
type DeleteRequest struct {
	ID int64 `json:"id" form:"id" validate:"required,gt=0"`
}

// CreatedResponse 创建结果
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// SuccessResponse 更新与删除结果
type SuccessResponse struct {
	Success bool `json:"success"`
}
