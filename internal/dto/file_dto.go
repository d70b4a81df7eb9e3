package dto

// FileDTO 文件数据传输对象，时间字段为毫秒时间戳
type FileDTO struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	CreatedAt  int64   `json:"created_at"`
	ImportedAt int64   `json:"imported_at"`
	Size       int64   `json:"size"`
	Hash       string  `json:"hash"`
	Notes      *string `json:"notes"`
	FolderID   *int64  `json:"folder_id"`
	Tags       []int64 `json:"tags"`
	Reference  *string `json:"reference"`
	Path       *string `json:"path"`
}

// FileCreateRequest 创建文件，imported_at 由服务端赋值
type FileCreateRequest struct {
	Name      string  `json:"name" form:"name" validate:"required,max=1024"`
	CreatedAt *int64  `json:"created_at" form:"created_at" validate:"omitempty,gte=0"`
	Size      int64   `json:"size" form:"size" validate:"gte=0"`
	Hash      string  `json:"hash" form:"hash"`
	Notes     *string `json:"notes" form:"notes"`
	FolderID  *int64  `json:"folder_id" form:"folder_id" validate:"omitempty,gt=0"`
	Tags      []int64 `json:"tags" form:"tags" validate:"dive,gt=0"`
	Reference *string `json:"reference" form:"reference"`
	Path      *string `json:"path" form:"path"`
}

// FileUpdateRequest 更新文件，缺省字段保持不变
// folder_id 显式为 null 时移出文件夹，tags 为空数组时清空标签
type FileUpdateRequest struct {
	ID        int64    `json:"id" form:"id" validate:"required,gt=0"`
	Name      *string  `json:"name" form:"name" validate:"omitempty,min=1,max=1024"`
	CreatedAt *int64   `json:"created_at" form:"created_at" validate:"omitempty,gte=0"`
	Size      *int64   `json:"size" form:"size" validate:"omitempty,gte=0"`
	Hash      *string  `json:"hash" form:"hash"`
	Notes     *string  `json:"notes" form:"notes"`
	FolderID  *int64   `json:"folder_id" form:"folder_id" validate:"omitempty,gt=0"`
	Tags      *[]int64 `json:"tags" form:"tags"`
	Reference *string  `json:"reference" form:"reference"`
	Path      *string  `json:"path" form:"path"`
}

// FileDeleteOptions 删除选项
type FileDeleteOptions struct {
	// HashOnly 只清除内容哈希
	HashOnly bool `json:"hash_only" form:"hash_only"`
}

// FileDeleteRequest 删除文件
type FileDeleteRequest struct {
	ID      int64             `json:"id" form:"id" validate:"required,gt=0"`
	Options FileDeleteOptions `json:"options" form:"options"`
}

// FileQuery 文件查询条件
type FileQuery struct {
	IDs         []int64 `json:"ids" form:"ids"`
	Name        string  `json:"name" form:"name"`
	FolderID    *int64  `json:"folder_id" form:"folder_id"`
	TagID       *int64  `json:"tag_id" form:"tag_id"`
	Hash        *string `json:"hash" form:"hash"`
	Reference   string  `json:"reference" form:"reference"`
	Path        string  `json:"path" form:"path"`
	CreatedFrom int64   `json:"created_from" form:"created_from" validate:"gte=0"`
	CreatedTo   int64   `json:"created_to" form:"created_to" validate:"gte=0"`
	Limit       int     `json:"limit" form:"limit" validate:"gte=0,lte=10000"`
	Offset      int     `json:"offset" form:"offset" validate:"gte=0"`
	OrderBy     string  `json:"order_by" form:"order_by" validate:"omitempty,oneof=id name created_at size"`
	Desc        bool    `json:"desc" form:"desc"`
}

// FileQueryRequest 查询请求，条件位于 data.query
type FileQueryRequest struct {
	Query FileQuery `json:"query" form:"query"`
}
