package domain

// File 文件领域模型
// CreatedAt 与 ImportedAt 均为毫秒时间戳；ImportedAt 为记录进入本库的时间，由服务端赋值
type File struct {
	ID         int64
	Name       string
	CreatedAt  int64
	ImportedAt int64
	Size       int64
	// Hash 内容哈希，导入时始终为空
	Hash      string
	Notes     *string
	FolderID  *int64
	Tags      []int64
	Reference *string
	Path      *string
}

// FileUpdate 文件部分更新，nil 字段保持不变
type FileUpdate struct {
	Name        *string
	CreatedAt   *int64
	Size        *int64
	Hash        *string
	Notes       *string
	FolderID    *int64
	ClearFolder bool
	// Tags 非 nil 时整体替换标签集合，空切片表示清空
	Tags      *[]int64
	Reference *string
	Path      *string
}

func (u FileUpdate) IsEmpty() bool {
	return u.Name == nil && u.CreatedAt == nil && u.Size == nil && u.Hash == nil &&
		u.Notes == nil && u.FolderID == nil && !u.ClearFolder && u.Tags == nil &&
		u.Reference == nil && u.Path == nil
}

// DeleteFileOptions 删除选项
type DeleteFileOptions struct {
	// HashOnly 只清除内容哈希，保留文件记录
	HashOnly bool
}

// FileOrder 查询排序字段
type FileOrder string

const (
	FileOrderID        FileOrder = "id"
	FileOrderName      FileOrder = "name"
	FileOrderCreatedAt FileOrder = "created_at"
	FileOrderSize      FileOrder = "size"
)

// FileFilter 文件查询条件，零值字段不参与过滤
type FileFilter struct {
	IDs         []int64
	Name        string
	FolderID    *int64
	TagID       *int64
	Hash        *string
	Reference   string
	Path        string
	CreatedFrom int64
	CreatedTo   int64
	Limit       int
	Offset      int
	OrderBy     FileOrder
	Desc        bool
}
