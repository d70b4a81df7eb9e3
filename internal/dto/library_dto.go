package dto

// LibraryConnectResponse 打开库的响应
type LibraryConnectResponse struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Config map[string]any `json:"config"`
}

// LibraryCloseResponse 关闭库的响应
type LibraryCloseResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LibraryQueryRequest 只读 SQL 查询，语句位于 data.query
type LibraryQueryRequest struct {
	Query string `json:"query" form:"query" validate:"required"`
}

const (
	LibraryStatusConnected = "connected"
	LibraryStatusClosed    = "closed"
)
