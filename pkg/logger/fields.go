package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldLibraryID 库 ID 字段
	FieldLibraryID = "libraryId"

	// FieldRequestID 客户端请求关联 ID 字段
	FieldRequestID = "requestId"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldResource 资源类型字段（file/folder/tag/library）
	FieldResource = "type"

	// FieldEntityID 实体 ID 字段
	FieldEntityID = "entityId"

	// FieldStage 导入阶段字段
	FieldStage = "stage"

	// FieldProcessed 已处理数量字段
	FieldProcessed = "processed"

	// FieldTotal 总数字段
	FieldTotal = "total"

	// FieldPath 路径字段
	FieldPath = "path"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"
)
