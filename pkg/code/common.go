package code

var (
	Success       = NewSuss(200, lang{en: "Success", zh_cn: "成功"})
	SuccessCreate = NewSuss(201, lang{en: "Created successfully", zh_cn: "创建成功"})
	SuccessUpdate = NewSuss(202, lang{en: "Updated successfully", zh_cn: "更新成功"})
	SuccessDelete = NewSuss(203, lang{en: "Deleted successfully", zh_cn: "删除成功"})

	ErrorServerInternal  = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"})
	ErrorInvalidParams   = NewError(501, lang{en: "Invalid params", zh_cn: "参数错误"})
	ErrorTooManyRequests = NewError(502, lang{en: "Too many requests", zh_cn: "请求过多"})
	ErrorNotFound        = NewError(503, lang{en: "Not found", zh_cn: "未找到"})

	// 协议相关
	ErrorInvalidMessage       = NewError(510, lang{en: "Invalid message format", zh_cn: "消息格式错误"})
	ErrorInvalidEnvelope      = NewError(511, lang{en: "Invalid envelope", zh_cn: "消息信封不合法"})
	ErrorUnsupportedOperation = NewError(512, lang{en: "Unsupported operation", zh_cn: "不支持的操作"})

	// 库相关
	ErrorLibraryNotOpen    = NewError(520, lang{en: "No library is open on this session", zh_cn: "当前会话未打开任何库"})
	ErrorLibraryNotFound   = NewError(521, lang{en: "Library not found", zh_cn: "库不存在"})
	ErrorLibraryMismatch   = NewError(522, lang{en: "Session is bound to a different library", zh_cn: "会话已绑定其他库"})
	ErrorLibraryIDInvalid  = NewError(523, lang{en: "Invalid library id", zh_cn: "库 ID 不合法"})
	ErrorLibraryOpenFailed = NewError(524, lang{en: "Failed to open library", zh_cn: "打开库失败"})

	// 实体相关
	ErrorFolderNotFound   = NewError(530, lang{en: "Folder not found", zh_cn: "文件夹不存在"})
	ErrorFolderExists     = NewError(531, lang{en: "Folder already exists", zh_cn: "文件夹已存在"})
	ErrorFolderNotEmpty   = NewError(532, lang{en: "Folder is not empty", zh_cn: "文件夹非空"})
	ErrorTagNotFound      = NewError(533, lang{en: "Tag not found", zh_cn: "标签不存在"})
	ErrorTagExists        = NewError(534, lang{en: "Tag already exists", zh_cn: "标签已存在"})
	ErrorTagInUse         = NewError(535, lang{en: "Tag is still in use", zh_cn: "标签仍在使用中"})
	ErrorFileNotFound     = NewError(536, lang{en: "File not found", zh_cn: "文件不存在"})
	ErrorFileExists       = NewError(537, lang{en: "File already exists", zh_cn: "文件已存在"})
	ErrorParentNotFound   = NewError(538, lang{en: "Parent not found", zh_cn: "父节点不存在"})
	ErrorParentCycle      = NewError(539, lang{en: "Parent would create a cycle", zh_cn: "父节点形成循环"})
	ErrorFileNameRequired = NewError(540, lang{en: "File name is required", zh_cn: "文件名不能为空"})
	ErrorTitleRequired    = NewError(541, lang{en: "Title is required", zh_cn: "标题不能为空"})

	// 存储相关
	ErrorDBQuery        = NewError(550, lang{en: "Database query failed", zh_cn: "数据库查询失败"})
	ErrorDBWrite        = NewError(551, lang{en: "Database write failed", zh_cn: "数据库写入失败"})
	ErrorQueryReadOnly  = NewError(552, lang{en: "Only read-only SELECT statements are allowed", zh_cn: "仅允许只读 SELECT 语句"})
	ErrorWriteQueueBusy = NewError(553, lang{en: "Library write queue is busy", zh_cn: "库写入队列繁忙"})

	// 导入相关
	ErrorImportSourceRead = NewError(560, lang{en: "Failed to read import source", zh_cn: "读取导入源失败"})
	ErrorImportAborted    = NewError(561, lang{en: "Import aborted", zh_cn: "导入已中止"})
)
