package websocket_router

import (
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
)

// 资源类型
const (
	TypeFile    = "file"
	TypeFolder  = "folder"
	TypeTag     = "tag"
	TypeLibrary = "library"
)

// 操作
const (
	ActionQuery  = "query"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionClose  = "close"
)

// Routes 唯一的 (action, type) 分发表
func Routes(base *WSHandler) map[pkgapp.Route]pkgapp.Handler {
	file := NewFileHandler(base)
	folder := NewFolderHandler(base)
	tag := NewTagHandler(base)
	library := NewLibraryHandler(base)

	return map[pkgapp.Route]pkgapp.Handler{
		{Action: ActionQuery, Type: TypeFile}:  pkgapp.HandlerFunc(file.Query),
		{Action: ActionCreate, Type: TypeFile}: pkgapp.HandlerFunc(file.Create),
		{Action: ActionUpdate, Type: TypeFile}: pkgapp.HandlerFunc(file.Update),
		{Action: ActionDelete, Type: TypeFile}: pkgapp.HandlerFunc(file.Delete),

		{Action: ActionQuery, Type: TypeFolder}:  pkgapp.HandlerFunc(folder.Query),
		{Action: ActionCreate, Type: TypeFolder}: pkgapp.HandlerFunc(folder.Create),
		{Action: ActionUpdate, Type: TypeFolder}: pkgapp.HandlerFunc(folder.Update),
		{Action: ActionDelete, Type: TypeFolder}: pkgapp.HandlerFunc(folder.Delete),

		{Action: ActionQuery, Type: TypeTag}:  pkgapp.HandlerFunc(tag.Query),
		{Action: ActionCreate, Type: TypeTag}: pkgapp.HandlerFunc(tag.Create),
		{Action: ActionUpdate, Type: TypeTag}: pkgapp.HandlerFunc(tag.Update),
		{Action: ActionDelete, Type: TypeTag}: pkgapp.HandlerFunc(tag.Delete),

		{Action: ActionCreate, Type: TypeLibrary}: pkgapp.HandlerFunc(library.Create),
		{Action: ActionClose, Type: TypeLibrary}:  pkgapp.HandlerFunc(library.Close),
		{Action: ActionQuery, Type: TypeLibrary}:  pkgapp.HandlerFunc(library.Query),
	}
}

// Register 将分发表注册到服务器
func Register(wss *pkgapp.WebsocketServer, base *WSHandler) {
	for route, h := range Routes(base) {
		wss.Use(route, h)
	}
}
