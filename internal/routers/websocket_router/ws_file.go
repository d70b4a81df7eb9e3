package websocket_router

import (
	"context"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/dto"
	"github.com/haierkeys/fast-library-service/internal/service"
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	logpkg "github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
)

// FileHandler 文件的查询、创建、更新、删除
type FileHandler struct {
	*WSHandler
}

func NewFileHandler(base *WSHandler) FileHandler {
	return FileHandler{WSHandler: base}
}

// Query 返回匹配 data.query 的文件列表
func (h FileHandler) Query(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.FileQueryRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	files, err := store.QueryFile(ctx, service.FileFilterFromQuery(params.Query))
	if err != nil {
		return nil, err
	}
	return service.FilesToDTO(files)
}

// Create imported_at 由服务端赋值
func (h FileHandler) Create(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.FileCreateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	id, err := store.CreateFile(ctx, service.FileFromCreateRequest(params))
	if err != nil {
		return nil, err
	}
	h.logDebug(c, "websocket_router.file.Create",
		zap.String(logpkg.FieldLibraryID, store.LibraryID()),
		zap.Int64(logpkg.FieldEntityID, id))
	return dto.CreatedResponse{ID: id}, nil
}

// Update 部分更新，folder_id 显式为 null 时移出文件夹
func (h FileHandler) Update(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.FileUpdateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	update := domain.FileUpdate{
		Name:        params.Name,
		CreatedAt:   params.CreatedAt,
		Size:        params.Size,
		Hash:        params.Hash,
		Notes:       params.Notes,
		FolderID:    params.FolderID,
		ClearFolder: explicitNull(env, "folder_id"),
		Tags:        params.Tags,
		Reference:   params.Reference,
		Path:        params.Path,
	}
	ok, err := store.UpdateFile(ctx, params.ID, update)
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}

// Delete options.hash_only 为 true 时只清除哈希
func (h FileHandler) Delete(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.FileDeleteRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	ok, err := store.DeleteFile(ctx, params.ID, domain.DeleteFileOptions{HashOnly: params.Options.HashOnly})
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}
