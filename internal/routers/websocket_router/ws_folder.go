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

// FolderHandler 文件夹的查询、创建、更新、删除
type FolderHandler struct {
	*WSHandler
}

func NewFolderHandler(base *WSHandler) FolderHandler {
	return FolderHandler{WSHandler: base}
}

// Query data.query 为过滤条件
func (h FolderHandler) Query(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeQueryRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	folders, err := store.QueryFolder(ctx, service.TreeFilterFromQuery(params.Query))
	if err != nil {
		return nil, err
	}
	return service.FoldersToDTO(folders), nil
}

func (h FolderHandler) Create(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeCreateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	id, err := store.CreateFolder(ctx, &domain.Folder{ID: params.ID, Title: titleOf(params.Title), ParentID: params.ParentID})
	if err != nil {
		return nil, err
	}
	h.logDebug(c, "websocket_router.folder.Create",
		zap.String(logpkg.FieldLibraryID, store.LibraryID()),
		zap.Int64(logpkg.FieldEntityID, id))
	return dto.CreatedResponse{ID: id}, nil
}

// Update parent_id 显式为 null 时移动到根节点
func (h FolderHandler) Update(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeUpdateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	update := domain.FolderUpdate{
		Title:       params.Title,
		ParentID:    params.ParentID,
		ClearParent: explicitNull(env, "parent_id"),
	}
	ok, err := store.UpdateFolder(ctx, params.ID, update)
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}

func (h FolderHandler) Delete(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.DeleteRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	ok, err := store.DeleteFolder(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}
