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

// TagHandler 标签树，与文件夹树相互独立
type TagHandler struct {
	*WSHandler
}

func NewTagHandler(base *WSHandler) TagHandler {
	return TagHandler{WSHandler: base}
}

// Query data.query 为过滤条件
func (h TagHandler) Query(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeQueryRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	tags, err := store.QueryTag(ctx, service.TreeFilterFromQuery(params.Query))
	if err != nil {
		return nil, err
	}
	return service.TagsToDTO(tags), nil
}

func (h TagHandler) Create(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeCreateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	id, err := store.CreateTag(ctx, &domain.Tag{ID: params.ID, Title: titleOf(params.Title), ParentID: params.ParentID})
	if err != nil {
		return nil, err
	}
	h.logDebug(c, "websocket_router.tag.Create",
		zap.String(logpkg.FieldLibraryID, store.LibraryID()),
		zap.Int64(logpkg.FieldEntityID, id))
	return dto.CreatedResponse{ID: id}, nil
}

// Update parent_id 为 null 时成为根标签
func (h TagHandler) Update(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.TreeUpdateRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	update := domain.TagUpdate{
		Title:       params.Title,
		ParentID:    params.ParentID,
		ClearParent: explicitNull(env, "parent_id"),
	}
	ok, err := store.UpdateTag(ctx, params.ID, update)
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}

func (h TagHandler) Delete(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.DeleteRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	ok, err := store.DeleteTag(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return dto.SuccessResponse{Success: ok}, nil
}
