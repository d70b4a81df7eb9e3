package websocket_router

import (
	"context"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/dto"
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	"github.com/haierkeys/fast-library-service/pkg/code"
	logpkg "github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
)

// LibraryHandler 打开、关闭库，以及库内只读查询
type LibraryHandler struct {
	*WSHandler
}

func NewLibraryHandler(base *WSHandler) LibraryHandler {
	return LibraryHandler{WSHandler: base}
}

// Create data 为库配置，至少包含 id；缺省时使用信封的 libraryId
func (h LibraryHandler) Create(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	s, err := session(c)
	if err != nil {
		return nil, err
	}

	raw, _ := env.RawData().(map[string]any)
	if raw == nil {
		raw = map[string]any{}
	}
	if _, ok := raw["id"]; !ok && env.LibraryID != "" {
		raw["id"] = env.LibraryID
	}
	cfg, err := domain.ParseLibraryConfig(raw)
	if err != nil {
		return nil, code.ErrorLibraryIDInvalid.WithDetails(err.Error())
	}

	store, err := s.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	h.logInfo(c, "websocket_router.library.Create", zap.String(logpkg.FieldLibraryID, store.LibraryID()))
	return dto.LibraryConnectResponse{
		ID:     store.LibraryID(),
		Status: dto.LibraryStatusConnected,
		Config: store.Library().Config,
	}, nil
}

// Close 释放会话绑定的库
func (h LibraryHandler) Close(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	s, err := session(c)
	if err != nil {
		return nil, err
	}
	id, err := s.CloseLibrary(ctx)
	if err != nil {
		return nil, err
	}
	h.logInfo(c, "websocket_router.library.Close", zap.String(logpkg.FieldLibraryID, id))
	return dto.LibraryCloseResponse{ID: id, Status: dto.LibraryStatusClosed}, nil
}

// Query data.query 为单条只读 SELECT
func (h LibraryHandler) Query(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (any, error) {
	params := &dto.LibraryQueryRequest{}
	if err := h.bind(env, params); err != nil {
		return nil, err
	}
	store, err := h.store(ctx, c, env)
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, params.Query)
}
