// Package websocket_router 提供 WebSocket 路由处理器
package websocket_router

import (
	"context"
	"strings"

	"github.com/haierkeys/fast-library-service/internal/domain"
	"github.com/haierkeys/fast-library-service/internal/service"
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	"github.com/haierkeys/fast-library-service/pkg/code"
	logpkg "github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
)

// ValidatorLang 参数校验错误信息的语言
const ValidatorLang = "en"

// WSHandler WebSocket 基础 Handler，四类资源 Handler 都嵌入此结构体
// 只持有日志器与校验器，库由连接会话提供
type WSHandler struct {
	logger    *zap.Logger
	validator *pkgapp.Validator
}

// NewWSHandler 创建 WebSocket 基础 Handler 实例
func NewWSHandler(logger *zap.Logger, v *pkgapp.Validator) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{logger: logger, validator: v}
}

// bind 反序列化 payload.data 并校验
func (h *WSHandler) bind(env *pkgapp.Envelope, obj any) error {
	valid, errs := h.validator.BindAndValid(env.Data(), obj, ValidatorLang)
	if !valid {
		return code.ErrorInvalidParams.WithDetails(errs.MapsToString())
	}
	return nil
}

// session 返回连接会话
func session(c *pkgapp.WebsocketClient) (*service.Session, error) {
	s, ok := c.Session().(*service.Session)
	if !ok || s == nil {
		return nil, code.ErrorLibraryNotOpen
	}
	return s, nil
}

// store 返回本次请求作用的库，libraryId 用于隐式打开或校验绑定
func (h *WSHandler) store(ctx context.Context, c *pkgapp.WebsocketClient, env *pkgapp.Envelope) (domain.LibraryStore, error) {
	s, err := session(c)
	if err != nil {
		return nil, err
	}
	return s.Store(ctx, env.LibraryID)
}

// logInfo 记录信息日志，包含 Trace ID
func (h *WSHandler) logInfo(c *pkgapp.WebsocketClient, method string, fields ...zap.Field) {
	allFields := append([]zap.Field{zap.String(logpkg.FieldTraceID, GetTraceID(c))}, fields...)
	h.logger.Info(method, allFields...)
}

// logDebug 记录调试日志，包含 Trace ID
func (h *WSHandler) logDebug(c *pkgapp.WebsocketClient, method string, fields ...zap.Field) {
	allFields := append([]zap.Field{zap.String(logpkg.FieldTraceID, GetTraceID(c))}, fields...)
	h.logger.Debug(method, allFields...)
}

// GetTraceID 从 WebSocket 客户端获取 Trace ID
func GetTraceID(c *pkgapp.WebsocketClient) string {
	if c == nil {
		return ""
	}
	return c.TraceID
}

// explicitNull data 中存在该字段且值为 null
func explicitNull(env *pkgapp.Envelope, key string) bool {
	m, ok := env.RawData().(map[string]any)
	if !ok {
		return false
	}
	v, present := m[key]
	return present && v == nil
}

// titleOf 去除首尾空白后的标题
func titleOf(s string) string {
	return strings.TrimSpace(s)
}
