package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/code"
	pkgerrors "github.com/haierkeys/fast-library-service/pkg/errors"
	"github.com/haierkeys/fast-library-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/juju/ratelimit"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	WebSocketServerPingInterval = 25 * time.Second
	WebSocketServerPingWait     = 40 * time.Second
	// WebSocketCloseMessage 客户端发送该文本帧请求关闭连接
	WebSocketCloseMessage = "close"
)

// Session 连接级会话状态，连接关闭时释放
type Session interface {
	Close(ctx context.Context) error
}

// Handler 处理一条信封并返回结果，错误由服务器统一格式化
type Handler interface {
	Handle(ctx context.Context, c *WebsocketClient, env *Envelope) (any, error)
}

// HandlerFunc 函数适配器
type HandlerFunc func(ctx context.Context, c *WebsocketClient, env *Envelope) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, c *WebsocketClient, env *Envelope) (any, error) {
	return f(ctx, c, env)
}

// Observer 连接与请求的观测钩子
type Observer interface {
	ConnOpened()
	ConnClosed()
	RequestDone(route Route, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ConnOpened()                             {}
func (nopObserver) ConnClosed()                             {}
func (nopObserver) RequestDone(Route, error, time.Duration) {}

// WSConfig 服务器配置
type WSConfig struct {
	GWSOption    gws.ServerOption
	PingInterval time.Duration
	PingWait     time.Duration
	// RequestTimeout 单条请求的处理超时，0 表示不限
	RequestTimeout time.Duration
	// RateLimit 每个连接每秒允许的请求数，0 表示不限
	RateLimit int64
	RateBurst int64
}

// WebsocketClient 存储每个 WebSocket 连接及其相关状态
type WebsocketClient struct {
	conn    *gws.Conn
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	bucket  *ratelimit.Bucket
	TraceID string
	Remote  string

	mu      sync.Mutex
	session Session
}

// Context 连接级 context，连接关闭时取消
func (c *WebsocketClient) Context() context.Context {
	return c.ctx
}

// Session 返回连接的会话
func (c *WebsocketClient) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession 设置会话，用于测试或延迟创建
func (c *WebsocketClient) SetSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// Send 向该连接写入一个文本帧
func (c *WebsocketClient) Send(payload []byte) error {
	if c.conn == nil {
		return errors.New("websocket connection is not established")
	}
	return c.conn.WriteMessage(gws.OpcodeText, payload)
}

// PingLoop 定期发送 Ping 消息
func (c *WebsocketClient) PingLoop(interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WritePing(nil); err != nil {
				logger.Debug("websocket ping failed", zap.String("traceId", c.TraceID), zap.Error(err))
				return
			}
		}
	}
}

// ------------------------------------> WebsocketServer

type ConnStorage = map[*gws.Conn]*WebsocketClient

type WebsocketServer struct {
	handlers       map[Route]Handler
	sessionFactory func(*WebsocketClient) Session
	clients        ConnStorage
	mu             sync.RWMutex
	up             *gws.Upgrader
	config         *WSConfig
	codec          *EnvelopeCodec
	logger         *zap.Logger
	observer       Observer
}

// NewWebsocketServer 创建服务器
func NewWebsocketServer(c WSConfig, logger *zap.Logger) (*WebsocketServer, error) {
	if c.PingInterval <= 0 {
		c.PingInterval = WebSocketServerPingInterval
	}
	if c.PingWait <= 0 {
		c.PingWait = WebSocketServerPingWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	codec, err := NewEnvelopeCodec()
	if err != nil {
		return nil, err
	}
	w := &WebsocketServer{
		handlers: make(map[Route]Handler),
		clients:  make(ConnStorage),
		config:   &c,
		codec:    codec,
		logger:   logger,
		observer: nopObserver{},
	}
	w.up = gws.NewUpgrader(w, &w.config.GWSOption)
	return w, nil
}

// Use 注册 (action, type) 的处理器
func (w *WebsocketServer) Use(route Route, h Handler) {
	w.handlers[route] = h
}

// Routes 返回已注册的路由
func (w *WebsocketServer) Routes() []Route {
	routes := make([]Route, 0, len(w.handlers))
	for r := range w.handlers {
		routes = append(routes, r)
	}
	return routes
}

// UseSession 设置每个连接的会话工厂
func (w *WebsocketServer) UseSession(f func(*WebsocketClient) Session) {
	w.sessionFactory = f
}

// UseObserver 设置观测钩子
func (w *WebsocketServer) UseObserver(o Observer) {
	if o != nil {
		w.observer = o
	}
}

// ClientCount 当前连接数
func (w *WebsocketServer) ClientCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// Run 返回升级连接的 gin 处理函数
func (w *WebsocketServer) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		socket, err := w.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			w.logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		client := &WebsocketClient{
			conn:    socket,
			done:    make(chan struct{}),
			ctx:     ctx,
			cancel:  cancel,
			bucket:  limiter.NewConnBucket(w.config.RateLimit, w.config.RateBurst),
			TraceID: uuid.NewString(),
			Remote:  GetRequestIP(c),
		}
		if w.sessionFactory != nil {
			client.session = w.sessionFactory(client)
		}
		w.addClient(client)
		w.observer.ConnOpened()

		w.logger.Info("websocket client connected",
			zap.String("traceId", client.TraceID),
			zap.String("ip", client.Remote),
			zap.Int("count", w.ClientCount()))

		go client.PingLoop(w.config.PingInterval, w.logger)
		go socket.ReadLoop()
	}
}

func (w *WebsocketServer) getClient(conn *gws.Conn) *WebsocketClient {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.clients[conn]
}

func (w *WebsocketServer) addClient(c *WebsocketClient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[c.conn] = c
}

func (w *WebsocketServer) removeClient(conn *gws.Conn) *WebsocketClient {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.clients[conn]
	delete(w.clients, conn)
	return c
}

func (w *WebsocketServer) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnClose(conn *gws.Conn, err error) {
	c := w.removeClient(conn)
	if c == nil {
		return
	}
	close(c.done)
	c.cancel()
	w.observer.ConnClosed()

	if s := c.Session(); s != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if cerr := s.Close(ctx); cerr != nil {
			w.logger.Warn("websocket session release failed", zap.String("traceId", c.TraceID), zap.Error(cerr))
		}
		cancel()
	}

	w.logger.Info("websocket client disconnected",
		zap.String("traceId", c.TraceID),
		zap.NamedError("reason", err),
		zap.Int("count", w.ClientCount()))
}

func (w *WebsocketServer) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
	_ = socket.WritePong(nil)
}

func (w *WebsocketServer) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))

	if message.Opcode != gws.OpcodeText {
		return
	}
	if message.Data.String() == WebSocketCloseMessage {
		conn.WriteClose(1000, []byte("ClientClose"))
		return
	}

	c := w.getClient(conn)
	if c == nil {
		return
	}

	reply := w.Dispatch(c, message.Data.Bytes())
	if err := c.Send(reply); err != nil {
		w.logger.Debug("websocket reply failed", zap.String("traceId", c.TraceID), zap.Error(err))
	}
}

// Dispatch 处理一条原始消息并返回回复帧，每条消息恰好产生一个回复
func (w *WebsocketServer) Dispatch(c *WebsocketClient, data []byte) []byte {
	env, err := w.codec.Decode(data)
	if err != nil {
		var malformed *ErrMalformed
		if errors.As(err, &malformed) {
			w.logger.Warn("websocket malformed message", zap.String("traceId", c.TraceID), zap.Error(err))
			return w.codec.Malformed()
		}
		return w.fail(c, env, code.ErrorInvalidEnvelope.WithDetails(flattenSchemaError(err)))
	}

	route := env.Route()
	if c.bucket != nil && c.bucket.TakeAvailable(1) == 0 {
		return w.fail(c, env, code.ErrorTooManyRequests)
	}

	h, ok := w.handlers[route]
	if !ok {
		err := code.ErrorUnsupportedOperation.WithDetails(route.String())
		w.observer.RequestDone(UnsupportedRoute, err, 0)
		return w.fail(c, env, err)
	}

	start := time.Now()
	result, err := w.invoke(c, h, env)
	w.observer.RequestDone(route, err, time.Since(start))
	if err != nil {
		return w.fail(c, env, err)
	}

	out, err := w.codec.Success(env, result)
	if err != nil {
		return w.fail(c, env, code.ErrorServerInternal.WithDetails(err.Error()))
	}
	return out
}

func (w *WebsocketServer) invoke(c *WebsocketClient, h Handler, env *Envelope) (result any, err error) {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if w.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.RequestTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("websocket handler panic",
				zap.String("traceId", c.TraceID),
				zap.String("route", env.Route().String()),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = code.ErrorServerInternal.WithDetails(fmt.Sprint(r))
		}
	}()
	return h.Handle(ctx, c, env)
}

func (w *WebsocketServer) fail(c *WebsocketClient, env *Envelope, err error) []byte {
	msg := pkgerrors.Message(err)
	fields := []zap.Field{
		zap.String("traceId", c.TraceID),
		zap.String("action", env.Action),
		zap.String("type", env.Type),
		zap.Any("requestId", env.RequestID),
		zap.String("error", msg),
	}
	if appErr := pkgerrors.GetAppError(err); appErr != nil && appErr.Cause != nil {
		appErr.WithTraceID(c.TraceID)
		fields = append(fields, zap.Int("code", appErr.Code), zap.NamedError("cause", appErr.Cause))
	}
	w.logger.Info("websocket request failed", fields...)
	out, merr := w.codec.Failure(env, msg)
	if merr != nil {
		return w.codec.Malformed()
	}
	return out
}

func flattenSchemaError(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	parts := make([]string, 0, len(lines))
	for _, l := range lines[1:] {
		if l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "-")); l != "" {
			parts = append(parts, l)
		}
	}
	if len(parts) == 0 {
		return lines[0]
	}
	return strings.Join(parts, "; ")
}

// NewTestClient 创建不带网络连接的客户端，用于直接调用 Dispatch
func NewTestClient(s Session) *WebsocketClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebsocketClient{
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		TraceID: uuid.NewString(),
		session: s,
	}
}

// Close 取消测试客户端的 context
func (c *WebsocketClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}
