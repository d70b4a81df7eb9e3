package routers

import (
	"time"

	"github.com/haierkeys/fast-library-service/internal/app"
	"github.com/haierkeys/fast-library-service/internal/dto"
	"github.com/haierkeys/fast-library-service/internal/middleware"
	"github.com/haierkeys/fast-library-service/internal/routers/websocket_router"
	"github.com/haierkeys/fast-library-service/internal/service"
	pkgapp "github.com/haierkeys/fast-library-service/pkg/app"
	"github.com/haierkeys/fast-library-service/pkg/code"
	"github.com/haierkeys/fast-library-service/pkg/limiter"
	"github.com/haierkeys/fast-library-service/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
)

var methodLimiters = limiter.NewKeyLimiter().AddBuckets(
	limiter.BucketRule{
		Key:          "/api/health",
		FillInterval: time.Second,
		Capacity:     20,
		Quantum:      20,
	},
)

// NewWebsocketServer 按配置创建 websocket 服务器并注册分发表与会话工厂
func NewWebsocketServer(appContainer *app.App, observer pkgapp.Observer) (*pkgapp.WebsocketServer, error) {
	cfg := appContainer.Config().Websocket

	validator, err := pkgapp.NewValidator()
	if err != nil {
		return nil, err
	}

	wss, err := pkgapp.NewWebsocketServer(pkgapp.WSConfig{
		GWSOption: gws.ServerOption{
			CheckUtf8Enabled:    true,
			ParallelEnabled:     cfg.ParallelLimit > 1,                // 开启并行消息处理
			ParallelGolimit:     cfg.ParallelLimit,
			Recovery:            gws.Recovery,                         // 开启异常恢复
			PermessageDeflate:   gws.PermessageDeflate{Enabled: true}, // 开启压缩
			ReadMaxPayloadSize:  cfg.MaxPayloadSize,
			WriteMaxPayloadSize: cfg.MaxPayloadSize,
		},
		PingInterval:   util.MustParseDuration(cfg.PingInterval, pkgapp.WebSocketServerPingInterval),
		PingWait:       util.MustParseDuration(cfg.PingWait, pkgapp.WebSocketServerPingWait),
		RequestTimeout: appContainer.Config().GetRequestTimeout(),
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}, appContainer.Logger())
	if err != nil {
		return nil, err
	}

	websocket_router.Register(wss, websocket_router.NewWSHandler(appContainer.Logger(), validator))

	svc := appContainer.LibraryService
	wss.UseSession(func(*pkgapp.WebsocketClient) pkgapp.Session {
		return service.NewSession(svc)
	})
	wss.UseObserver(observer)
	return wss, nil
}

// NewRouter 创建对外 HTTP 路由：websocket 入口、健康检查与版本
func NewRouter(appContainer *app.App, wss *pkgapp.WebsocketServer) *gin.Engine {

	cfg := appContainer.Config()

	r := gin.New()
	r.Use(middleware.RecoveryWithLogger(appContainer.Logger()))
	r.Use(middleware.TraceMiddlewareWithConfig(cfg.Tracer.Enabled, cfg.Tracer.Header))

	r.GET(cfg.Websocket.Path, wss.Run())

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfoWithConfig(app.Name, appContainer.Version().Version))
		api.Use(middleware.RateLimiter(methodLimiters))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))
		api.Use(middleware.AccessLogWithLogger(appContainer.Logger()))

		api.GET("/health", func(c *gin.Context) {
			status := "ok"
			if appContainer.IsShuttingDown() {
				status = "shutting_down"
			}
			pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.HealthResponse{
				Status:      status,
				Connections: wss.ClientCount(),
				Libraries:   appContainer.LibraryService.OpenCount(),
			}))
		})

		api.GET("/version", func(c *gin.Context) {
			v := appContainer.Version()
			pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.VersionResponse{
				Name:      app.Name,
				Version:   v.Version,
				GitTag:    v.GitTag,
				BuildTime: v.BuildTime,
			}))
		})
	}

	r.NoRoute(middleware.NoFound())

	return r
}
