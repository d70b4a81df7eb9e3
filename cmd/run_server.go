package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	internalApp "github.com/haierkeys/fast-library-service/internal/app"
	"github.com/haierkeys/fast-library-service/internal/metrics"
	"github.com/haierkeys/fast-library-service/internal/routers"
	"github.com/haierkeys/fast-library-service/internal/task"
	"github.com/haierkeys/fast-library-service/pkg/safe_close"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	logger            *zap.Logger            // 日志对象
	config            *internalApp.AppConfig // 应用配置（注入的依赖）
	db                *gorm.DB               // 主数据库连接
	httpServer        *http.Server
	privateHttpServer *http.Server
	registry          *prometheus.Registry
	sc                *safe_close.SafeClose
	app               *internalApp.App // App Container
}

func NewServer(runEnv *runFlags) (*Server, error) {
	rt, err := loadRuntime(runEnv.config)
	if err != nil {
		return nil, err
	}
	appConfig := rt.config

	// 确定运行模式
	runMode := runEnv.runMode
	if len(runMode) <= 0 {
		runMode = appConfig.Server.RunMode
	}
	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
	}

	s := &Server{
		logger: rt.logger,
		config: appConfig,
		db:     rt.db,
		// 每次重载使用新的注册表，避免重复注册
		registry: prometheus.NewRegistry(),
		sc:       safe_close.NewSafeClose(),
	}

	app, err := internalApp.NewApp(appConfig, s.logger, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	m, err := metrics.New(s.registry, app.LibraryService.OpenCount,
		metrics.WithWorkerPool(app.WorkerPool().ActiveCount, app.WorkerPool().QueuedCount),
		metrics.WithWriteQueues(app.WriteQueueManager().QueueCount))
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	wss, err := routers.NewWebsocketServer(app, m)
	if err != nil {
		return nil, fmt.Errorf("websocket server: %w", err)
	}

	// 启动调度器
	initScheduler(s)

	banner := `
    ______           __     __    _ __
   / ____/___ ______/ /_   / /   (_) /_  _________ ________  __
  / /_  / __ '/ ___/ __/  / /   / / __ \/ ___/ __ '/ ___/ / / /
 / __/ / /_/ (__  ) /_   / /___/ / /_/ / /  / /_/ / /  / /_/ /
/_/    \__,_/____/\__/  /_____/_/_.___/_/   \__,_/_/   \__, /
                                                      /____/  `
	s.logger.Warn(fmt.Sprintf("%s\n\n%s v%s\nGit: %s\nBuildTime: %s\n", banner, internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))
	s.logger.Warn("config loaded", zap.String("path", rt.configRealpath))

	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", httpAddr))
		s.httpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewRouter(s.app, wss),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTP("api service", s.httpServer)
	}

	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Info("api_router", zap.String("config.server.PrivateHttpListen", httpAddr))
		s.privateHttpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewPrivateRouterWithLogger(appConfig.Server.RunMode, s.logger, s.registry),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTP("private api service", s.privateHttpServer)
	}

	// 注册 App Container 的优雅关闭
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal
		if s.app == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := s.app.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown app container", zap.Error(err))
		} else {
			s.logger.Info("App container shutdown gracefully")
		}
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return s, nil
}

// attachHTTP 启动 HTTP 服务器，收到关闭信号时优雅停止
func (s *Server) attachHTTP(name string, srv *http.Server) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			if !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error(name+" err", zap.Error(err))
				s.sc.SendCloseSignal(err)
			}
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// 停止HTTP服务器
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error(name+" shutdown error", zap.Error(err))
			}
		}
	})
}

func initScheduler(s *Server) {
	manager := task.NewManager(s.logger, s.sc, s.app)

	// 注册所有任务(业务层控制)
	if err := manager.RegisterTasks(); err != nil {
		s.logger.Error("failed to register tasks", zap.Error(err))
		return
	}
	manager.Start()
}

// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.app
}

// GetConfig 获取应用配置
func (s *Server) GetConfig() *internalApp.AppConfig {
	return s.config
}
