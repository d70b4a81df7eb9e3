package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	internalApp "github.com/haierkeys/fast-library-service/internal/app"
	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/pkg/fileurl"
	"github.com/haierkeys/fast-library-service/pkg/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// bootstrapLogger 启动阶段日志器
// 用于在主日志器初始化之前记录启动过程中的日志
var bootstrapLogger *zap.Logger

func init() {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	consoleWriter := zapcore.Lock(os.Stderr)

	// 根据 DEBUG 环境变量设置日志级别
	level := zapcore.InfoLevel
	if os.Getenv("DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(consoleEncoder, consoleWriter, level)
	bootstrapLogger = zap.New(core, zap.AddCaller())
}

// BootstrapLogger 获取启动阶段日志器
func BootstrapLogger() *zap.Logger {
	return bootstrapLogger
}

// resolveConfig 未指定配置文件时按顺序查找，都不存在则写出默认配置
func resolveConfig(config string) (string, error) {
	if len(config) > 0 {
		return config, nil
	}
	for _, f := range []string{"config/config-dev.yaml", "config.yaml", "config/config.yaml"} {
		if fileurl.IsExist(f) {
			return f, nil
		}
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	config = "config/config.yaml"
	if err := fileurl.CreatePath(config, os.ModePerm); err != nil {
		return "", fmt.Errorf("config file auto create: %w", err)
	}
	if err := os.WriteFile(config, []byte(configDefault), 0666); err != nil {
		return "", fmt.Errorf("config file auto create writing: %w", err)
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", config))
	return config, nil
}

// runtime 命令共用的配置、日志与主数据库
type runtime struct {
	config         *internalApp.AppConfig
	configRealpath string
	logger         *zap.Logger
	db             *gorm.DB
}

func loadRuntime(config string) (*runtime, error) {
	appConfig, configRealpath, err := internalApp.LoadConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	rt := &runtime{config: appConfig, configRealpath: configRealpath}

	lg, err := logger.NewLogger(logger.Config{
		Level:      appConfig.Log.Level,
		File:       appConfig.Log.File,
		Production: appConfig.Log.Production,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	rt.logger = lg

	if err := initStorageWithConfig(appConfig); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	db, err := dao.NewDBEngineWithConfig(appConfig.GetDatabaseConfig(), lg)
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}
	rt.db = db
	return rt, nil
}

// initStorageWithConfig 初始化存储目录
func initStorageWithConfig(cfg *internalApp.AppConfig) error {
	dirs := []string{
		filepath.Dir(cfg.Log.File),
		cfg.Library.DataDir,
	}
	if cfg.Database.Type == "" || cfg.Database.Type == "sqlite" {
		dirs = append(dirs, filepath.Dir(cfg.Database.Path))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
