// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/fast-library-service/internal/dao"
	"github.com/haierkeys/fast-library-service/pkg/util"
	"github.com/haierkeys/fast-library-service/pkg/workerpool"
	"github.com/haierkeys/fast-library-service/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File      string          `yaml:"-"` // 配置文件路径，不序列化
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Library   LibraryConfig   `yaml:"library"`
	Websocket WebsocketConfig `yaml:"websocket"`
	Import    ImportConfig    `yaml:"import"`
	App       AppSettings     `yaml:"app"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时只输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式 debug/release
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 端口，websocket 入口同在此端口
	HttpPort string `yaml:"http-port" default:":9000"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有 HTTP 监听地址（metrics / pprof），为空不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:":9001"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite/mysql/postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 主库文件路径（库注册表）
	Path string `yaml:"path" default:"storage/database/db.sqlite3"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// Port 端口，0 使用驱动默认值
	Port int `yaml:"port"`
	// Name 数据库名，库数据库名为 <name>_<库ID>
	Name string `yaml:"name"`
	// TablePrefix 主库表前缀
	TablePrefix string `yaml:"table-prefix"`
	// Charset 字符集
	Charset string `yaml:"charset"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time"`
	// SSLMode postgres sslmode
	SSLMode string `yaml:"ssl-mode"`
	// MaxIdleConns 最大闲置连接数，默认 10
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，默认 100
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时），默认 30m
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期，默认 10m
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// LibraryConfig 库存储配置
type LibraryConfig struct {
	// DataDir sqlite 库文件默认目录
	DataDir string `yaml:"data-dir" default:"storage/library"`
	// IdleReleaseTime 无人持有的库空闲多久后关闭，0 表示最后一个持有者释放时立即关闭
	IdleReleaseTime string `yaml:"idle-release-time" default:"10m"`
}

// WebsocketConfig websocket 配置
type WebsocketConfig struct {
	// Path websocket 入口路径
	Path string `yaml:"path" default:"/ws"`
	// PingInterval 服务端 ping 间隔
	PingInterval string `yaml:"ping-interval" default:"25s"`
	// PingWait 读超时，超过未收到任何帧则断开
	PingWait string `yaml:"ping-wait" default:"40s"`
	// MaxPayloadSize 单条消息最大字节数
	MaxPayloadSize int `yaml:"max-payload-size" default:"16777216"`
	// ParallelLimit 单连接并发处理的消息数
	ParallelLimit int `yaml:"parallel-limit" default:"8"`
	// RequestTimeout 单条请求处理超时，0 不限
	RequestTimeout string `yaml:"request-timeout" default:"60s"`
	// RateLimit 单连接每秒请求数，0 不限
	RateLimit int64 `yaml:"rate-limit" default:"200"`
	// RateBurst 令牌桶容量
	RateBurst int64 `yaml:"rate-burst" default:"400"`
}

// ImportConfig 定时导入配置，Cron 为空时不启用
type ImportConfig struct {
	// Source 旧版库 sqlite 文件
	Source string `yaml:"source"`
	// Library 目标库 ID
	Library string `yaml:"library" default:"library-1"`
	// Path 目标库存储位置，为空使用 library.data-dir
	Path string `yaml:"path"`
	// MaxItems 合计处理上限，负数不限，0 表示不导入任何记录
	MaxItems *int `yaml:"max-items" default:"-1"`
	// Cron 五段式 cron 表达式
	Cron string `yaml:"cron"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 默认 HTTP 请求超时时间（秒）
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"60"`

	// Worker Pool 配置
	WorkerPoolMaxWorkers int `yaml:"worker-pool-max-workers" default:"100"`
	WorkerPoolQueueSize  int `yaml:"worker-pool-queue-size" default:"1000"`

	// Write Queue 配置
	WriteQueueCapacity int    `yaml:"write-queue-capacity" default:"100"`
	WriteQueueTimeout  string `yaml:"write-queue-timeout" default:"30s"`
	WriteQueueIdleTime string `yaml:"write-queue-idle-time" default:"10m"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// LoadConfig 从文件加载配置
// 先加载工作目录下的 .env，配置中的 ${VAR} 从环境变量展开
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	err = yaml.Unmarshal([]byte(os.ExpandEnv(string(file))), c)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	// defaults.Set 只有在字段为该类型的零值时才会填充
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	return c, realpath, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// GetDatabaseConfig 转换为 DAO 配置
func (c *AppConfig) GetDatabaseConfig() dao.DatabaseConfig {
	return dao.DatabaseConfig{
		Type:            c.Database.Type,
		Path:            c.Database.Path,
		UserName:        c.Database.UserName,
		Password:        c.Database.Password,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		Name:            c.Database.Name,
		TablePrefix:     c.Database.TablePrefix,
		Charset:         c.Database.Charset,
		ParseTime:       c.Database.ParseTime,
		SSLMode:         c.Database.SSLMode,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		RunMode:         c.Server.RunMode,
		LibraryDir:      c.Library.DataDir,
	}
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()

	if c.App.WorkerPoolMaxWorkers > 0 {
		cfg.MaxWorkers = c.App.WorkerPoolMaxWorkers
	}
	if c.App.WorkerPoolQueueSize > 0 {
		cfg.QueueSize = c.App.WorkerPoolQueueSize
	}

	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.App.WriteQueueIdleTime != "" {
		if idleTime, err := util.ParseDuration(c.App.WriteQueueIdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}

	return cfg
}

// GetIdleReleaseTime 库空闲释放时间，解析失败按 0 处理
func (c *AppConfig) GetIdleReleaseTime() time.Duration {
	if d, err := util.ParseDuration(c.Library.IdleReleaseTime); err == nil && d > 0 {
		return d
	}
	return 0
}

// GetRequestTimeout websocket 单条请求超时
// GetImportMaxItems 未配置时返回 -1
func (c *AppConfig) GetImportMaxItems() int {
	if c.Import.MaxItems == nil {
		return -1
	}
	return *c.Import.MaxItems
}

func (c *AppConfig) GetRequestTimeout() time.Duration {
	return util.MustParseDuration(c.Websocket.RequestTimeout, 0)
}
