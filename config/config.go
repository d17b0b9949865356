// Package config 加载应用配置：YAML 文件、CRUDKIT_ 前缀的环境变量与默认值。
//
// 优先级从高到低：环境变量（例如 CRUDKIT_HTTP_ADDR）、配置文件、默认值。
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"crudkit/errors"
	"crudkit/logging"
	core "crudkit/storage/database"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "CRUDKIT"

// 事件发布后端
const (
	BackendNone  = "none"
	BackendSync  = "sync"
	BackendRedis = "redis"
	BackendNATS  = "nats"
)

// Config 应用配置
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Events   EventsConfig   `mapstructure:"events"`
	IDs      IDsConfig      `mapstructure:"ids"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBConfig 转换为存储层连接配置
func (d DatabaseConfig) DBConfig() core.DBConfig {
	return core.DBConfig{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type EventsConfig struct {
	// Backend none|sync|redis|nats
	Backend string `mapstructure:"backend"`
	// SubjectPrefix 消息类型前缀，例如 crud.
	SubjectPrefix string      `mapstructure:"subject_prefix"`
	Redis         RedisConfig `mapstructure:"redis"`
	NATS          NATSConfig  `mapstructure:"nats"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	StreamPrefix string `mapstructure:"stream_prefix"`
	MaxLen       int64  `mapstructure:"max_len"`
}

type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Stream string `mapstructure:"stream"`
}

// IDsConfig 雪花 id 生成器节点配置
type IDsConfig struct {
	DatacenterID int64 `mapstructure:"datacenter_id"`
	WorkerID     int64 `mapstructure:"worker_id"`
}

type LogConfig struct {
	Prefix string `mapstructure:"prefix"`
	Level  string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ":memory:")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.default_page_size", 20)
	v.SetDefault("http.max_page_size", 100)
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("events.backend", BackendNone)
	v.SetDefault("events.subject_prefix", "crud.")
	v.SetDefault("events.redis.addr", "localhost:6379")
	v.SetDefault("events.redis.stream_prefix", "crudkit:")
	v.SetDefault("events.redis.max_len", 0)
	v.SetDefault("events.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("events.nats.stream", "CRUDKIT")

	v.SetDefault("ids.datacenter_id", 0)
	v.SetDefault("ids.worker_id", 0)

	v.SetDefault("log.prefix", "crudkit")
	v.SetDefault("log.level", "info")
}

// NewViper 创建已设置默认值与环境变量映射的 viper 实例；path 为空时不读取文件
func NewViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Load 读取并校验配置。path 为空或文件不存在时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := NewViper(path)
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// ReadFile 读取 NewViper 时指定的配置文件；path 为空或文件不存在时什么也不做
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if err := v.ReadInConfig(); err != nil && !isNotFound(err) {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "read config "+path)
	}
	return nil
}

// FromViper 从已配置的 viper 实例解码并校验，便于与命令行参数绑定
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return stderrors.As(err, &notFound) || stderrors.Is(err, os.ErrNotExist)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Events.Backend {
	case BackendNone, BackendSync, BackendRedis, BackendNATS:
	default:
		return invalid(fmt.Sprintf("events.backend must be one of none, sync, redis, nats (got %q)", c.Events.Backend))
	}
	if c.Events.Backend == BackendRedis && c.Events.Redis.Addr == "" {
		return invalid("events.redis.addr is required for the redis backend")
	}
	if c.Events.Backend == BackendNATS && c.Events.NATS.URL == "" {
		return invalid("events.nats.url is required for the nats backend")
	}
	if c.Database.DSN == "" {
		return invalid("database.dsn is required")
	}
	if c.HTTP.DefaultPageSize <= 0 {
		return invalid(fmt.Sprintf("http.default_page_size must be positive (got %d)", c.HTTP.DefaultPageSize))
	}
	if c.HTTP.MaxPageSize > 0 && c.HTTP.DefaultPageSize > c.HTTP.MaxPageSize {
		return invalid(fmt.Sprintf("http.default_page_size %d exceeds http.max_page_size %d",
			c.HTTP.DefaultPageSize, c.HTTP.MaxPageSize))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "log.level")
	}
	return nil
}

// Logger 按 log 配置创建日志器
func (c *Config) Logger() logging.Logger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.NewStdLogger(c.Log.Prefix, logging.WithLevel(level))
}

func invalid(message string) error {
	return errors.NewError(errors.ErrCodeInvalidInput, message)
}
