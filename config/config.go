package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀，嵌套字段用双下划线分隔:
// YESNO_DATABASE__DSN -> database.dsn
const EnvPrefix = "YESNO_"

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths 按优先级查找的配置文件
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config 应用配置
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Redis      RedisConfig      `koanf:"redis"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	SoftDelete SoftDeleteConfig `koanf:"soft_delete"`
	Features   FeaturesConfig   `koanf:"features"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Environment     string        `koanf:"environment"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres, mysql, sqlite
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	LogLevel     string `koanf:"log_level"`
}

// AuthConfig 两级凭证：用户JWT密钥与服务角色密钥
type AuthConfig struct {
	JWTSecret       string   `koanf:"jwt_secret"`
	ServiceRoleKey  string   `koanf:"service_role_key"`
	BootstrapAdmins []string `koanf:"bootstrap_admins"`
}

// RedisConfig Redis配置，未启用时限流、锁与事件分发都退回进程内实现
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// RateLimitConfig 限流器配置
type RateLimitConfig struct {
	Enabled     bool `koanf:"enabled"`
	GlobalRate  int  `koanf:"global_rate"`
	GlobalBurst int  `koanf:"global_burst"`
	UserRate    int  `koanf:"user_rate"`
	UserBurst   int  `koanf:"user_burst"`
}

// SoftDeleteConfig 软删除与撤销窗口配置
type SoftDeleteConfig struct {
	UndoWindow    time.Duration `koanf:"undo_window"`
	PurgeEnabled  bool          `koanf:"purge_enabled"`
	PurgeAfter    time.Duration `koanf:"purge_after"`
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// FeaturesConfig 功能开关
type FeaturesConfig struct {
	MultiChoice bool `koanf:"multi_choice"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Environment:     "development",
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			LogLevel:     "warn",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			GlobalRate:  100,
			GlobalBurst: 200,
			UserRate:    10,
			UserBurst:   20,
		},
		SoftDelete: SoftDeleteConfig{
			UndoWindow:    30 * time.Second,
			PurgeAfter:    24 * time.Hour,
			PurgeInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序加载配置
func Load() (*Config, error) {
	// .env 只是开发便利，缺失不算错误
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("加载配置文件 %s 失败: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	for _, key := range []string{"auth.bootstrap_admins", "server.cors_origins"} {
		if s, ok := k.Get(key).(string); ok {
			_ = k.Set(key, splitList(s))
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.SoftDelete.UndoWindow <= 0 {
		errs = append(errs, errors.New("soft_delete.undo_window must be positive"))
	}
	if c.SoftDelete.PurgeEnabled {
		if c.SoftDelete.PurgeAfter < c.SoftDelete.UndoWindow {
			errs = append(errs, errors.New("soft_delete.purge_after must not be shorter than the undo window"))
		}
		if c.SoftDelete.PurgeInterval <= 0 {
			errs = append(errs, errors.New("soft_delete.purge_interval must be positive"))
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.GlobalRate <= 0 || c.RateLimit.UserRate <= 0) {
		errs = append(errs, errors.New("rate_limit rates must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
