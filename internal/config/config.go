// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"strings"
	"time"
)

// 生成模式
const (
	GenerationModeSequential = "sequential"
	GenerationModeParallel   = "parallel"
)

// 历史记录后端
const (
	HistoryBackendMemory   = "memory"
	HistoryBackendFile     = "file"
	HistoryBackendRedis    = "redis"
	HistoryBackendPostgres = "postgres"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Generation    GenerationConfig    `yaml:"generation" mapstructure:"generation"`
	Analysis      AnalysisConfig      `yaml:"analysis" mapstructure:"analysis"`
	History       HistoryConfig       `yaml:"history" mapstructure:"history"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// MaxBodyBytes 请求体上限（参考图以 base64 传输）
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// LLMConfig Gemini 模型配置
type LLMConfig struct {
	APIKey        string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	APIVersion    string        `yaml:"api_version" mapstructure:"api_version"`
	ImageModel    string        `yaml:"image_model" mapstructure:"image_model"`
	AnalysisModel string        `yaml:"analysis_model" mapstructure:"analysis_model"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	PreferIPv4    bool          `yaml:"prefer_ipv4" mapstructure:"prefer_ipv4"`
}

// GenerationConfig 批量生成配置
type GenerationConfig struct {
	// Mode sequential（默认，逐个调用并间隔等待）或 parallel（并发扇出）
	Mode string `yaml:"mode" mapstructure:"mode"`
	// SequentialDelay 顺序模式下两次调用之间的等待时间
	SequentialDelay time.Duration `yaml:"sequential_delay" mapstructure:"sequential_delay"`
	// RequestTimeout 单次 /generate 请求的整体时限
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// AnalysisConfig 视觉分析配置
type AnalysisConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// HistoryConfig 历史记录配置
type HistoryConfig struct {
	Backend  string `yaml:"backend" mapstructure:"backend"`
	Capacity int    `yaml:"capacity" mapstructure:"capacity"`
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
	RedisKey string `yaml:"redis_key" mapstructure:"redis_key"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// DSN 构建 lib/pq 连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置（保护上游按分钟计的配额）
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Requests int           `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// ValidateCredentials 校验模型凭证
func (c *Config) ValidateCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	return nil
}

// Validate 校验配置（不含凭证）
func (c *Config) Validate() error {
	switch c.Generation.Mode {
	case GenerationModeSequential, GenerationModeParallel:
	default:
		return fmt.Errorf("unknown generation mode: %q", c.Generation.Mode)
	}
	if c.Generation.SequentialDelay < 0 {
		return fmt.Errorf("generation.sequential_delay must not be negative")
	}

	switch c.History.Backend {
	case HistoryBackendMemory:
	case HistoryBackendFile:
		if strings.TrimSpace(c.History.FilePath) == "" {
			return fmt.Errorf("history.file_path is required for the file backend")
		}
	case HistoryBackendRedis:
		if !c.Cache.Redis.Enabled {
			return fmt.Errorf("history backend redis requires cache.redis.enabled")
		}
	case HistoryBackendPostgres:
	default:
		return fmt.Errorf("unknown history backend: %q", c.History.Backend)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("history.capacity must be positive")
	}

	return nil
}
