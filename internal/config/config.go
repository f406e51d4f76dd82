// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Database      DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Storage       StorageConfig       `yaml:"storage" mapstructure:"storage"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Image         ImageConfig         `yaml:"image" mapstructure:"image"`
	Messaging     MessagingConfig     `yaml:"messaging" mapstructure:"messaging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Features      FeaturesConfig      `yaml:"features" mapstructure:"features"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
	// PublicBaseURL 数据集页面等对外链接的前缀
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
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
}

// Addr 返回监听地址
func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// 数据库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Driver 选择存储后端: postgres | sqlite，启动时确定
	Driver   string         `yaml:"driver" mapstructure:"driver"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite" mapstructure:"sqlite"`
	// AutoMigrate 启动时按实体定义同步表结构
	AutoMigrate bool `yaml:"auto_migrate" mapstructure:"auto_migrate"`
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

// DSN 返回 PostgreSQL 连接串
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SQLiteConfig 嵌入式 SQLite 配置
type SQLiteConfig struct {
	Path        string        `yaml:"path" mapstructure:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis      RedisConfig   `yaml:"redis" mapstructure:"redis"`
	DatasetTTL time.Duration `yaml:"dataset_ttl" mapstructure:"dataset_ttl"`
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

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
	// DedupThreshold 语义去重的余弦相似度阈值
	DedupThreshold float64 `yaml:"dedup_threshold" mapstructure:"dedup_threshold"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	CollectionPrefix   string `yaml:"collection_prefix" mapstructure:"collection_prefix"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// 图片存储后端
const (
	StorageBackendGCS   = "gcs"
	StorageBackendLocal = "local"
)

// StorageConfig 生成图片存储配置
type StorageConfig struct {
	Backend string     `yaml:"backend" mapstructure:"backend"`
	GCS     GCSConfig  `yaml:"gcs" mapstructure:"gcs"`
	Local   LocalStore `yaml:"local" mapstructure:"local"`
}

// GCSConfig Google Cloud Storage 配置
type GCSConfig struct {
	Bucket        string `yaml:"bucket" mapstructure:"bucket"`
	Prefix        string `yaml:"prefix" mapstructure:"prefix"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// LocalStore 本地目录存储配置
type LocalStore struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
	// URLPrefix 对外访问路径前缀，由 HTTP 层挂载静态目录
	URLPrefix string `yaml:"url_prefix" mapstructure:"url_prefix"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
}

// ImageConfig 图片生成服务配置
type ImageConfig struct {
	APIKey  string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Size    string        `yaml:"size" mapstructure:"size"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MessagingConfig 消息队列配置
type MessagingConfig struct {
	RedisStream RedisStreamConfig `yaml:"redis_stream" mapstructure:"redis_stream"`
}

// RedisStreamConfig Redis Stream 配置
type RedisStreamConfig struct {
	Enabled             bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxLen              int           `yaml:"max_len" mapstructure:"max_len"`
	ConsumerGroupPrefix string        `yaml:"consumer_group_prefix" mapstructure:"consumer_group_prefix"`
	BlockTimeout        time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	ClaimInterval       time.Duration `yaml:"claim_interval" mapstructure:"claim_interval"`
	RetryLimit          int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff        BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
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

// RateLimitConfig 生成接口限流配置
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Limit   int           `yaml:"limit" mapstructure:"limit"`
	Window  time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

// FeaturesConfig 功能开关配置
type FeaturesConfig struct {
	Generation GenerationFeature `yaml:"generation" mapstructure:"generation"`
	Publishing PublishingFeature `yaml:"publishing" mapstructure:"publishing"`
	Onboarding OnboardingFeature `yaml:"onboarding" mapstructure:"onboarding"`
}

// GenerationFeature 卡片生成流水线配置
type GenerationFeature struct {
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxCombinations int `yaml:"max_combinations" mapstructure:"max_combinations"`
	// FallbackAllInfluencers 无可用网红时退回使用全部网红
	FallbackAllInfluencers bool `yaml:"fallback_all_influencers" mapstructure:"fallback_all_influencers"`
	// SafetyFailOpen 安全审核输出无法解析时视为通过
	SafetyFailOpen bool `yaml:"safety_fail_open" mapstructure:"safety_fail_open"`
	SemanticDedup  bool `yaml:"semantic_dedup" mapstructure:"semantic_dedup"`
}

// PublishingFeature 发布流水线配置
type PublishingFeature struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// OnboardingFeature 品牌接入配置
type OnboardingFeature struct {
	FetchTimeout  time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	MaxContentLen int           `yaml:"max_content_len" mapstructure:"max_content_len"`
}
