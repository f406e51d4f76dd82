// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPlaceholder 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPlaceholder = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	base := os.Getenv("CONFIG_PATH")
	if base == "" {
		base = "configs/config.yaml"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	overlay := strings.TrimSuffix(base, ".yaml") + "." + env + ".yaml"

	return LoadFrom(base, overlay)
}

// LoadFrom 从指定文件加载配置，overlay 文件可选
func LoadFrom(path string, overlay string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := loadConfigFile(v, path, false); err != nil {
		return nil, err
	}
	if overlay != "" {
		if err := loadConfigFile(v, overlay, true); err != nil {
			return nil, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPlaceholder.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		// 保留原样以便识别未定义的变量
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 校验启动时即可确定的配置错误
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case StorageBackendGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required when storage.backend is gcs")
		}
	case StorageBackendLocal:
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}
	if c.Features.Generation.Concurrency < 1 {
		return fmt.Errorf("features.generation.concurrency must be positive")
	}
	if c.Features.Publishing.Concurrency < 1 {
		return fmt.Errorf("features.publishing.concurrency must be positive")
	}
	if c.Features.Generation.MaxCombinations < 0 {
		return fmt.Errorf("features.generation.max_combinations must not be negative")
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "brand-card-studio")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.public_base_url", "http://localhost:8080")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "300s")
	v.SetDefault("server.http.idle_timeout", "120s")

	// 数据库默认值
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.sqlite.path", "data/brand-cards.db")
	v.SetDefault("database.sqlite.busy_timeout", "5s")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "brand_cards")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 50)
	v.SetDefault("cache.redis.min_idle_conns", 5)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.dataset_ttl", "10m")

	// Milvus 默认值
	v.SetDefault("vector.milvus.enabled", false)
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "brand_cards")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)
	v.SetDefault("vector.dedup_threshold", 0.92)

	// 存储默认值
	v.SetDefault("storage.backend", StorageBackendLocal)
	v.SetDefault("storage.local.dir", "data/images")
	v.SetDefault("storage.local.url_prefix", "/media")
	v.SetDefault("storage.gcs.prefix", "generated")

	// LLM / 图片默认值
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("image.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("image.model", "google/gemini-2.5-flash-image")
	v.SetDefault("image.size", "1K")
	v.SetDefault("image.timeout", "120s")

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.enabled", false)
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "brand-cards")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "30s")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "2s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "60s")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.limit", 10)
	v.SetDefault("security.rate_limit.window", "1m")
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "X-Request-ID"})

	// 功能开关默认值
	v.SetDefault("features.generation.concurrency", 2)
	v.SetDefault("features.generation.max_combinations", 200)
	v.SetDefault("features.generation.fallback_all_influencers", true)
	v.SetDefault("features.generation.safety_fail_open", false)
	v.SetDefault("features.generation.semantic_dedup", false)
	v.SetDefault("features.publishing.concurrency", 5)
	v.SetDefault("features.onboarding.fetch_timeout", "10s")
	v.SetDefault("features.onboarding.max_content_len", 50000)
}
