// Package sqlstore 提供基于 GORM 的实体存储实现，支持 PostgreSQL 与嵌入式 SQLite
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/domain/entity"
)

var tracer = otel.Tracer("sqlstore")

// Client 数据库客户端（GORM 版本）
type Client struct {
	db     *gorm.DB
	driver string
}

// Option 客户端选项
type Option func(*gorm.Config)

// WithLogLevel 设置 GORM 日志级别
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(c *gorm.Config) {
		c.Logger = newGormLogger(level)
	}
}

// NewClient 按配置的驱动创建数据库客户端
func NewClient(cfg *config.DatabaseConfig, opts ...Option) (*Client, error) {
	gormConfig := &gorm.Config{
		Logger: newGormLogger(gormlogger.Warn),
		// 唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	}
	for _, opt := range opts {
		opt(gormConfig)
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime)
	case config.DriverSQLite:
		// SQLite 单写者，内存库也依赖同一连接存活
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db, driver: cfg.Driver}, nil
}

// openDialector 根据驱动选择方言，只在启动时调用一次
func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.Postgres.DSN()), nil
	case config.DriverSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			return nil, fmt.Errorf("database.sqlite.path is required")
		}
		if path != ":memory:" {
			if err := ensureDir(path); err != nil {
				return nil, err
			}
		}
		busy := cfg.SQLite.BusyTimeout
		if busy <= 0 {
			busy = 5 * time.Second
		}
		return sqlite.Open(fmt.Sprintf("%s?_busy_timeout=%d", path, busy.Milliseconds())), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// Driver 返回当前驱动名称
func (c *Client) Driver() string {
	return c.driver
}

// DB 获取 GORM DB 实例
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SqlDB 获取底层 sql.DB（用于健康检查等）
func (c *Client) SqlDB() (*sql.DB, error) {
	return c.db.DB()
}

// Close 关闭数据库连接
func (c *Client) Close() error {
	sqlDB, err := c.SqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 按实体定义同步表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlstore.AutoMigrate")
	defer span.End()

	err := c.db.WithContext(ctx).AutoMigrate(
		&entity.Brand{},
		&entity.Persona{},
		&entity.Environment{},
		&entity.Influencer{},
		&entity.Card{},
		&entity.WorkflowRun{},
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlstore.HealthCheck")
	defer span.End()

	sqlDB, err := c.SqlDB()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
