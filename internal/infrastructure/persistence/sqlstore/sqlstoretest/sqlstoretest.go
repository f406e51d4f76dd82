// Package sqlstoretest 为其他包的测试提供内存 SQLite 存储
package sqlstoretest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/infrastructure/persistence/sqlstore"
)

// Store 测试用的全部仓储
type Store struct {
	Client       *sqlstore.Client
	Brands       *sqlstore.BrandRepository
	Personas     *sqlstore.PersonaRepository
	Environments *sqlstore.EnvironmentRepository
	Influencers  *sqlstore.InfluencerRepository
	Cards        *sqlstore.CardRepository
	Runs         *sqlstore.WorkflowRunRepository
	Tx           *sqlstore.TxManager
}

// New 创建已迁移的内存库，测试结束自动关闭
func New(t testing.TB) *Store {
	t.Helper()
	client, err := sqlstore.NewClient(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	}, sqlstore.WithLogLevel(gormlogger.Silent))
	require.NoError(t, err)
	require.NoError(t, client.AutoMigrate(context.Background()))
	t.Cleanup(func() { _ = client.Close() })

	return &Store{
		Client:       client,
		Brands:       sqlstore.NewBrandRepository(client),
		Personas:     sqlstore.NewPersonaRepository(client),
		Environments: sqlstore.NewEnvironmentRepository(client),
		Influencers:  sqlstore.NewInfluencerRepository(client),
		Cards:        sqlstore.NewCardRepository(client),
		Runs:         sqlstore.NewWorkflowRunRepository(client),
		Tx:           sqlstore.NewTxManager(client),
	}
}
