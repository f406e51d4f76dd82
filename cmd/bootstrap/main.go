// Package main 初始化工具：同步表结构并准备初始网红池
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/wire"
	"brand-card-studio/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Prepare the database and seed data",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return nil
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables for all entities",
	RunE:  runMigrate,
}

var seedCount int

// seedCmd 网红池不足 count 时补齐
var seedCmd = &cobra.Command{
	Use:   "seed-influencers",
	Short: "Ensure the influencer pool has at least --count members",
	RunE:  runSeedInfluencers,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 3, "minimum number of influencers")
	rootCmd.AddCommand(migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// 数据层初始化时 auto_migrate 关闭，由本命令显式执行
	cfg.Database.AutoMigrate = false
	data, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize data layer: %w", err)
	}
	defer cleanup()

	if err := data.Client.AutoMigrate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration completed (%s).\n", data.Client.Driver())
	return nil
}

func runSeedInfluencers(cmd *cobra.Command, _ []string) error {
	if seedCount < 1 {
		return fmt.Errorf("--count must be positive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	data, cleanup, err := wire.InitializeDataLayer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize data layer: %w", err)
	}
	defer cleanup()

	existing, err := data.Influencers.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list influencers: %w", err)
	}
	missing := seedCount - len(existing)
	if missing <= 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Influencer pool already has %d members.\n", len(existing))
		return nil
	}

	created, err := data.Provisioner.FindNew(ctx, missing)
	if err != nil {
		return err
	}
	for _, inf := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created influencer %s (%s), status %s\n", inf.Name, inf.ID, inf.Status)
	}
	return nil
}
