// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"brand-card-studio/internal/config"
	"brand-card-studio/internal/infrastructure/messaging"
	einoobs "brand-card-studio/internal/observability/eino"
	"brand-card-studio/internal/wire"
	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/tracer"
)

// dlqAlertThreshold 死信流超过该长度时告警
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	consumer := worker.Consumer

	consumer.RegisterHandler(messaging.TypeCardGeneration, func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.CardGenerationPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		result, err := worker.Pipeline.Generate(ctx, payload.BrandID)
		if err != nil {
			return err
		}
		logger.Info(ctx, "card generation finished",
			"brand_id", payload.BrandID,
			"generated", result.TotalGenerated,
		)
		return nil
	})

	consumer.RegisterHandler(messaging.TypeInfluencerImagery, func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.InfluencerImageryPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		_, err := worker.Provisioner.ProvisionImagery(ctx, payload.InfluencerID)
		return err
	})

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.MonitorDLQ(ctx, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	cancel()
	consumer.Stop()
}
