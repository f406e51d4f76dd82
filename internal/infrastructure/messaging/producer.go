package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"brand-card-studio/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流，返回流内消息 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishCardGeneration 发布品牌卡片生成任务
func (p *Producer) PublishCardGeneration(ctx context.Context, brandID string) (string, error) {
	msg, err := NewMessage(TypeCardGeneration, brandID, &CardGenerationPayload{BrandID: brandID})
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamCardJobs, msg)
}

// PublishInfluencerImagery 发布网红形象生成任务
func (p *Producer) PublishInfluencerImagery(ctx context.Context, influencerID string) (string, error) {
	msg, err := NewMessage(TypeInfluencerImagery, "", &InfluencerImageryPayload{InfluencerID: influencerID})
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamCardJobs, msg)
}
