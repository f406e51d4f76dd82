package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// errRetriesExhausted 重试耗尽后写入死信队列的原因
var errRetriesExhausted = errors.New("message exceeded max retries")

// Consumer 消息消费者
//
// 失败的消息保持 pending，按退避时间由本消费者重新认领处理；
// 投递次数达到上限后移入死信流并确认。
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig

	handlers map[string]MessageHandler
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建消息消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		// 卡片生成可能持续数分钟，其他消费者的消息空闲足够久才接管
		reclaimIdle: maxDuration(10*time.Minute, cfg.Backoff.Max*2),
		retryLimit:  cfg.RetryLimit,
		backoff:     cfg.Backoff,
		handlers:    make(map[string]MessageHandler),
		stopCh:      make(chan struct{}),
	}
}

// RegisterHandler 注册消息处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 创建消费者组并在后台开始消费
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

func (c *Consumer) run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumerName,
	)

	lastClaim := time.Now().Add(-c.claimInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			log.Info("consumer stopped")
			return
		default:
		}

		c.processDuePending(ctx)
		if time.Since(lastClaim) >= c.claimInterval {
			c.reclaimStale(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    1,
			Block:    c.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// decode 解析流消息，格式错误返回 nil
func decode(xmsg redis.XMessage) *Message {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil
	}
	return &msg
}

func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg := decode(xmsg)
	if msg == nil {
		logger.FromContext(ctx).Error("invalid message format", "message_id", xmsg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "invalid").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	if msg.BrandID != "" {
		ctx = logger.WithContext(ctx, logger.BrandIDKey, msg.BrandID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	log := logger.FromContext(ctx)

	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("brand_id", msg.BrandID),
	)

	c.mu.RLock()
	handler, exists := c.handlers[msg.Type]
	c.mu.RUnlock()

	if !exists {
		log.Warn("no handler for message type", "type", msg.Type)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "unhandled").Inc()
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		log.Error("handler failed", "error", err, "message_id", msg.ID)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "failed").Inc()
		c.handleFailure(ctx, xmsg, msg, err)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "success").Inc()
	c.ack(ctx, xmsg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack message", "error", err, "message_id", id)
	}
}

func (c *Consumer) handleFailure(ctx context.Context, xmsg redis.XMessage, msg *Message, err error) {
	log := logger.FromContext(ctx)

	retryCount := c.getRetryCount(ctx, xmsg.ID)
	if retryCount >= c.retryLimit {
		log.Warn("message moved to DLQ after max retries",
			"message_id", msg.ID,
			"retry_count", retryCount,
		)
		c.moveToDLQ(ctx, msg, err)
		c.ack(ctx, xmsg.ID)
		return
	}
	log.Info("message left pending for retry",
		"message_id", msg.ID,
		"retry_count", retryCount,
	)
}

// getRetryCount 通过 XPENDING 获取消息的投递次数
func (c *Consumer) getRetryCount(ctx context.Context, messageID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, err error) {
	dlqStream := c.stream.DLQStream()

	data, _ := json.Marshal(map[string]interface{}{
		"original_stream": string(c.stream),
		"data":            msg,
		"error":           err.Error(),
		"failed_at":       time.Now().Unix(),
	})
	if xerr := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: dlqStream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err(); xerr != nil {
		logger.FromContext(ctx).Error("failed to write DLQ message", "error", xerr, "message_id", msg.ID)
	}
	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "dead_letter").Inc()
}

// claim 认领 pending 消息
func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) ([]redis.XMessage, error) {
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.consumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
}

// deadLetter 认领并把重试耗尽的消息移入死信队列
func (c *Consumer) deadLetter(ctx context.Context, id string, minIdle time.Duration) {
	claimed, err := c.claim(ctx, id, minIdle)
	if err != nil {
		logger.FromContext(ctx).Error("failed to claim pending message for DLQ", "error", err, "message_id", id)
		return
	}
	for _, xmsg := range claimed {
		if msg := decode(xmsg); msg != nil {
			c.moveToDLQ(ctx, msg, errRetriesExhausted)
		}
		c.ack(ctx, xmsg.ID)
	}
}

func (c *Consumer) pending(ctx context.Context, consumer string) []redis.XPendingExt {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: consumer,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Error("failed to query pending messages", "error", err)
		}
		return nil
	}
	return pending
}

// processDuePending 重试本消费者名下已过退避时间的消息
func (c *Consumer) processDuePending(ctx context.Context) {
	for _, p := range c.pending(ctx, c.consumerName) {
		retryCount := int(p.RetryCount)
		if retryCount >= c.retryLimit {
			c.deadLetter(ctx, p.ID, 0)
			continue
		}

		backoff := c.backoff.CalculateBackoff(retryCount)
		if p.Idle < backoff {
			continue
		}

		claimed, err := c.claim(ctx, p.ID, backoff)
		if err != nil {
			logger.FromContext(ctx).Error("failed to claim pending message", "error", err, "message_id", p.ID)
			continue
		}
		for _, xmsg := range claimed {
			c.processMessage(ctx, xmsg)
		}
	}
}

// reclaimStale 接管其他消费者长时间未确认的消息
func (c *Consumer) reclaimStale(ctx context.Context) {
	for _, p := range c.pending(ctx, "") {
		if p.Consumer == c.consumerName || p.Idle < c.reclaimIdle {
			continue
		}
		if int(p.RetryCount) >= c.retryLimit {
			c.deadLetter(ctx, p.ID, c.reclaimIdle)
			continue
		}

		claimed, err := c.claim(ctx, p.ID, c.reclaimIdle)
		if err != nil {
			logger.FromContext(ctx).Error("failed to reclaim pending message", "error", err, "message_id", p.ID)
			continue
		}
		for _, xmsg := range claimed {
			c.processMessage(ctx, xmsg)
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// MonitorDLQ 定期上报死信队列长度，超过阈值时告警
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	dlqStream := c.stream.DLQStream()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			length, err := c.client.XLen(ctx, dlqStream).Result()
			if err != nil {
				continue
			}
			metrics.RedisStreamDLQ.WithLabelValues(string(c.stream)).Set(float64(length))
			if length > alertThreshold {
				log.Warn("DLQ has pending messages",
					"stream", dlqStream,
					"count", length,
				)
			}
		}
	}
}
