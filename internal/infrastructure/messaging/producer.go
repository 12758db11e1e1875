// Package messaging 提供基于 Redis Stream 的消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"knowledge-qa-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// 消息类型
const (
	MsgTypeDocumentIndex  = "document_index"
	MsgTypeDocumentDelete = "document_delete"
)

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

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

// PublishDocumentIndex 发布文档索引任务
func (p *Producer) PublishDocumentIndex(ctx context.Context, job *DocumentIndexMessage) (string, error) {
	msg, err := NewMessage(job.DocumentID, MsgTypeDocumentIndex, job.UserID, job.CollectionID, job)
	if err != nil {
		return "", err
	}

	if job.Reindex {
		msg.SetMetadata("reindex", "true")
	}
	attachRequestID(ctx, msg)

	return p.Publish(ctx, StreamDocumentIndex, msg)
}

// PublishDocumentDelete 发布文档分片清理任务，文档行删除后调用
func (p *Producer) PublishDocumentDelete(ctx context.Context, job *DocumentDeleteMessage) (string, error) {
	msg, err := NewMessage(job.DocumentID, MsgTypeDocumentDelete, job.UserID, job.CollectionID, job)
	if err != nil {
		return "", err
	}

	attachRequestID(ctx, msg)
	return p.Publish(ctx, StreamDocumentIndex, msg)
}

// attachRequestID 透传请求标识，便于 worker 侧日志关联
func attachRequestID(ctx context.Context, msg *Message) {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
}

// DocumentIndexMessage 文档索引任务消息
type DocumentIndexMessage struct {
	DocumentID   string `json:"document_id"`
	CollectionID string `json:"collection_id"`
	UserID       string `json:"user_id,omitempty"`
	Reindex      bool   `json:"reindex,omitempty"`
}

// DocumentDeleteMessage 文档分片清理消息，携带删除前的统计信息
type DocumentDeleteMessage struct {
	DocumentID   string `json:"document_id"`
	CollectionID string `json:"collection_id"`
	UserID       string `json:"user_id,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
}
