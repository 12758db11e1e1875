// Package main 文档索引 worker 入口
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/infrastructure/messaging"
	einoobs "knowledge-qa-api/internal/observability/eino"
	"knowledge-qa-api/internal/wire"
	"knowledge-qa-api/pkg/logger"
	"knowledge-qa-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// DLQ 积压超过该值时告警
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx := context.Background()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "index-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(ctx) }()

	// 索引走 Embedding 模型，callbacks 记录调用指标
	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	worker.Consumer.RegisterHandler(messaging.MsgTypeDocumentIndex, func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.DocumentIndexMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		return worker.Indexing.IndexDocument(ctx, payload.DocumentID)
	})

	worker.Consumer.RegisterHandler(messaging.MsgTypeDocumentDelete, func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.DocumentDeleteMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		// 文档行已删除，分片清理只需要消息里携带的字段
		return worker.Indexing.RemoveDocument(ctx, &entity.Document{
			ID:           payload.DocumentID,
			CollectionID: payload.CollectionID,
			UserID:       payload.UserID,
			ChunkCount:   payload.ChunkCount,
		})
	})

	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go worker.Consumer.Monitor(workerCtx, dlqAlertThreshold)

	// 重启后把 pending 状态的文档重新投递一遍
	resumed, err := worker.Indexing.ResumePending(ctx, cfg.Features.Indexing.ResumeBatch, func(ctx context.Context, documentID string) error {
		_, err := worker.Producer.PublishDocumentIndex(ctx, &messaging.DocumentIndexMessage{DocumentID: documentID})
		return err
	})
	if err != nil {
		logger.Warn(ctx, "resume pending documents", "error", err)
	}

	log := logger.FromContext(ctx)
	log.Info("index-worker started", "resumed", resumed)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("index-worker shutting down")
	stopWorker()
	worker.Consumer.Stop()
}
