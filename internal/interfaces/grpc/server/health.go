// Package server 提供 gRPC 服务端实现
package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"knowledge-qa-api/internal/infrastructure/persistence/milvus"
	"knowledge-qa-api/internal/infrastructure/persistence/postgres"
	"knowledge-qa-api/internal/infrastructure/persistence/redis"
	"knowledge-qa-api/pkg/logger"
)

const (
	healthProbeInterval = 10 * time.Second
	healthProbeTimeout  = 2 * time.Second
)

// HealthService 标准 grpc_health_v1 健康服务。
// 周期性探测三个后端依赖，任一不可用时整体置为 NOT_SERVING，
// 与 HTTP /ready 使用同一套就绪判据
type HealthService struct {
	server *health.Server
	pg     *postgres.Client
	redis  *redis.Client
	milvus *milvus.Client
}

// NewHealthService 创建健康服务
func NewHealthService(pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *HealthService {
	return &HealthService{
		server: health.NewServer(),
		pg:     pg,
		redis:  redisClient,
		milvus: milvusClient,
	}
}

// Register 注册到 gRPC Server
func (h *HealthService) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
	// 首次探测完成前先置为 NOT_SERVING
	h.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

// Start 启动后台探测循环，ctx 取消时停止并把状态置为 NOT_SERVING
func (h *HealthService) Start(ctx context.Context) {
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()

	h.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.probe(ctx)
		}
	}
}

// probe 探测一轮依赖并更新服务状态
func (h *HealthService) probe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.checkAll(checkCtx); err != nil {
		logger.Warn(ctx, "dependency probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
}

// checkAll 依次探测 Postgres、Redis、Milvus
func (h *HealthService) checkAll(ctx context.Context) error {
	if err := h.pg.HealthCheck(ctx); err != nil {
		return err
	}
	if err := h.redis.HealthCheck(ctx); err != nil {
		return err
	}
	return h.milvus.HealthCheck(ctx)
}
