// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"knowledge-qa-api/internal/infrastructure/persistence/milvus"
	"knowledge-qa-api/internal/infrastructure/persistence/postgres"
	"knowledge-qa-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	pg     *postgres.Client
	redis  *redis.Client
	milvus *milvus.Client
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *HealthHandler {
	return &HealthHandler{
		pg:     pg,
		redis:  redisClient,
		milvus: milvusClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// 三个依赖全部必需：Postgres 存元数据，Redis 承担缓存与索引队列，
// Milvus 承担向量检索，任何一个不可用问答链路都无法工作
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"postgres": {Status: "unknown"},
		"redis":    {Status: "unknown"},
		"milvus":   {Status: "unknown"},
	}
	ready := true

	runCheck := func(name string, fn func(context.Context) error) {
		if fn == nil {
			checks[name].Status = "missing"
			checks[name].Error = name + " client not configured"
			ready = false
			return
		}
		start := time.Now()
		err := fn(ctx)
		checks[name].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks[name].Status = "error"
			checks[name].Error = err.Error()
			ready = false
			return
		}
		checks[name].Status = "ok"
	}

	var pgCheck, redisCheck, milvusCheck func(context.Context) error
	if h.pg != nil {
		pgCheck = h.pg.HealthCheck
	}
	if h.redis != nil {
		redisCheck = h.redis.HealthCheck
	}
	if h.milvus != nil {
		milvusCheck = h.milvus.HealthCheck
	}
	runCheck("postgres", pgCheck)
	runCheck("redis", redisCheck)
	runCheck("milvus", milvusCheck)

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
