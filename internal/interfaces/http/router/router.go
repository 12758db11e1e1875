// Package router 提供 HTTP 路由配置
package router

import (
	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/repository"
	"knowledge-qa-api/internal/interfaces/http/handler"
	"knowledge-qa-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterHandlers 路由依赖的处理器集合，由 Wire 填充
type RouterHandlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Collection   *handler.CollectionHandler
	Document     *handler.DocumentHandler
	Conversation *handler.ConversationHandler
	Query        *handler.QueryHandler
	Pipeline     *handler.PipelineHandler
	Provider     *handler.ProviderHandler
}

// NewWithDeps 创建路由器并完成中间件与路由装配
func NewWithDeps(
	cfg *config.Config,
	handlers RouterHandlers,
	authCfg middleware.AuthConfig,
	limiter middleware.RateLimiter,
	tx repository.Transactor,
) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
	}

	r.setupMiddleware(authCfg)
	r.setupRoutes(handlers, limiter, tx)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置全局中间件
func (r *Router) setupMiddleware(authCfg middleware.AuthConfig) {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	// 访问日志
	r.engine.Use(middleware.Audit())

	// 认证中间件，公开路径通过 SkipPaths 放行
	r.engine.Use(middleware.Auth(authCfg))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(handlers RouterHandlers, limiter middleware.RateLimiter, tx repository.Transactor) {
	// 系统端点
	r.engine.GET("/health", handlers.Health.Health)
	r.engine.GET("/ready", handlers.Health.Ready)
	r.engine.GET("/live", handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API v1 路由组：限流在事务外，被拒的请求不开事务
	v1 := r.engine.Group("/api/v1")
	if r.cfg.Security.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           r.cfg.Security.RateLimit.Enabled,
			RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
			Burst:             r.cfg.Security.RateLimit.Burst,
		}, limiter))
	}
	v1.Use(middleware.DBTransaction(tx))

	RegisterV1Routes(v1, handlers)
}
