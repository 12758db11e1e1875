// Package router 提供 HTTP 路由配置
package router

import (
	"knowledge-qa-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h RouterHandlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 集合管理
	collections := v1.Group("/collections")
	{
		collections.GET("", h.Collection.ListCollections)
		collections.POST("", middleware.RequirePermission(middleware.PermCollectionWrite), h.Collection.CreateCollection)
		collections.GET("/:cid", h.Collection.GetCollection)
		collections.PUT("/:cid", middleware.RequirePermission(middleware.PermCollectionWrite), h.Collection.UpdateCollection)
		collections.DELETE("/:cid", middleware.RequirePermission(middleware.PermCollectionWrite), h.Collection.DeleteCollection)

		// 集合下的文档
		collections.GET("/:cid/documents", h.Document.ListDocuments)
		collections.POST("/:cid/documents", middleware.RequirePermission(middleware.PermCollectionWrite), h.Document.CreateDocument)
	}

	// 文档管理
	documents := v1.Group("/documents")
	{
		documents.GET("/:did", h.Document.GetDocument)
		documents.PUT("/:did", middleware.RequirePermission(middleware.PermCollectionWrite), h.Document.UpdateDocument)
		documents.DELETE("/:did", middleware.RequirePermission(middleware.PermCollectionWrite), h.Document.DeleteDocument)
		documents.POST("/:did/reindex", middleware.RequirePermission(middleware.PermDocumentIndex), h.Document.ReindexDocument)
	}

	// 会话管理
	conversations := v1.Group("/conversations")
	{
		conversations.GET("", h.Conversation.ListSessions)
		conversations.POST("", h.Conversation.CreateSession)
		conversations.GET("/:sid", h.Conversation.GetSession)
		conversations.DELETE("/:sid", h.Conversation.DeleteSession)
		conversations.GET("/:sid/turns", h.Conversation.ListTurns)
	}

	// 问答
	query := v1.Group("/query")
	{
		query.POST("", h.Query.Ask)
		query.POST("/stream", h.Query.StreamQuery) // SSE
	}

	// 管道配置管理
	pipelines := v1.Group("/pipelines")
	{
		pipelines.GET("", h.Pipeline.ListPipelines)
		pipelines.POST("", h.Pipeline.CreatePipeline)
		pipelines.GET("/:pid", h.Pipeline.GetPipeline)
		pipelines.PUT("/:pid", h.Pipeline.UpdatePipeline)
		pipelines.DELETE("/:pid", h.Pipeline.DeletePipeline)
	}

	// 提供方管理，仅管理员
	providers := v1.Group("/providers", middleware.RequirePermission(middleware.PermProviderManage))
	{
		providers.GET("", h.Provider.ListProviders)
		providers.POST("", h.Provider.CreateProvider)
		providers.GET("/:id", h.Provider.GetProvider)
		providers.PUT("/:id", h.Provider.UpdateProvider)
		providers.DELETE("/:id", h.Provider.DeleteProvider)
	}

	// 用户管理
	users := v1.Group("/users")
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me", h.User.UpdateMe)

		// 管理员操作
		admin := users.Group("", middleware.RequireAdmin())
		{
			admin.GET("", h.User.ListUsers)
			admin.PUT("/:id/role", h.User.UpdateUserRole)
			admin.DELETE("/:id", h.User.DeleteUser)
		}
	}
}
