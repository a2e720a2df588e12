package api

import (
	askHandlers "akademikai/api/handlers/ask"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有 API 路由
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	// 根路径存活探针
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "AkademikAI API is running!"})
	})

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "AkademikAI",
		})
	})

	// 版本化 API 组
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/ask", handlers.Ask.Ask)
	}
}

// Handlers 汇总各业务处理器
type Handlers struct {
	Ask *askHandlers.Handler
}
