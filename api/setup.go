package api

import (
	askHandlers "akademikai/api/handlers/ask"
	"akademikai/internal/config"
	"akademikai/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()

	// 全局中间件
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	// 组件容器：嵌入模型、向量存储、生成器与流水线的惰性单例
	container := NewAppContainer(cfg)

	handlers := &Handlers{
		Ask: askHandlers.NewHandler(func() (askHandlers.AnswerService, error) {
			pipeline, err := container.Pipeline()
			if err != nil {
				return nil, err
			}
			return pipeline, nil
		}),
	}

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router, handlers)

	return router
}
