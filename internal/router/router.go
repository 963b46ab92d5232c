package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CurlyBracesAI/RosieImageSync/internal/metrics"
)

// NewEngine 构建 gin 引擎并注册所有模块路由。
func NewEngine(images *ImagesHandler, sync *SyncHandler, matches *MatchHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	metrics.RegisterDefault()

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ROSIE AGENT E API"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	images.RegisterRoutes(&engine.RouterGroup)
	sync.RegisterRoutes(&engine.RouterGroup)
	matches.RegisterRoutes(&engine.RouterGroup)
	return engine
}
