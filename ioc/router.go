package ioc

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/match"
	"github.com/CurlyBracesAI/RosieImageSync/internal/router"
)

// InitImagesHandler 构建图片增强处理器。
func InitImagesHandler(svc *app.Service, logger *zap.Logger) *router.ImagesHandler {
	return router.NewImagesHandler(svc, logger)
}

// InitSyncHandler 构建镜像同步处理器。
func InitSyncHandler(svc *app.Service, logger *zap.Logger) *router.SyncHandler {
	return router.NewSyncHandler(svc, logger)
}

// InitMatchHandler 构建撮合处理器。
func InitMatchHandler(matcher *match.Matcher, logger *zap.Logger) *router.MatchHandler {
	return router.NewMatchHandler(matcher, logger)
}

// InitGinEngine 构建 gin 引擎。
func InitGinEngine(images *router.ImagesHandler, sync *router.SyncHandler, matches *router.MatchHandler) *gin.Engine {
	return router.NewEngine(images, sync, matches)
}
