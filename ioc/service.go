package ioc

import (
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/enrich"
	"github.com/CurlyBracesAI/RosieImageSync/internal/mirror"
)

// InitAppService 构建应用服务。
func InitAppService(cfg app.Config, client crm.Client, store mirror.Store, orchestrator *enrich.Orchestrator, logger *zap.Logger) *app.Service {
	return app.NewService(cfg, client, store, orchestrator, logger)
}
