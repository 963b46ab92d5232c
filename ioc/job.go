package ioc

import (
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/job"
)

// InitScheduler 构建定时同步调度器。
func InitScheduler(cfg app.Config, svc *app.Service, logger *zap.Logger) *job.Scheduler {
	return job.NewScheduler(cfg, svc.ScheduledSync, logger)
}
