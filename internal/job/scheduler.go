package job

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
)

// SyncFunc 执行一轮镜像同步。
type SyncFunc func(context.Context) error

// Scheduler 按 cron 表达式定期执行镜像同步，上一轮未结束时跳过本轮。
type Scheduler struct {
	expr    string
	fn      SyncFunc
	logger  *zap.Logger
	cron    *cron.Cron
	parent  context.Context
	running atomic.Bool
}

// NewScheduler 根据 mirror.cron 构建调度器，表达式为空时不启用。
func NewScheduler(cfg app.Config, fn SyncFunc, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		expr:   strings.TrimSpace(cfg.Mirror.Cron),
		fn:     fn,
		logger: logger.Named("scheduler"),
		parent: context.Background(),
	}
}

// Start 注册并启动定时任务，返回停止函数；parent 结束时自动停止。
func (s *Scheduler) Start(parent context.Context) context.CancelFunc {
	if s == nil || s.expr == "" {
		if s != nil {
			s.logger.Info("mirror sync schedule disabled")
		}
		return func() {}
	}
	s.parent = parent

	c := cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(s.logger))))
	id, err := c.AddFunc(s.expr, s.runOnce)
	if err != nil {
		s.logger.Error("invalid mirror sync cron", zap.String("cron", s.expr), zap.Error(err))
		return func() {}
	}
	s.cron = c
	c.Start()
	s.logger.Info("mirror sync scheduled", zap.String("cron", s.expr), zap.Time("next", c.Entry(id).Next))

	var once sync.Once
	stop := func() {
		once.Do(func() {
			<-c.Stop().Done()
			s.logger.Info("mirror sync schedule stopped")
		})
	}
	go func() {
		<-parent.Done()
		stop()
	}()
	return stop
}

func (s *Scheduler) runOnce() {
	if s.fn == nil {
		s.logger.Warn("sync function not configured")
		return
	}
	if s.parent.Err() != nil {
		s.logger.Info("scheduler context cancelled, skip sync")
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous sync still running, skip current schedule")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	err := s.fn(s.parent)
	fields := []zap.Field{zap.Duration("duration", time.Since(start))}
	if err != nil {
		s.logger.Error("scheduled mirror sync failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info("scheduled mirror sync completed", fields...)
}
