package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/enrich"
	"github.com/CurlyBracesAI/RosieImageSync/internal/mirror"
)

// ErrNoNeighborhoods 未指定 neighborhood 且配置中也没有。
var ErrNoNeighborhoods = errors.New("no neighborhoods configured")

// Service 负责装配各个 Flow 并提供统一入口。
type Service struct {
	cfg          Config
	Orchestrator *enrich.Orchestrator
	SyncFlow     *SyncFlow
	closers      []func(context.Context) error
	logger       *zap.Logger
}

// NewService 根据配置和已构建的客户端组装服务。crmClient/store 可以为 nil，对应功能会按失败处理。
func NewService(cfg Config, crmClient crm.Client, store mirror.Store, orchestrator *enrich.Orchestrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		cfg:          cfg,
		Orchestrator: orchestrator,
		SyncFlow: &SyncFlow{
			CRM:          crmClient,
			Store:        store,
			BatchSize:    cfg.Mirror.BatchSize,
			Mappings:     cfg.Mirror.Mappings,
			Placeholders: cfg.Mirror.Placeholders,
			Logger:       logger,
		},
		logger: logger,
	}
	if closer, ok := store.(mirror.Closer); ok {
		svc.OnClose(closer.Close)
	}
	return svc
}

// OnClose 注册关闭时需要释放的资源。
func (s *Service) OnClose(fn func(context.Context) error) {
	if fn != nil {
		s.closers = append(s.closers, fn)
	}
}

// Close 释放资源。
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}

// Enrich 处理一次图片增强请求。
func (s *Service) Enrich(ctx context.Context, req enrich.Request) (enrich.Response, error) {
	if s.Orchestrator == nil {
		return enrich.Response{}, fmt.Errorf("未初始化 orchestrator")
	}
	return s.Orchestrator.Run(ctx, req)
}

// Sync 同步单个 neighborhood。
func (s *Service) Sync(ctx context.Context, neighborhood string) (SyncReport, error) {
	if s.SyncFlow == nil {
		return SyncReport{}, fmt.Errorf("未初始化 sync flow")
	}
	return s.SyncFlow.Run(ctx, neighborhood)
}

// SyncConfigured 依次同步配置中的所有 neighborhood，单个失败不影响其它。
func (s *Service) SyncConfigured(ctx context.Context) ([]SyncReport, error) {
	if len(s.cfg.Mirror.Neighborhoods) == 0 {
		return nil, ErrNoNeighborhoods
	}
	reports := make([]SyncReport, 0, len(s.cfg.Mirror.Neighborhoods))
	var errs []error
	for _, n := range s.cfg.Mirror.Neighborhoods {
		report, err := s.Sync(ctx, n)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
			continue
		}
		reports = append(reports, report)
	}
	return reports, errors.Join(errs...)
}

// ScheduledSync 供定时任务调用。
func (s *Service) ScheduledSync(ctx context.Context) error {
	_, err := s.SyncConfigured(ctx)
	return err
}
