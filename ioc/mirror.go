package ioc

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/loader"
	"github.com/CurlyBracesAI/RosieImageSync/internal/mirror"
)

// InitMirrorStore 按 mirror.store 构建目标存储；凭证缺失时返回 nil，同步请求会报错。
func InitMirrorStore(ctx context.Context, cfg app.Config, logger *zap.Logger) (mirror.Store, func(), error) {
	noop := func() {}
	switch cfg.Mirror.Store {
	case app.StoreNeo4j:
		if cfg.Neo4j.URI == "" {
			logger.Warn("NEO4J_URI not set, mirror sync disabled")
			return nil, noop, nil
		}
		client, err := loader.NewClient(ctx, loader.Config{
			URI:            cfg.Neo4j.URI,
			Username:       cfg.Neo4j.Username,
			Password:       cfg.Neo4j.Password,
			Database:       cfg.Neo4j.Database,
			MaxPoolSize:    cfg.Neo4j.MaxConnectionPool,
			ConnectTimeout: app.Seconds(cfg.Neo4j.ConnectTimeoutSecond),
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		// 连接由 Service.Close 释放。
		return mirror.NewNeo4jStore(client, cfg.Neo4j.Label, cfg.Mirror.BatchSize), noop, nil
	default:
		store, err := mirror.NewWixStore(mirror.WixConfig{
			BaseURL:        cfg.Wix.BaseURL,
			APIKey:         cfg.Wix.APIKey,
			SiteID:         cfg.Wix.SiteID,
			CollectionID:   cfg.Wix.CollectionID,
			CollectionName: cfg.Wix.CollectionName,
			Timeout:        app.Seconds(cfg.Wix.TimeoutSecond),
		})
		if errors.Is(err, mirror.ErrWixNotConfigured) {
			logger.Warn("WIX_ACCESS_KEY_ID or WIX_SITE_ID not set, mirror sync disabled")
			return nil, noop, nil
		}
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}
