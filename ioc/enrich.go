package ioc

import (
	"context"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/enrich"
	"github.com/CurlyBracesAI/RosieImageSync/internal/match"
)

// InitFetcher 构建图片下载器。
func InitFetcher(cfg app.Config) enrich.Fetcher {
	return enrich.NewHTTPFetcher(enrich.FetcherConfig{
		Timeout:  app.Seconds(cfg.Enrich.FetchTimeoutSecond),
		MaxBytes: cfg.Enrich.MaxImageBytes,
	})
}

// InitDetector 构建标签识别器，未配置 AWS 时处于禁用状态。
func InitDetector(ctx context.Context, cfg app.Config, logger *zap.Logger) (enrich.LabelDetector, error) {
	api, err := enrich.LoadRekognitionAPI(ctx, enrich.AWSConfig{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	if api == nil {
		logger.Warn("aws region or credentials not available, label detection disabled")
	}
	return enrich.NewRekognitionDetector(api, enrich.DetectorConfig{
		MaxLabels:     cfg.Enrich.MaxLabels,
		MinConfidence: cfg.Enrich.MinConfidence,
		Timeout:       app.Seconds(cfg.Enrich.DetectTimeoutSecond),
	}), nil
}

// InitGenerator 构建文本生成器，未配置 key 时处于禁用状态。
func InitGenerator(cfg app.Config, logger *zap.Logger) enrich.DescriptionGenerator {
	client := enrich.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if client == nil {
		logger.Warn("OPENAI_API_KEY not set, description generation disabled")
	}
	prompt := enrich.DefaultPromptOptions()
	if cfg.Enrich.Framing != "" {
		prompt.Framing = cfg.Enrich.Framing
	}
	return enrich.NewOpenAIGenerator(client, enrich.GeneratorConfig{
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     app.Seconds(cfg.OpenAI.TimeoutSecond),
		Prompt:      prompt,
	})
}

// InitMatcher 构建房源撮合器，未配置 key 时只返回兜底结果。
func InitMatcher(cfg app.Config, logger *zap.Logger) *match.Matcher {
	client := enrich.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	return match.NewMatcher(client, match.Config{
		Model:       cfg.Match.Model,
		Temperature: cfg.Match.Temperature,
		Timeout:     app.Seconds(cfg.Match.TimeoutSecond),
	}, logger)
}

// InitOrchestrator 组装图片增强流程。
func InitOrchestrator(client crm.Client, fetcher enrich.Fetcher, detector enrich.LabelDetector, generator enrich.DescriptionGenerator, logger *zap.Logger) *enrich.Orchestrator {
	var cache *enrich.CacheGate
	if client != nil {
		cache = enrich.NewCacheGate(client)
	}
	return &enrich.Orchestrator{
		CRM:       client,
		Fetcher:   fetcher,
		Detector:  detector,
		Generator: generator,
		Cache:     cache,
		Logger:    logger,
	}
}
