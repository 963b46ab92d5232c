package ioc

import (
	"errors"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
)

// InitCRMClient 构建 CRM 客户端；未配置 token 时返回 nil，相关请求按失败处理。
func InitCRMClient(cfg app.Config, logger *zap.Logger) (crm.Client, error) {
	client, err := crm.NewHTTPClient(crm.HTTPConfig{
		BaseURL:    cfg.CRM.BaseURL,
		APIToken:   cfg.CRM.APIToken,
		Timeout:    app.Seconds(cfg.CRM.TimeoutSecond),
		PageLimit:  cfg.CRM.PageLimit,
		ExactMatch: cfg.Mirror.ExactMatch,
	})
	if errors.Is(err, crm.ErrNotConfigured) {
		logger.Warn("PIPEDRIVE_API_TOKEN not set, crm calls will fail")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
