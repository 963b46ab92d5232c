package ioc

import (
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/logging"
)

// InitLogger 构建全局 logger。
func InitLogger(cfg app.Config) (*zap.Logger, error) {
	return logging.NewZapLogger(cfg.Log.Level)
}
