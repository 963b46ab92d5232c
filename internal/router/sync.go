package router

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/app"
)

// MirrorSyncer 触发镜像同步。
type MirrorSyncer interface {
	Sync(ctx context.Context, neighborhood string) (app.SyncReport, error)
	SyncConfigured(ctx context.Context) ([]app.SyncReport, error)
}

// SyncHandler 负责 /sync-wix。
type SyncHandler struct {
	syncer MirrorSyncer
	logger *zap.Logger
}

// NewSyncHandler 构建处理器。
func NewSyncHandler(syncer MirrorSyncer, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{syncer: syncer, logger: logger}
}

// RegisterRoutes 注册路由。
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync-wix", h.handleSync)
	rg.GET("/sync-wix", h.handleSync)
}

type syncRequest struct {
	Neighborhood string `json:"neighborhood" form:"neighborhood"`
}

func (h *SyncHandler) handleSync(c *gin.Context) {
	var req syncRequest
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			badRequest(c, errors.New("invalid request payload"))
			return
		}
	}
	neighborhood := strings.TrimSpace(req.Neighborhood)
	if neighborhood == "" {
		neighborhood = strings.TrimSpace(c.Query("neighborhood"))
	}

	var reports []app.SyncReport
	var err error
	if neighborhood != "" {
		var report app.SyncReport
		report, err = h.syncer.Sync(c.Request.Context(), neighborhood)
		if err == nil {
			reports = []app.SyncReport{report}
		}
	} else {
		reports, err = h.syncer.SyncConfigured(c.Request.Context())
	}
	if err != nil {
		if errors.Is(err, app.ErrNoNeighborhoods) || errors.Is(err, app.ErrNeighborhoodRequired) {
			badRequest(c, err)
			return
		}
		h.logger.Error("mirror sync failed", zap.String("neighborhood", neighborhood), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "error": err.Error(), "reports": reports})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reports": reports})
}
