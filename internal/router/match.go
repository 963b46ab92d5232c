package router

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/match"
)

// PartnerMatcher 为客户挑选候选房源。
type PartnerMatcher interface {
	Match(ctx context.Context, req match.Request) (match.Result, error)
}

// MatchHandler 负责 /match。
type MatchHandler struct {
	matcher PartnerMatcher
	logger  *zap.Logger
}

// NewMatchHandler 构建处理器。
func NewMatchHandler(matcher PartnerMatcher, logger *zap.Logger) *MatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchHandler{matcher: matcher, logger: logger}
}

// RegisterRoutes 注册路由。
func (h *MatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/match", h.handleMatch)
}

type matchRequest struct {
	Client   map[string]any   `json:"client"`
	Partners []map[string]any `json:"partners"`
}

func (h *MatchHandler) handleMatch(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		badRequest(c, errors.New("invalid request payload"))
		return
	}
	var req matchRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		badRequest(c, errors.New("client must be an object and partners an array of objects"))
		return
	}
	res, err := h.matcher.Match(c.Request.Context(), match.Request{Client: req.Client, Partners: req.Partners})
	if err != nil {
		if errors.Is(err, match.ErrMissingClient) || errors.Is(err, match.ErrMissingPartners) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "received_keys": keysOf(raw)})
			return
		}
		h.logger.Error("match failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
