package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
	"github.com/CurlyBracesAI/RosieImageSync/internal/enrich"
)

// ImageEnricher 处理图片增强请求。
type ImageEnricher interface {
	Enrich(ctx context.Context, req enrich.Request) (enrich.Response, error)
}

// ImagesHandler 负责 /rosie-images。
type ImagesHandler struct {
	enricher ImageEnricher
	logger   *zap.Logger
}

// NewImagesHandler 构建处理器。
func NewImagesHandler(enricher ImageEnricher, logger *zap.Logger) *ImagesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImagesHandler{enricher: enricher, logger: logger}
}

// RegisterRoutes 注册路由。
func (h *ImagesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rosie-images", h.handleImages)
}

func (h *ImagesHandler) handleImages(c *gin.Context) {
	req, err := bindImagesRequest(c)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		badRequest(c, err)
		return
	}
	resp, err := h.enricher.Enrich(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, enrich.ErrInvalidRequest) {
			badRequest(c, err)
			return
		}
		h.logger.Error("enrich images failed", zap.String("deal_id", req.DealID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
}

// imagesRequest 同时支持 JSON 和表单（含 multipart）绑定。
type imagesRequest struct {
	DealID        scalar     `json:"deal_id" form:"deal_id"`
	Neighborhood  scalar     `json:"neighborhood" form:"neighborhood"`
	ImageURLs     stringList `json:"image_urls" form:"image_urls"`
	PictureNumber scalar     `json:"picture_number" form:"picture_number"`
	ForceRefresh  scalar     `json:"force_refresh" form:"force_refresh"`
}

// scalar 接受 JSON 字符串、数字或布尔值，统一保存为字符串。
type scalar string

// UnmarshalJSON 实现 json.Unmarshaler。
func (s *scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case nil, string, json.Number, bool:
		*s = scalar(domain.StringValue(v))
		return nil
	default:
		return fmt.Errorf("expected a scalar value, got %s", data)
	}
}

// stringList 接受单个字符串或字符串数组。
type stringList []string

// UnmarshalJSON 实现 json.Unmarshaler。
func (l *stringList) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil:
		*l = nil
	case string:
		*l = stringList{val}
	case []any:
		items := make(stringList, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return errors.New("image_urls must contain strings")
			}
			items = append(items, s)
		}
		*l = items
	default:
		return errors.New("image_urls must be a string or an array")
	}
	return nil
}

// bindImagesRequest 通过 gin 绑定请求并转换为 enrich.Request。
func bindImagesRequest(c *gin.Context) (enrich.Request, error) {
	var body imagesRequest
	if err := c.ShouldBind(&body); err != nil {
		return enrich.Request{}, fmt.Errorf("%w: invalid request payload: %v", enrich.ErrInvalidRequest, err)
	}
	req := enrich.Request{
		DealID:       strings.TrimSpace(string(body.DealID)),
		Neighborhood: strings.TrimSpace(string(body.Neighborhood)),
		ImageURLs:    normalizeURLs(body.ImageURLs),
	}
	var err error
	if req.PictureNumber, err = pictureNumber(string(body.PictureNumber)); err != nil {
		return enrich.Request{}, err
	}
	if req.ForceRefresh, err = flag(string(body.ForceRefresh)); err != nil {
		return enrich.Request{}, err
	}
	return req, nil
}

// normalizeURLs 去掉空白项；字段出现过时返回非 nil 切片。
func normalizeURLs(list stringList) []string {
	if list == nil {
		return nil
	}
	urls := make([]string, 0, len(list))
	for _, u := range list {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func pictureNumber(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil || !domain.ValidPictureNumber(n) {
		return 0, fmt.Errorf("%w: picture_number must be between %d and %d", enrich.ErrInvalidRequest, domain.MinPictureNumber, domain.MaxPictureNumber)
	}
	return n, nil
}

func flag(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	default:
		return false, fmt.Errorf("%w: force_refresh must be a boolean", enrich.ErrInvalidRequest)
	}
}
