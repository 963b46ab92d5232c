package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultWixBaseURL        = "https://www.wixapis.com/wix-data/v2"
	defaultWixCollectionName = "MasterListingsCollection"
)

// ErrWixNotConfigured 缺少 Wix 凭证。
var ErrWixNotConfigured = errors.New("wix credentials not configured")

// WixConfig 配置 Wix Data 客户端。
type WixConfig struct {
	BaseURL        string
	APIKey         string
	SiteID         string
	CollectionID   string
	CollectionName string
	Timeout        time.Duration
	CustomClient   *http.Client
}

// WixStore 通过 Wix Data v2 批量接口实现 Store。
type WixStore struct {
	baseURL        string
	apiKey         string
	siteID         string
	collectionID   string
	collectionName string
	httpClient     *http.Client
}

// NewWixStore 根据配置创建 WixStore。
func NewWixStore(cfg WixConfig) (*WixStore, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SiteID) == "" {
		return nil, ErrWixNotConfigured
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultWixBaseURL
	}
	name := cfg.CollectionName
	if name == "" {
		name = defaultWixCollectionName
	}
	client := cfg.CustomClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WixStore{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         cfg.APIKey,
		siteID:         cfg.SiteID,
		collectionID:   cfg.CollectionID,
		collectionName: name,
		httpClient:     client,
	}, nil
}

type wixCollection struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type wixItem struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

type wixError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type wixItemMetadata struct {
	ID      string    `json:"id"`
	Success bool      `json:"success"`
	Error   *wixError `json:"error"`
}

type wixBulkResponse struct {
	Results []struct {
		ItemMetadata wixItemMetadata `json:"itemMetadata"`
	} `json:"results"`
}

// Prepare 返回配置的集合 id，未配置时按显示名查找。
func (s *WixStore) Prepare(ctx context.Context) (string, error) {
	if s.collectionID != "" {
		return s.collectionID, nil
	}
	var out struct {
		Collections []wixCollection `json:"collections"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return "", fmt.Errorf("查询 Wix 集合失败: %w", err)
	}
	for _, c := range out.Collections {
		if c.DisplayName == s.collectionName {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCollectionNotFound, s.collectionName)
}

// DeleteByIDs 批量删除，目标中不存在的条目视为成功。
func (s *WixStore) DeleteByIDs(ctx context.Context, collection string, ids []string) (map[string]error, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body := map[string]any{
		"dataCollectionId": collection,
		"dataItemIds":      ids,
	}
	var out wixBulkResponse
	if err := s.do(ctx, http.MethodPost, "/bulk/items/remove", body, &out); err != nil {
		return nil, fmt.Errorf("Wix 批量删除失败: %w", err)
	}
	failed := make(map[string]error)
	for _, r := range out.Results {
		meta := r.ItemMetadata
		if meta.Success || meta.Error == nil || isWixNotFound(meta.Error) {
			continue
		}
		failed[meta.ID] = fmt.Errorf("%s: %s", meta.Error.Code, meta.Error.Description)
	}
	return failed, nil
}

// InsertItems 批量插入。
func (s *WixStore) InsertItems(ctx context.Context, collection string, records []Record) (map[string]error, error) {
	if len(records) == 0 {
		return nil, nil
	}
	items := make([]wixItem, 0, len(records))
	for _, r := range records {
		items = append(items, wixItem{ID: r.ID, Data: r.Data})
	}
	body := map[string]any{
		"dataCollectionId": collection,
		"dataItems":        items,
	}
	var out wixBulkResponse
	if err := s.do(ctx, http.MethodPost, "/bulk/items/insert", body, &out); err != nil {
		return nil, fmt.Errorf("Wix 批量插入失败: %w", err)
	}
	failed := make(map[string]error)
	for _, r := range out.Results {
		meta := r.ItemMetadata
		if meta.Success || meta.Error == nil {
			continue
		}
		failed[meta.ID] = fmt.Errorf("%s: %s", meta.Error.Code, meta.Error.Description)
	}
	return failed, nil
}

func isWixNotFound(e *wixError) bool {
	code := strings.ToUpper(e.Code)
	return strings.Contains(code, "NOT_FOUND") || code == "WDE0073"
}

func (s *WixStore) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("wix-site-id", s.siteID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 Wix 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Wix 返回状态码 %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析 Wix 响应失败: %w", err)
	}
	return nil
}
