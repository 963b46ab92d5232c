package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

const defaultBaseURL = "https://api.pipedrive.com/v1"

var (
	// ErrNotConfigured 未配置 API token。
	ErrNotConfigured = errors.New("crm api token not configured")
	// ErrDealNotFound 记录不存在。
	ErrDealNotFound = errors.New("deal not found")
)

// DealReader 读取单条交易记录。
type DealReader interface {
	GetDeal(ctx context.Context, id string) (domain.Deal, error)
}

// Client 抽象 CRM 数据源。
type Client interface {
	DealReader
	ListDealFields(ctx context.Context) ([]Field, error)
	ListStages(ctx context.Context) ([]Stage, error)
	UpdateDeal(ctx context.Context, id string, fields map[string]any) error
	SearchDealIDs(ctx context.Context, term string) ([]string, error)
}

// HTTPConfig 配置 HTTP 客户端。
type HTTPConfig struct {
	BaseURL      string
	APIToken     string
	Timeout      time.Duration
	PageLimit    int
	ExactMatch   bool
	CustomClient *http.Client
}

// HTTPClient 实现 Client，通过 Pipedrive REST 接口通信。
type HTTPClient struct {
	baseURL    string
	apiToken   string
	pageLimit  int
	exactMatch bool
	httpClient *http.Client
}

// NewHTTPClient 根据配置创建 CRM HTTP 客户端。
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.CustomClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := cfg.PageLimit
	if limit <= 0 {
		limit = 500
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiToken:   cfg.APIToken,
		pageLimit:  limit,
		exactMatch: cfg.ExactMatch,
		httpClient: client,
	}, nil
}

// ListDealFields 分页拉取全部交易字段元数据。
func (c *HTTPClient) ListDealFields(ctx context.Context) ([]Field, error) {
	var fields []Field
	err := c.paginate(ctx, "/dealFields", nil, func(data json.RawMessage) error {
		var page []Field
		if err := decodeData(data, &page); err != nil {
			return err
		}
		fields = append(fields, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("拉取字段元数据失败: %w", err)
	}
	return fields, nil
}

// ListStages 拉取所有管道阶段。
func (c *HTTPClient) ListStages(ctx context.Context) ([]Stage, error) {
	env, err := c.do(ctx, http.MethodGet, "/stages", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("拉取阶段失败: %w", err)
	}
	var stages []Stage
	if err := decodeData(env.Data, &stages); err != nil {
		return nil, fmt.Errorf("解析阶段失败: %w", err)
	}
	return stages, nil
}

// GetDeal 按 id 读取完整记录（包含自定义字段）。
func (c *HTTPClient) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	env, err := c.do(ctx, http.MethodGet, "/deals/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("读取 deal %s 失败: %w", id, err)
	}
	var deal domain.Deal
	if err := decodeData(env.Data, &deal); err != nil {
		return nil, fmt.Errorf("解析 deal %s 失败: %w", id, err)
	}
	if deal == nil {
		return nil, fmt.Errorf("deal %s: %w", id, ErrDealNotFound)
	}
	return deal, nil
}

// UpdateDeal 只提交给定字段，不会触碰其它字段。
func (c *HTTPClient) UpdateDeal(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := c.do(ctx, http.MethodPut, "/deals/"+url.PathEscape(id), nil, fields); err != nil {
		return fmt.Errorf("更新 deal %s 失败: %w", id, err)
	}
	return nil
}

// SearchDealIDs 在自定义字段中搜索 term，默认部分匹配，仅返回 id。
// 列表接口不返回自定义字段，调用方需要逐条 GetDeal。
func (c *HTTPClient) SearchDealIDs(ctx context.Context, term string) ([]string, error) {
	query := url.Values{}
	query.Set("term", term)
	query.Set("fields", "custom_fields")
	if c.exactMatch {
		query.Set("exact_match", "true")
	}

	var ids []string
	seen := make(map[string]bool)
	err := c.paginate(ctx, "/deals/search", query, func(data json.RawMessage) error {
		var page searchData
		if err := decodeData(data, &page); err != nil {
			return err
		}
		for _, it := range page.Items {
			id := it.Item.ID.String()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("搜索 deal 失败 term=%s: %w", term, err)
	}
	return ids, nil
}

func (c *HTTPClient) paginate(ctx context.Context, path string, query url.Values, handle func(json.RawMessage) error) error {
	if query == nil {
		query = url.Values{}
	}
	start := 0
	for {
		query.Set("start", strconv.Itoa(start))
		query.Set("limit", strconv.Itoa(c.pageLimit))
		env, err := c.do(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if err := handle(env.Data); err != nil {
			return fmt.Errorf("解析分页数据失败: %w", err)
		}
		page := env.AdditionalData.Pagination
		if !page.MoreItemsInCollection || page.NextStart <= start {
			return nil
		}
		start = page.NextStart
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body any) (envelope, error) {
	var env envelope
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api_token", c.apiToken)
	endpoint := c.baseURL + path + "?" + q.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return env, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return env, fmt.Errorf("请求 CRM 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return env, ErrDealNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return env, fmt.Errorf("CRM 返回状态码 %d", resp.StatusCode)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return env, fmt.Errorf("解析 CRM 响应失败: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "success=false"
		}
		return env, fmt.Errorf("CRM 返回失败: %s", msg)
	}
	return env, nil
}

func decodeData(data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}
