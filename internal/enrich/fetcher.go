package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxImageSize = 15 << 20
)

// ErrImageTooLarge 图片超过允许的大小。
var ErrImageTooLarge = errors.New("image exceeds max size")

// Fetcher 下载图片原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherConfig 配置图片下载。
type FetcherConfig struct {
	Timeout      time.Duration
	MaxBytes     int64
	UserAgent    string
	CustomClient *http.Client
}

// HTTPFetcher 通过一次带超时的 GET 拉取图片，不重试。
type HTTPFetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewHTTPFetcher 创建图片下载器。
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	client := cfg.CustomClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageSize
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "RosieImageSync/1.0"
	}
	return &HTTPFetcher{client: client, maxBytes: maxBytes, userAgent: ua}
}

// Fetch 下载图片；非 2xx、网络错误、超时和超限都返回错误。
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("empty image url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d", ErrImageTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}
	return data, nil
}
