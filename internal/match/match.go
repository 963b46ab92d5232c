package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/enrich"
	"github.com/CurlyBracesAI/RosieImageSync/internal/metrics"
)

const (
	defaultModel       = openai.GPT4o
	defaultTemperature = 0.7
	defaultTimeout     = 60 * time.Second
	fallbackLimit      = 5
)

var (
	// ErrMissingClient 请求缺少 client。
	ErrMissingClient = errors.New("missing 'client' data in payload")
	// ErrMissingPartners 请求缺少 partners。
	ErrMissingPartners = errors.New("missing 'partners' data in payload")
)

// Request 是一次撮合请求：一个客户交易和若干候选房源交易。
type Request struct {
	Client   map[string]any
	Partners []map[string]any
}

// Validate 检查 client 和 partners 是否都存在。
func (r Request) Validate() error {
	if len(r.Client) == 0 {
		return ErrMissingClient
	}
	if len(r.Partners) == 0 {
		return ErrMissingPartners
	}
	return nil
}

// Result 是撮合结果。selected_deal_ids 保持原始 id 的 JSON 类型。
type Result struct {
	EmailHTML       string `json:"email_html"`
	InternalNotes   string `json:"internal_notes"`
	SelectedDealIDs []any  `json:"selected_deal_ids"`
}

// Config 配置撮合使用的模型。
type Config struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Matcher 调用模型挑选合适的房源，模型不可用时退回前 5 个候选。
type Matcher struct {
	client enrich.ChatCompleter
	cfg    Config
	logger *zap.Logger
}

// NewMatcher 创建撮合器；client 为 nil 时只走兜底逻辑。
func NewMatcher(client enrich.ChatCompleter, cfg Config, logger *zap.Logger) *Matcher {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{client: client, cfg: cfg, logger: logger}
}

// Match 生成撮合邮件和内部备注。只有请求不合法时返回错误。
func (m *Matcher) Match(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	name := ClientName(req.Client)
	requirements := ClientRequirements(req.Client)
	partners := make([]PartnerSummary, 0, len(req.Partners))
	for _, p := range req.Partners {
		partners = append(partners, SummarizePartner(p))
	}
	m.logger.Info("match request",
		zap.String("client", dealTitle(req.Client)),
		zap.Int("partners", len(partners)))

	if m.client == nil {
		ids := firstDealIDs(partners, fallbackLimit)
		return Result{
			EmailHTML:       fmt.Sprintf("<p>Dear %s,</p><p>We have found %d potential matches for you.</p>", html.EscapeString(name), len(ids)),
			InternalNotes:   "OpenAI not configured - returning first 5 partners",
			SelectedDealIDs: ids,
		}, nil
	}

	res, err := m.complete(ctx, requirements, partners)
	if err != nil {
		metrics.BackendFailures.WithLabelValues("match").Inc()
		m.logger.Warn("match generation failed, using fallback", zap.Error(err))
		return Result{
			EmailHTML:       fmt.Sprintf("<p>Dear %s,</p><p>We have found potential office matches for you.</p>", html.EscapeString(name)),
			InternalNotes:   fmt.Sprintf("OpenAI error: %v", err),
			SelectedDealIDs: firstDealIDs(partners, fallbackLimit),
		}, nil
	}
	return res, nil
}

func (m *Matcher) complete(ctx context.Context, requirements map[string]string, partners []PartnerSummary) (Result, error) {
	prompt, err := RenderPrompt(requirements, partners)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    float32(m.cfg.Temperature),
	})
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion returned no choices")
	}
	return parseResult(resp.Choices[0].Message.Content)
}

func parseResult(content string) (Result, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(content)))
	dec.UseNumber()
	var res Result
	if err := dec.Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode match result: %w", err)
	}
	if res.SelectedDealIDs == nil {
		res.SelectedDealIDs = []any{}
	}
	return res, nil
}

func firstDealIDs(partners []PartnerSummary, limit int) []any {
	ids := make([]any, 0, limit)
	for _, p := range partners {
		if len(ids) == limit {
			break
		}
		if p.DealID != nil && p.DealID != "" {
			ids = append(ids, p.DealID)
		}
	}
	return ids
}
