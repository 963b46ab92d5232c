package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

const (
	defaultModel           = openai.GPT4oMini
	defaultTemperature     = 0.8
	defaultGenerateTimeout = 45 * time.Second
	defaultMaxTokens       = 300
)

var (
	// ErrGeneratorDisabled 未配置文本生成后端。
	ErrGeneratorDisabled = errors.New("description generator not configured")
	// ErrIncompletePair 生成结果缺少 alt_text 或 tooltip_text。
	ErrIncompletePair = errors.New("generated description is incomplete")
)

// DescriptionGenerator 根据标签和地区生成 alt/tooltip 文本。
type DescriptionGenerator interface {
	Generate(ctx context.Context, in DescriptionInput) (domain.DescriptionPair, error)
}

// ChatCompleter 是 openai.Client 中用到的方法。
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GeneratorConfig 配置生成模型。
type GeneratorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Prompt      PromptOptions
}

// OpenAIGenerator 通过 chat completion 接口生成 JSON 格式的描述。
type OpenAIGenerator struct {
	client ChatCompleter
	cfg    GeneratorConfig
}

// NewOpenAIGenerator 创建生成器；client 为 nil 时生成器处于禁用状态。
func NewOpenAIGenerator(client ChatCompleter, cfg GeneratorConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultGenerateTimeout
	}
	return &OpenAIGenerator{client: client, cfg: cfg}
}

// NewOpenAIClient 按 key 和可选 base url 构建 openai 客户端，key 为空返回 nil。
func NewOpenAIClient(apiKey, baseURL string) ChatCompleter {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

// Generate 调用模型并解析两字段结果，任一字段缺失视为失败。
func (g *OpenAIGenerator) Generate(ctx context.Context, in DescriptionInput) (domain.DescriptionPair, error) {
	if g == nil || g.client == nil {
		return domain.DescriptionPair{}, ErrGeneratorDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: RenderPrompt(in, g.cfg.Prompt)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    float32(g.cfg.Temperature),
		MaxTokens:      g.cfg.MaxTokens,
	})
	if err != nil {
		return domain.DescriptionPair{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.DescriptionPair{}, fmt.Errorf("chat completion returned no choices")
	}
	return parseDescription(resp.Choices[0].Message.Content)
}

func parseDescription(content string) (domain.DescriptionPair, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var pair domain.DescriptionPair
	if err := json.Unmarshal([]byte(content), &pair); err != nil {
		return domain.DescriptionPair{}, fmt.Errorf("decode description: %w", err)
	}
	pair.AltText = strings.TrimSpace(pair.AltText)
	pair.TooltipText = strings.TrimSpace(pair.TooltipText)
	if !pair.Complete() {
		return domain.DescriptionPair{}, ErrIncompletePair
	}
	return pair, nil
}
