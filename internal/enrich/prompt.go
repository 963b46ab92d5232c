package enrich

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

//go:embed prompt.tmpl
var promptTemplateText string

var promptTemplate = template.Must(template.New("description_prompt").Parse(promptTemplateText))

// PromptOptions 控制提示词渲染行为。
type PromptOptions struct {
	Framing         string
	AltMinWords     int
	AltMaxWords     int
	TooltipMinWords int
	TooltipMaxWords int
}

// DefaultPromptOptions 返回默认提示词配置。
func DefaultPromptOptions() PromptOptions {
	return PromptOptions{
		Framing:         "professional office space",
		AltMinWords:     8,
		AltMaxWords:     14,
		TooltipMinWords: 20,
		TooltipMaxWords: 30,
	}
}

// DescriptionInput 是生成一组描述所需的上下文。
type DescriptionInput struct {
	Neighborhood string
	Labels       domain.LabelSet
	SourceURL    string
}

type promptTemplateData struct {
	Options      PromptOptions
	Neighborhood string
	Labels       domain.LabelSet
	SourceURL    string
}

// RenderPrompt 渲染生成描述的指令。
func RenderPrompt(in DescriptionInput, opts PromptOptions) string {
	defaults := DefaultPromptOptions()
	if opts.Framing == "" {
		opts.Framing = defaults.Framing
	}
	if opts.AltMinWords == 0 {
		opts.AltMinWords = defaults.AltMinWords
	}
	if opts.AltMaxWords == 0 {
		opts.AltMaxWords = defaults.AltMaxWords
	}
	if opts.TooltipMinWords == 0 {
		opts.TooltipMinWords = defaults.TooltipMinWords
	}
	if opts.TooltipMaxWords == 0 {
		opts.TooltipMaxWords = defaults.TooltipMaxWords
	}

	data := promptTemplateData{
		Options:      opts,
		Neighborhood: strings.TrimSpace(in.Neighborhood),
		Labels:       in.Labels,
		SourceURL:    in.SourceURL,
	}
	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, data); err != nil {
		return fallbackPrompt(data)
	}
	return sb.String()
}

func fallbackPrompt(data promptTemplateData) string {
	var sb strings.Builder
	sb.WriteString("Describe a photo of ")
	sb.WriteString(data.Options.Framing)
	sb.WriteString(" in ")
	sb.WriteString(data.Neighborhood)
	sb.WriteString(". Labels: ")
	sb.WriteString(strings.Join(data.Labels, ", "))
	sb.WriteString(`. Respond with JSON {"alt_text": "...", "tooltip_text": "..."}.`)
	return sb.String()
}
