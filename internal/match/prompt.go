package match

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompt.tmpl
var promptText string

var promptTemplate = template.Must(template.New("match_prompt").Parse(promptText))

// RenderPrompt 把需求和房源摘要渲染进撮合指令。
func RenderPrompt(requirements map[string]string, partners []PartnerSummary) (string, error) {
	reqJSON, err := json.MarshalIndent(requirements, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode requirements: %w", err)
	}
	partnersJSON, err := json.MarshalIndent(partners, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode partners: %w", err)
	}
	var sb strings.Builder
	err = promptTemplate.Execute(&sb, map[string]string{
		"Requirements": string(reqJSON),
		"Partners":     string(partnersJSON),
	})
	if err != nil {
		return "", fmt.Errorf("render match prompt: %w", err)
	}
	return sb.String(), nil
}
