package mirror

import (
	"fmt"
	"strings"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

// FieldMapping 把 CRM 字段显示名映射到目标字段名。
type FieldMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// DefaultFieldMappings 返回网站集合使用的直接字段映射，图片三元组单独处理。
func DefaultFieldMappings() []FieldMapping {
	return []FieldMapping{
		{Source: "Deal - ID (Wix)", Target: "ID"},
		{Source: "Deal - Title", Target: "Title"},
		{Source: "Deal - Order", Target: "Order"},
		{Source: "Deal - Stage", Target: "Stage"},
		{Source: "Deal - Neighborhood (primary)", Target: "Neighborhood (primary)"},
		{Source: "Deal - Neighborhood (secondary)", Target: "Neighborhood (secondary)"},
		{Source: "Deal - Neighborhood (address details)", Target: "Neighborhood (address details)"},
		{Source: "Deal - State", Target: "State"},
		{Source: "Deal - Zip Code", Target: "Zip Code"},
		{Source: "Deal - Web Description Copy", Target: "Web Description Copy"},
		{Source: "Deal - Partner Wellspring Weblink", Target: "Partner Wellspring Weblink"},
		{Source: "Deal - FT | PT Availability/ Requirement", Target: "FT | PT Availability/ Requirement"},
		{Source: "Deal - Profession | Use", Target: "Profession | Use"},
		{Source: "Deal - Profession | Use2", Target: "Profession | Use2"},
	}
}

// DefaultPlaceholders 是视为“无图片”的占位 URL。
func DefaultPlaceholders() []string {
	return []string{"placeholder", "n/a", "na", "none", "null", "-", "tbd"}
}

// Builder 把一条 CRM deal 投影成目标记录。
type Builder struct {
	fields       *crm.FieldMap
	mappings     []FieldMapping
	placeholders []string
}

// NewBuilder 创建 payload 构建器，mappings/placeholders 为空时使用默认值。
func NewBuilder(fields *crm.FieldMap, mappings []FieldMapping, placeholders []string) *Builder {
	if len(mappings) == 0 {
		mappings = DefaultFieldMappings()
	}
	if placeholders == nil {
		placeholders = DefaultPlaceholders()
	}
	normalized := make([]string, 0, len(placeholders))
	for _, p := range placeholders {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Builder{fields: fields, mappings: mappings, placeholders: normalized}
}

// Build 生成记录：直接字段 + 翻译后的枚举/阶段字段 + 最多 10 组图片三元组。
func (b *Builder) Build(deal domain.Deal) (Record, error) {
	id := deal.ID()
	if id == "" {
		return Record{}, fmt.Errorf("deal 缺少 id")
	}
	data := make(map[string]any)
	for _, m := range b.mappings {
		key, ok := b.fields.ResolveFieldKey(m.Source)
		if !ok {
			continue
		}
		value := b.fields.TranslateValue(key, deal[key])
		if isEmptyValue(value) {
			continue
		}
		data[m.Target] = value
	}
	for n := domain.MinPictureNumber; n <= domain.MaxPictureNumber; n++ {
		keys, err := b.fields.SlotKeys(n)
		if err != nil {
			continue
		}
		url := strings.TrimSpace(deal.Text(keys.Picture))
		if url == "" || b.IsPlaceholder(url) {
			continue
		}
		data[domain.PictureFieldName(n)] = url
		if alt := deal.Text(keys.AltText); alt != "" {
			data[domain.AltTextFieldName(n)] = alt
		}
		if tip := deal.Text(keys.Tooltip); tip != "" {
			data[domain.TooltipFieldName(n)] = tip
		}
	}
	return Record{ID: id, Data: data}, nil
}

// IsPlaceholder 判断 URL 是否为占位值：整体等于某个占位词，或文件名为 placeholder.*。
func (b *Builder) IsPlaceholder(url string) bool {
	v := strings.ToLower(strings.TrimSpace(url))
	if strings.Contains(v, "/placeholder.") {
		return true
	}
	for _, p := range b.placeholders {
		if v == p {
			return true
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
