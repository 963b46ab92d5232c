package crm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

const stageFieldKey = "stage_id"

// FieldMap 是一次操作内使用的字段元数据上下文：显示名 -> key，key -> 选项 id -> 文本，阶段 id -> 名称。
// 每次操作重新构建，操作结束即丢弃。
type FieldMap struct {
	byName  map[string]Field
	byLower map[string]Field
	byKey   map[string]Field
	options map[string]map[int]string
	stages  map[int]string
}

// LoadFieldMap 拉取字段元数据和阶段映射。
func LoadFieldMap(ctx context.Context, client Client) (*FieldMap, error) {
	if client == nil {
		return nil, ErrNotConfigured
	}
	fields, err := client.ListDealFields(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := client.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	return NewFieldMap(fields, stages), nil
}

// NewFieldMap 由已拉取的元数据构建 FieldMap。
func NewFieldMap(fields []Field, stages []Stage) *FieldMap {
	fm := &FieldMap{
		byName:  make(map[string]Field, len(fields)),
		byLower: make(map[string]Field, len(fields)),
		byKey:   make(map[string]Field, len(fields)),
		options: make(map[string]map[int]string),
		stages:  make(map[int]string, len(stages)),
	}
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		name := strings.TrimSpace(f.Name)
		if _, exists := fm.byName[name]; !exists {
			fm.byName[name] = f
		}
		lower := strings.ToLower(name)
		if _, exists := fm.byLower[lower]; !exists {
			fm.byLower[lower] = f
		}
		fm.byKey[f.Key] = f
		if len(f.Options) > 0 {
			opts := make(map[int]string, len(f.Options))
			for _, opt := range f.Options {
				id, err := strconv.Atoi(opt.ID.String())
				if err != nil {
					continue
				}
				opts[id] = opt.Label
			}
			fm.options[f.Key] = opts
		}
	}
	for _, s := range stages {
		fm.stages[s.ID] = s.Name
	}
	return fm
}

// ResolveFieldKey 按显示名查找字段 key，兼容带或不带 "Deal - " 前缀的写法。
func (m *FieldMap) ResolveFieldKey(displayName string) (string, bool) {
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(displayName)
	bare := strings.TrimPrefix(name, domain.DealFieldPrefix)
	candidates := []string{name, bare, domain.DealFieldPrefix + bare}
	for _, c := range candidates {
		if f, ok := m.byName[c]; ok {
			return f.Key, true
		}
	}
	for _, c := range candidates {
		if f, ok := m.byLower[strings.ToLower(c)]; ok {
			return f.Key, true
		}
	}
	return "", false
}

// SlotKeys 返回槽位 n 的图片/alt/tooltip 字段 key。
func (m *FieldMap) SlotKeys(n int) (domain.SlotKeys, error) {
	if !domain.ValidPictureNumber(n) {
		return domain.SlotKeys{}, fmt.Errorf("invalid picture number %d", n)
	}
	keys := domain.SlotKeys{Number: n}
	var missing []string
	var ok bool
	if keys.Picture, ok = m.ResolveFieldKey(domain.PictureFieldName(n)); !ok {
		missing = append(missing, domain.PictureFieldName(n))
	}
	if keys.AltText, ok = m.ResolveFieldKey(domain.AltTextFieldName(n)); !ok {
		missing = append(missing, domain.AltTextFieldName(n))
	}
	if keys.Tooltip, ok = m.ResolveFieldKey(domain.TooltipFieldName(n)); !ok {
		missing = append(missing, domain.TooltipFieldName(n))
	}
	if len(missing) > 0 {
		return domain.SlotKeys{}, fmt.Errorf("crm fields not found: %s", strings.Join(missing, ", "))
	}
	return keys, nil
}

// TranslateValue 把选项 id / 阶段 id 翻译成可读文本。
// 逗号分隔的数字 id 逐个查表后以 ", " 拼接；非数字片段原样保留。
func (m *FieldMap) TranslateValue(fieldKey string, raw any) any {
	if m == nil || raw == nil {
		return raw
	}
	if m.isStageField(fieldKey) {
		id, err := strconv.Atoi(strings.TrimSpace(domain.StringValue(raw)))
		if err != nil {
			return raw
		}
		if name, ok := m.stages[id]; ok {
			return name
		}
		return raw
	}
	opts, ok := m.options[fieldKey]
	if !ok || len(opts) == 0 {
		return raw
	}
	text := domain.StringValue(raw)
	if strings.TrimSpace(text) == "" {
		return raw
	}
	tokens := strings.Split(text, ",")
	translated := make([]string, 0, len(tokens))
	anyDigit := false
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !isDigits(tok) {
			translated = append(translated, tok)
			continue
		}
		anyDigit = true
		id, err := strconv.Atoi(tok)
		if err != nil {
			translated = append(translated, tok)
			continue
		}
		if label, ok := opts[id]; ok {
			translated = append(translated, label)
		} else {
			translated = append(translated, tok)
		}
	}
	if !anyDigit {
		return raw
	}
	return strings.Join(translated, ", ")
}

func (m *FieldMap) isStageField(fieldKey string) bool {
	if fieldKey == stageFieldKey {
		return true
	}
	f, ok := m.byKey[fieldKey]
	return ok && f.FieldType == "stage"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
