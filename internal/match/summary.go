package match

import (
	"sort"
	"strings"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

// PartnerSummary 是交给模型的房源摘要。
type PartnerSummary struct {
	DealID       any    `json:"deal_id"`
	Title        string `json:"title"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Availability string `json:"availability,omitempty"`
	Price        string `json:"price,omitempty"`
	OfficeNotes  string `json:"office_notes,omitempty"`
	Profession   string `json:"profession,omitempty"`
}

// ClientName 优先取联系人姓名，其次取交易标题。
func ClientName(deal map[string]any) string {
	if name := strings.TrimSpace(domain.StringValue(deal["person_name"])); name != "" {
		return name
	}
	if title := dealTitle(deal); title != "" {
		return title
	}
	return "Client"
}

// ClientRequirements 提取客户的需求字段，空值不输出。
func ClientRequirements(deal map[string]any) map[string]string {
	req := map[string]string{"title": dealTitle(deal)}
	for _, hint := range []string{"neighborhood", "profession", "availability", "budget", "office_type", "start_date"} {
		req[hint] = FieldValue(deal, hint)
	}
	for k, v := range req {
		if v == "" {
			delete(req, k)
		}
	}
	return req
}

// SummarizePartner 生成房源摘要。
func SummarizePartner(deal map[string]any) PartnerSummary {
	price := FieldValue(deal, "price")
	if price == "" {
		price = FieldValue(deal, "budget")
	}
	return PartnerSummary{
		DealID:       deal["id"],
		Title:        dealTitle(deal),
		Neighborhood: FieldValue(deal, "neighborhood"),
		Availability: FieldValue(deal, "availability"),
		Price:        price,
		OfficeNotes:  FieldValue(deal, "notes"),
		Profession:   FieldValue(deal, "profession"),
	}
}

// FieldValue 按 key 中包含 hint（忽略大小写）查找字段。
// 值为字符串直接返回，为对象时取其 label；key 按字典序遍历。
func FieldValue(deal map[string]any, hint string) string {
	hint = strings.ToLower(hint)
	keys := make([]string, 0, len(deal))
	for k := range deal {
		if strings.Contains(strings.ToLower(k), hint) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := deal[k].(type) {
		case string:
			return v
		case map[string]any:
			if label, ok := v["label"]; ok {
				return domain.StringValue(label)
			}
		}
	}
	return ""
}

func dealTitle(deal map[string]any) string {
	return strings.TrimSpace(domain.StringValue(deal["title"]))
}
