package domain

import "strings"

const (
	MinPictureNumber = 1
	MaxPictureNumber = 10
)

// ImageTask 描述一次请求中待处理的单张图片。
type ImageTask struct {
	DealID        string
	Neighborhood  string
	URL           string
	PictureNumber int
	ForceRefresh  bool
}

// LabelSet 是识别服务返回的标签序列，保持后端原有顺序。
type LabelSet []string

// DescriptionPair 是一次生成调用产出的 alt 文本和 tooltip 文本。
type DescriptionPair struct {
	AltText     string `json:"alt_text"`
	TooltipText string `json:"tooltip_text"`
}

// Complete 两个字段都非空。
func (p DescriptionPair) Complete() bool {
	return strings.TrimSpace(p.AltText) != "" && strings.TrimSpace(p.TooltipText) != ""
}

// SlotKeys 是某个图片槽位在 CRM 中对应的三个字段 key。
type SlotKeys struct {
	Number  int
	Picture string
	AltText string
	Tooltip string
}

// Deal 是 CRM 中的一条交易记录，key 为字段 key。
type Deal map[string]any

// ID 返回记录 id 的字符串形式。
func (d Deal) ID() string {
	return StringValue(d["id"])
}

// Text 读取字段并返回去除首尾空白后的字符串，非字符串值会被格式化。
func (d Deal) Text(key string) string {
	if d == nil || key == "" {
		return ""
	}
	return strings.TrimSpace(StringValue(d[key]))
}

// ImageStatus 单张图片的处理结果。
type ImageStatus string

const (
	StatusProcessed ImageStatus = "processed"
	StatusCached    ImageStatus = "cached"
	StatusError     ImageStatus = "error"
)

// ImageResult 是响应中单张图片的结果。
type ImageResult struct {
	URL           string      `json:"url"`
	PictureNumber int         `json:"picture_number,omitempty"`
	Status        ImageStatus `json:"status"`
	BytesFetched  bool        `json:"bytes_fetched"`
	Labels        LabelSet    `json:"labels"`
	AltText       string      `json:"alt_text"`
	TooltipText   string      `json:"tooltip_text"`
	Error         string      `json:"error,omitempty"`
}
