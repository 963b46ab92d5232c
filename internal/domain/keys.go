package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// DealFieldPrefix 是部分 CRM 字段显示名带有的前缀，如 "Deal - Picture 3"。
const DealFieldPrefix = "Deal - "

// PictureFieldName 返回图片槽位的 URL 字段名。
func PictureFieldName(n int) string {
	return fmt.Sprintf("Picture %d", n)
}

// AltTextFieldName 返回图片槽位的 alt 文本字段名。
func AltTextFieldName(n int) string {
	return fmt.Sprintf("Alt Text Pic %d", n)
}

// TooltipFieldName 返回图片槽位的 tooltip 字段名。
func TooltipFieldName(n int) string {
	return fmt.Sprintf("Tooltip Pic %d", n)
}

// ValidPictureNumber 判断槽位编号是否在 1..10 内。
func ValidPictureNumber(n int) bool {
	return n >= MinPictureNumber && n <= MaxPictureNumber
}

// InferPictureNumber 从 URL 最后一段路径开头的整数推断槽位，例如 ".../4181/7.jpg" -> 7。
func InferPictureNumber(rawURL string) (int, bool) {
	segment := rawURL
	if parsed, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		segment = parsed.Path
	}
	segment = path.Base(strings.TrimRight(segment, "/"))
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	end := 0
	for end < len(segment) && segment[end] >= '0' && segment[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(segment[:end])
	if err != nil || !ValidPictureNumber(n) {
		return 0, false
	}
	return n, true
}

// StringValue 把 CRM 返回的任意标量值格式化为字符串，nil 返回空串。
func StringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
