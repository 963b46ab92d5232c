package util

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// HashMap 返回 map 的稳定 SHA-256，用于比较两次同步写入的内容是否一致。
// 值按 JSON 编码，嵌套 map 的 key 顺序同样稳定。
func HashMap(m map[string]any) string {
	h := sha256.New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		raw, err := json.Marshal(m[k])
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", m[k]))
		}
		h.Write(raw)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
