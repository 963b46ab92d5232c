package mirror

import (
	"context"
	"errors"
)

// ErrCollectionNotFound 目标集合不存在。
var ErrCollectionNotFound = errors.New("destination collection not found")

// Record 是写入目标存储的一条镜像记录，ID 即 CRM deal id。
type Record struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Store 抽象镜像目标存储：按 id 批量删除、批量插入。
// 返回的 map 记录逐条失败原因，未出现在 map 中的 id 视为成功；第二个返回值表示整批失败。
type Store interface {
	Prepare(ctx context.Context) (string, error)
	DeleteByIDs(ctx context.Context, collection string, ids []string) (map[string]error, error)
	InsertItems(ctx context.Context, collection string, records []Record) (map[string]error, error)
}

// Closer 由持有连接的存储实现，服务关闭时调用。
type Closer interface {
	Close(ctx context.Context) error
}
