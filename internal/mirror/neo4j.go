package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
	"github.com/CurlyBracesAI/RosieImageSync/internal/loader"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/util"
)

const defaultListingLabel = "Listing"

// Neo4jStore 把镜像记录写成 (:Listing {listing_id}) 节点，collection 即节点 label。
type Neo4jStore struct {
	label   string
	schema  *loader.SchemaManager
	writer  *loader.ListingWriter
	cleaner *loader.Cleaner
	closer  Closer
	now     func() time.Time
}

// NewNeo4jStore 基于 loader 组件创建存储。
func NewNeo4jStore(client loader.Runner, label string, batchSize int) *Neo4jStore {
	if label == "" {
		label = defaultListingLabel
	}
	closer, _ := client.(Closer)
	return &Neo4jStore{
		closer:  closer,
		label:   label,
		schema:  loader.NewSchemaManager(client, label),
		writer:  loader.NewListingWriter(client, batchSize),
		cleaner: loader.NewCleaner(client, batchSize),
		now:     time.Now,
	}
}

// Prepare 确保约束存在，返回节点 label。
func (s *Neo4jStore) Prepare(ctx context.Context) (string, error) {
	if err := s.schema.Ensure(ctx); err != nil {
		return "", err
	}
	return s.label, nil
}

// DeleteByIDs 按 listing_id 删除节点，不存在的 id 不算失败。
func (s *Neo4jStore) DeleteByIDs(ctx context.Context, collection string, ids []string) (map[string]error, error) {
	return s.cleaner.DeleteListings(ctx, collection, ids), nil
}

// InsertItems 分批创建节点，返回失败记录及原因。
func (s *Neo4jStore) InsertItems(ctx context.Context, collection string, records []Record) (map[string]error, error) {
	now := s.now()
	rows := make([]loader.ListingRow, 0, len(records))
	for _, r := range records {
		props := neo4jProperties(r.Data)
		rows = append(rows, loader.ListingRow{
			ListingID:    r.ID,
			Neighborhood: domain.StringValue(r.Data["Neighborhood (primary)"]),
			Properties:   props,
			ContentHash:  util.HashMap(r.Data),
			SyncedAt:     now,
		})
	}
	return s.writer.InsertListings(ctx, collection, rows), nil
}

// Close 关闭底层连接。
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close(ctx)
}

// neo4jProperties 把值转换为 Neo4j 可接受的属性类型。
func neo4jProperties(data map[string]any) map[string]any {
	props := make(map[string]any, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case nil:
			continue
		case string, bool, int64, float64:
			props[k] = val
		case int:
			props[k] = int64(val)
		case json.Number:
			if i, err := val.Int64(); err == nil {
				props[k] = i
			} else if f, err := val.Float64(); err == nil {
				props[k] = f
			} else {
				props[k] = val.String()
			}
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				props[k] = fmt.Sprintf("%v", val)
				continue
			}
			props[k] = string(raw)
		}
	}
	return props
}
