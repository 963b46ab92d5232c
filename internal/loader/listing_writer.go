package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/CurlyBracesAI/RosieImageSync/internal/cypher"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/util"
)

// ListingRow 是写入图数据库的一条镜像记录。
type ListingRow struct {
	ListingID    string
	Neighborhood string
	Properties   map[string]any
	ContentHash  string
	SyncedAt     time.Time
}

// ListingWriter 负责批量创建 listing 节点。
type ListingWriter struct {
	client    Runner
	batchSize int
}

// NewListingWriter 创建写入器。
func NewListingWriter(client Runner, batchSize int) *ListingWriter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ListingWriter{client: client, batchSize: batchSize}
}

// InsertListings 分批写入，返回每条失败记录的原因；某批失败不影响后续批次。
func (w *ListingWriter) InsertListings(ctx context.Context, label string, rows []ListingRow) map[string]error {
	failed := make(map[string]error)
	if len(rows) == 0 {
		return failed
	}
	if err := ValidateLabel(label); err != nil {
		for _, row := range rows {
			failed[row.ListingID] = err
		}
		return failed
	}
	query := cypher.MustTemplate("insert_listings.cql", map[string]string{"Label": label})
	for _, chunk := range util.Batch(rows, w.batchSize) {
		params := map[string]any{"rows": toListingParameters(chunk)}
		if err := w.client.RunWrite(ctx, query, params); err != nil {
			err = fmt.Errorf("写入 listing 失败 label=%s: %w", label, err)
			for _, row := range chunk {
				failed[row.ListingID] = err
			}
		}
	}
	return failed
}

func toListingParameters(rows []ListingRow) []map[string]any {
	res := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		syncedAt := row.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		res = append(res, map[string]any{
			"listing_id":   row.ListingID,
			"neighborhood": row.Neighborhood,
			"properties":   row.Properties,
			"content_hash": row.ContentHash,
			"synced_at":    syncedAt.UTC().Format(time.RFC3339),
		})
	}
	return res
}
