package loader

import (
	"context"
	"fmt"
	"regexp"

	"github.com/CurlyBracesAI/RosieImageSync/internal/cypher"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/util"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateLabel 校验节点 label，label 会直接拼进 cypher。
func ValidateLabel(label string) error {
	if !labelPattern.MatchString(label) {
		return fmt.Errorf("非法的节点 label %q", label)
	}
	return nil
}

// Cleaner 负责按 id 删除 listing 节点。
type Cleaner struct {
	client    Runner
	batchSize int
}

// NewCleaner 创建删除器，batchSize<=0 时每批 100 条。
func NewCleaner(client Runner, batchSize int) *Cleaner {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Cleaner{client: client, batchSize: batchSize}
}

// DeleteListings 分批 DETACH DELETE，不存在的 id 不算失败。
func (c *Cleaner) DeleteListings(ctx context.Context, label string, ids []string) map[string]error {
	failed := make(map[string]error)
	if len(ids) == 0 {
		return failed
	}
	if err := ValidateLabel(label); err != nil {
		for _, id := range ids {
			failed[id] = err
		}
		return failed
	}
	query := cypher.MustTemplate("delete_listings.cql", map[string]string{"Label": label})
	for _, chunk := range util.Batch(ids, c.batchSize) {
		if err := c.client.RunWrite(ctx, query, map[string]any{"ids": chunk}); err != nil {
			err = fmt.Errorf("删除 listing 失败 label=%s: %w", label, err)
			for _, id := range chunk {
				failed[id] = err
			}
		}
	}
	return failed
}
