package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/CurlyBracesAI/RosieImageSync/internal/cypher"
)

// SchemaManager 负责初始化约束和索引。
type SchemaManager struct {
	client Runner
	label  string
}

// NewSchemaManager 创建 schema 管理器。
func NewSchemaManager(client Runner, label string) *SchemaManager {
	return &SchemaManager{client: client, label: label}
}

// Ensure 按 label 创建唯一约束和索引。
func (m *SchemaManager) Ensure(ctx context.Context) error {
	if err := ValidateLabel(m.label); err != nil {
		return err
	}
	script := cypher.MustTemplate("init_schema.cql", map[string]string{"Label": m.label})
	for _, raw := range strings.Split(script, ";") {
		query := strings.TrimSpace(raw)
		if query == "" {
			continue
		}
		if err := m.client.RunRaw(ctx, query, nil); err != nil {
			return fmt.Errorf("执行 schema 语句失败: %w", err)
		}
	}
	return nil
}
