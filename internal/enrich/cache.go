package enrich

import (
	"context"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
)

// CacheDecision 是缓存检查的结果。
type CacheDecision struct {
	Cached bool
	Pair   domain.DescriptionPair
}

// CacheGate 在生成前读取槽位现有文本，已完整且未强制刷新时直接复用。
// 没有加锁：同一槽位的并发请求可能都判定未命中，后写入者生效。
type CacheGate struct {
	deals crm.DealReader
}

// NewCacheGate 创建缓存检查器。
func NewCacheGate(deals crm.DealReader) *CacheGate {
	return &CacheGate{deals: deals}
}

// Check 读取 CRM 中槽位的 alt/tooltip 字段。
func (g *CacheGate) Check(ctx context.Context, dealID string, keys domain.SlotKeys, force bool) (CacheDecision, error) {
	if force {
		return CacheDecision{}, nil
	}
	if g == nil || g.deals == nil {
		return CacheDecision{}, crm.ErrNotConfigured
	}
	deal, err := g.deals.GetDeal(ctx, dealID)
	if err != nil {
		return CacheDecision{}, err
	}
	pair := domain.DescriptionPair{
		AltText:     deal.Text(keys.AltText),
		TooltipText: deal.Text(keys.Tooltip),
	}
	if !pair.Complete() {
		return CacheDecision{}, nil
	}
	return CacheDecision{Cached: true, Pair: pair}, nil
}
