package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
	"github.com/CurlyBracesAI/RosieImageSync/internal/metrics"
	"github.com/CurlyBracesAI/RosieImageSync/internal/mirror"
	"github.com/CurlyBracesAI/RosieImageSync/pkg/util"
)

// ErrNeighborhoodRequired 同步需要指定 neighborhood。
var ErrNeighborhoodRequired = errors.New("neighborhood is required")

// RecordOutcome 是单条记录的同步结果。
type RecordOutcome struct {
	DealID      string `json:"deal_id"`
	Fetched     bool   `json:"fetched"`
	Deleted     bool   `json:"deleted"`
	Inserted    bool   `json:"inserted"`
	ContentHash string `json:"content_hash,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SyncReport 汇总一次镜像同步。
type SyncReport struct {
	Neighborhood string          `json:"neighborhood"`
	CollectionID string          `json:"collection_id"`
	DealsFound   int             `json:"deals_found"`
	DealsFetched int             `json:"deals_fetched"`
	ItemsBuilt   int             `json:"items_built"`
	Deleted      int             `json:"deleted"`
	Inserted     int             `json:"inserted"`
	Failed       int             `json:"failed"`
	Records      []RecordOutcome `json:"records"`
}

// SyncFlow 负责把某个 neighborhood 的 deal 全量替换到目标存储：查 id -> 逐条读取 -> 删除 -> 构建 -> 批量插入。
type SyncFlow struct {
	CRM          crm.Client
	Store        mirror.Store
	BatchSize    int
	Mappings     []mirror.FieldMapping
	Placeholders []string
	Logger       *zap.Logger
}

func (f *SyncFlow) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Run 执行一次同步。只有字段元数据、集合、列表查询失败才返回错误，单条失败记录在报告中。
func (f *SyncFlow) Run(ctx context.Context, neighborhood string) (SyncReport, error) {
	if f == nil {
		return SyncReport{}, fmt.Errorf("sync flow 未初始化")
	}
	if f.CRM == nil || f.Store == nil {
		return SyncReport{}, fmt.Errorf("sync flow 依赖未注入完整")
	}
	neighborhood = strings.TrimSpace(neighborhood)
	if neighborhood == "" {
		return SyncReport{}, ErrNeighborhoodRequired
	}

	start := time.Now()
	defer func() {
		metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}()

	report, err := f.run(ctx, neighborhood)
	if err != nil {
		metrics.SyncErrors.Inc()
		f.logger().Error("mirror sync failed", zap.String("neighborhood", neighborhood), zap.Error(err))
		return report, err
	}
	f.logger().Info("mirror sync completed",
		zap.String("neighborhood", neighborhood),
		zap.String("collection", report.CollectionID),
		zap.Int("found", report.DealsFound),
		zap.Int("fetched", report.DealsFetched),
		zap.Int("deleted", report.Deleted),
		zap.Int("inserted", report.Inserted),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (f *SyncFlow) run(ctx context.Context, neighborhood string) (SyncReport, error) {
	report := SyncReport{Neighborhood: neighborhood, Records: []RecordOutcome{}}

	fieldMap, err := crm.LoadFieldMap(ctx, f.CRM)
	if err != nil {
		return report, fmt.Errorf("加载字段元数据失败: %w", err)
	}
	collection, err := f.Store.Prepare(ctx)
	if err != nil {
		return report, fmt.Errorf("准备目标集合失败: %w", err)
	}
	report.CollectionID = collection

	ids, err := f.CRM.SearchDealIDs(ctx, neighborhood)
	if err != nil {
		return report, fmt.Errorf("查询 deal 列表失败: %w", err)
	}
	report.DealsFound = len(ids)

	outcomes := make([]*RecordOutcome, 0, len(ids))
	byID := make(map[string]*RecordOutcome, len(ids))
	deals := make(map[string]domain.Deal, len(ids))
	var fetched []string
	for _, id := range ids {
		out := &RecordOutcome{DealID: id}
		outcomes = append(outcomes, out)
		byID[id] = out
		// 列表接口不带自定义字段，必须逐条读取完整记录
		deal, err := f.CRM.GetDeal(ctx, id)
		if err != nil {
			out.Error = fmt.Sprintf("fetch: %v", err)
			f.logger().Warn("fetch deal failed", zap.String("deal_id", id), zap.Error(err))
			continue
		}
		out.Fetched = true
		deals[id] = deal
		fetched = append(fetched, id)
	}
	report.DealsFetched = len(fetched)

	for _, chunk := range util.Batch(fetched, f.batchSize()) {
		failed, err := f.Store.DeleteByIDs(ctx, collection, chunk)
		for _, id := range chunk {
			out := byID[id]
			switch {
			case err != nil:
				out.Error = fmt.Sprintf("delete: %v", err)
			case failed[id] != nil:
				out.Error = fmt.Sprintf("delete: %v", failed[id])
			default:
				out.Deleted = true
			}
		}
		if err != nil {
			f.logger().Warn("bulk delete failed", zap.Int("count", len(chunk)), zap.Error(err))
		}
	}

	builder := mirror.NewBuilder(fieldMap, f.Mappings, f.Placeholders)
	records := make([]mirror.Record, 0, len(fetched))
	for _, id := range fetched {
		out := byID[id]
		if !out.Deleted {
			// 删除失败时不再插入，避免产生重复条目
			continue
		}
		rec, err := builder.Build(deals[id])
		if err != nil {
			out.Error = fmt.Sprintf("build: %v", err)
			continue
		}
		rec.ID = id
		out.ContentHash = util.HashMap(rec.Data)
		records = append(records, rec)
	}
	report.ItemsBuilt = len(records)

	for _, chunk := range util.Batch(records, f.batchSize()) {
		failed, err := f.Store.InsertItems(ctx, collection, chunk)
		for _, rec := range chunk {
			out := byID[rec.ID]
			switch {
			case err != nil:
				out.Error = fmt.Sprintf("insert: %v", err)
			case failed[rec.ID] != nil:
				out.Error = fmt.Sprintf("insert: %v", failed[rec.ID])
			default:
				out.Inserted = true
			}
		}
		if err != nil {
			f.logger().Warn("bulk insert failed", zap.Int("count", len(chunk)), zap.Error(err))
		}
	}

	for _, out := range outcomes {
		if out.Deleted {
			report.Deleted++
		}
		if out.Inserted {
			report.Inserted++
			metrics.SyncRecords.WithLabelValues("inserted").Inc()
		}
		if out.Error != "" {
			report.Failed++
			metrics.SyncRecords.WithLabelValues("failed").Inc()
		}
		report.Records = append(report.Records, *out)
	}
	return report, nil
}

func (f *SyncFlow) batchSize() int {
	if f.BatchSize <= 0 {
		return 100
	}
	return f.BatchSize
}
