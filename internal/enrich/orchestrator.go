package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CurlyBracesAI/RosieImageSync/internal/crm"
	"github.com/CurlyBracesAI/RosieImageSync/internal/domain"
	"github.com/CurlyBracesAI/RosieImageSync/internal/metrics"
)

// ErrInvalidRequest 请求参数不合法。
var ErrInvalidRequest = errors.New("invalid request")

// Request 是一次图片增强请求。
type Request struct {
	DealID        string
	Neighborhood  string
	ImageURLs     []string
	PictureNumber int
	ForceRefresh  bool
}

// Validate 校验必填字段，失败时不得调用任何后端。
func (r Request) Validate() error {
	if strings.TrimSpace(r.DealID) == "" {
		return fmt.Errorf("%w: deal_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Neighborhood) == "" {
		return fmt.Errorf("%w: neighborhood is required", ErrInvalidRequest)
	}
	if r.ImageURLs == nil {
		return fmt.Errorf("%w: image_urls is required", ErrInvalidRequest)
	}
	if r.PictureNumber != 0 && !domain.ValidPictureNumber(r.PictureNumber) {
		return fmt.Errorf("%w: picture_number must be between %d and %d", ErrInvalidRequest, domain.MinPictureNumber, domain.MaxPictureNumber)
	}
	return nil
}

// Tasks 把请求拆成逐张图片的任务。显式 picture_number 只在单张图片时生效。
func (r Request) Tasks() []domain.ImageTask {
	tasks := make([]domain.ImageTask, 0, len(r.ImageURLs))
	for _, u := range r.ImageURLs {
		task := domain.ImageTask{
			DealID:       strings.TrimSpace(r.DealID),
			Neighborhood: strings.TrimSpace(r.Neighborhood),
			URL:          strings.TrimSpace(u),
			ForceRefresh: r.ForceRefresh,
		}
		if len(r.ImageURLs) == 1 {
			task.PictureNumber = r.PictureNumber
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Response 是接口返回的信封。
type Response struct {
	Status       string               `json:"status"`
	DealID       string               `json:"deal_id"`
	Neighborhood string               `json:"neighborhood"`
	ImageCount   int                  `json:"image_count"`
	Images       []domain.ImageResult `json:"images"`
}

// Orchestrator 逐张驱动 下载 -> 缓存检查 -> 识别 -> 生成 -> 回写。
type Orchestrator struct {
	CRM       crm.Client
	Fetcher   Fetcher
	Detector  LabelDetector
	Generator DescriptionGenerator
	Cache     *CacheGate
	Logger    *zap.Logger
}

// Run 处理整批图片；单张失败不会中断其它图片。
func (o *Orchestrator) Run(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	tasks := req.Tasks()
	resp := Response{
		Status:       "ok",
		DealID:       strings.TrimSpace(req.DealID),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		ImageCount:   len(tasks),
		Images:       make([]domain.ImageResult, 0, len(tasks)),
	}
	if len(tasks) == 0 {
		return resp, nil
	}

	var fieldMap *crm.FieldMap
	fieldErr := crm.ErrNotConfigured
	if o.CRM != nil {
		fieldMap, fieldErr = crm.LoadFieldMap(ctx, o.CRM)
	}
	if fieldErr != nil {
		metrics.BackendFailures.WithLabelValues("crm_fields").Inc()
		o.logger().Error("load crm field map failed", zap.String("deal_id", resp.DealID), zap.Error(fieldErr))
	}

	for _, task := range tasks {
		run := &imageRun{task: task, fields: fieldMap, fieldErr: fieldErr, state: StateResolveSlot}
		for !run.state.Terminal() {
			run.state = o.step(ctx, run)
		}
		result := run.result()
		metrics.ImagesTotal.WithLabelValues(string(result.Status)).Inc()
		o.logger().Info("image processed",
			zap.String("deal_id", task.DealID),
			zap.String("url", task.URL),
			zap.Int("picture_number", run.keys.Number),
			zap.String("status", string(result.Status)),
			zap.Int("labels", len(run.labels)))
		resp.Images = append(resp.Images, result)
	}
	return resp, nil
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

type imageRun struct {
	task     domain.ImageTask
	fields   *crm.FieldMap
	fieldErr error
	state    State

	keys         domain.SlotKeys
	bytesFetched bool
	data         []byte
	labels       domain.LabelSet
	pair         domain.DescriptionPair
	err          error
}

func (r *imageRun) fail(err error) State {
	r.err = err
	return StateFailed
}

func (r *imageRun) result() domain.ImageResult {
	res := domain.ImageResult{
		URL:           r.task.URL,
		PictureNumber: r.keys.Number,
		BytesFetched:  r.bytesFetched,
		Labels:        r.labels,
		AltText:       r.pair.AltText,
		TooltipText:   r.pair.TooltipText,
	}
	if res.Labels == nil {
		res.Labels = domain.LabelSet{}
	}
	switch r.state {
	case StateCached:
		res.Status = domain.StatusCached
	case StateDone:
		res.Status = domain.StatusProcessed
	default:
		res.Status = domain.StatusError
		if r.err != nil {
			res.Error = r.err.Error()
		}
	}
	return res
}

func (o *Orchestrator) step(ctx context.Context, r *imageRun) State {
	switch r.state {
	case StateResolveSlot:
		return o.resolveSlot(r)
	case StateFetch:
		return o.fetch(ctx, r)
	case StateCacheCheck:
		return o.checkCache(ctx, r)
	case StateDetect:
		return o.detect(ctx, r)
	case StateGenerate:
		return o.generate(ctx, r)
	case StateWriteBack:
		return o.writeBack(ctx, r)
	default:
		return r.fail(fmt.Errorf("unexpected state %s", r.state))
	}
}

func (o *Orchestrator) resolveSlot(r *imageRun) State {
	n := r.task.PictureNumber
	if n == 0 {
		inferred, ok := domain.InferPictureNumber(r.task.URL)
		if !ok {
			return r.fail(fmt.Errorf("cannot infer picture number from url"))
		}
		n = inferred
	}
	r.keys.Number = n
	if r.fieldErr != nil {
		return r.fail(fmt.Errorf("crm fields unavailable: %w", r.fieldErr))
	}
	keys, err := r.fields.SlotKeys(n)
	if err != nil {
		return r.fail(err)
	}
	r.keys = keys
	return StateFetch
}

func (o *Orchestrator) fetch(ctx context.Context, r *imageRun) State {
	if o.Fetcher == nil {
		return r.fail(fmt.Errorf("image fetcher not configured"))
	}
	data, err := o.Fetcher.Fetch(ctx, r.task.URL)
	if err != nil {
		metrics.BackendFailures.WithLabelValues("fetch").Inc()
		o.logger().Warn("fetch image failed", zap.String("url", r.task.URL), zap.Error(err))
		return r.fail(err)
	}
	r.data = data
	r.bytesFetched = true
	return StateCacheCheck
}

func (o *Orchestrator) checkCache(ctx context.Context, r *imageRun) State {
	if o.Cache == nil {
		return StateDetect
	}
	decision, err := o.Cache.Check(ctx, r.task.DealID, r.keys, r.task.ForceRefresh)
	if err != nil {
		metrics.BackendFailures.WithLabelValues("crm_read").Inc()
		o.logger().Warn("cache check failed, generating", zap.String("deal_id", r.task.DealID), zap.Int("picture_number", r.keys.Number), zap.Error(err))
		return StateDetect
	}
	if decision.Cached {
		r.pair = decision.Pair
		return StateCached
	}
	return StateDetect
}

func (o *Orchestrator) detect(ctx context.Context, r *imageRun) State {
	if o.Detector == nil {
		return StateGenerate
	}
	labels, err := o.Detector.Detect(ctx, r.data)
	switch {
	case errors.Is(err, ErrDetectorDisabled):
		o.logger().Debug("label detector disabled")
	case err != nil:
		metrics.BackendFailures.WithLabelValues("detect").Inc()
		o.logger().Warn("detect labels failed", zap.String("url", r.task.URL), zap.Error(err))
	default:
		r.labels = labels
	}
	return StateGenerate
}

func (o *Orchestrator) generate(ctx context.Context, r *imageRun) State {
	if o.Generator == nil {
		return r.fail(ErrGeneratorDisabled)
	}
	pair, err := o.Generator.Generate(ctx, DescriptionInput{
		Neighborhood: r.task.Neighborhood,
		Labels:       r.labels,
		SourceURL:    r.task.URL,
	})
	if err != nil {
		metrics.BackendFailures.WithLabelValues("generate").Inc()
		o.logger().Warn("generate description failed", zap.String("url", r.task.URL), zap.Error(err))
		r.pair = domain.DescriptionPair{}
		return r.fail(err)
	}
	r.pair = pair
	return StateWriteBack
}

func (o *Orchestrator) writeBack(ctx context.Context, r *imageRun) State {
	if o.CRM == nil {
		return r.fail(crm.ErrNotConfigured)
	}
	fields := map[string]any{
		r.keys.Picture: r.task.URL,
		r.keys.AltText: r.pair.AltText,
		r.keys.Tooltip: r.pair.TooltipText,
	}
	if err := o.CRM.UpdateDeal(ctx, r.task.DealID, fields); err != nil {
		metrics.BackendFailures.WithLabelValues("crm_write").Inc()
		o.logger().Error("write back failed", zap.String("deal_id", r.task.DealID), zap.Int("picture_number", r.keys.Number), zap.Error(err))
		return r.fail(err)
	}
	return StateDone
}
