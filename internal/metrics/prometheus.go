package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ImagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rosie_images_total",
		Help: "按结果统计的图片处理数",
	}, []string{"status"})

	BackendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rosie_backend_failures_total",
		Help: "外部依赖调用失败次数",
	}, []string{"component"})

	SyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rosie_mirror_sync_duration_seconds",
		Help:    "单次镜像同步耗时",
		Buckets: prometheus.DefBuckets,
	})

	SyncRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rosie_mirror_sync_records_total",
		Help: "镜像同步的记录结果",
	}, []string{"outcome"})

	SyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rosie_mirror_sync_errors_total",
		Help: "同步失败次数",
	})
)

// MustRegister 注册指标，可在 main 中调用。
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(ImagesTotal, BackendFailures, SyncDuration, SyncRecords, SyncErrors)
}

var registerOnce sync.Once

// RegisterDefault 向默认 registry 注册一次，重复调用无副作用。
func RegisterDefault() {
	registerOnce.Do(func() {
		MustRegister(prometheus.DefaultRegisterer)
	})
}
