package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespaceMetrics = "cruxmonitor"

var (
	registerOnce       sync.Once
	collectionRuns     *prometheus.CounterVec
	siteFetchFailures  *prometheus.CounterVec
	fetchDuration      prometheus.Histogram
	snapshotsPersisted prometheus.Counter
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		collectionRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "collection",
				Name:      "runs_total",
				Help:      "采集任务的执行次数，按结束状态统计。",
			},
			[]string{"status"},
		)
		siteFetchFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "collection",
				Name:      "site_failures_total",
				Help:      "单站点采集失败次数，按失败环节拆分。",
			},
			[]string{"stage"},
		)
		fetchDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespaceMetrics,
				Subsystem: "collection",
				Name:      "fetch_duration_seconds",
				Help:      "单站点 CrUX 拉取耗时（含重试）。",
				Buckets:   prometheus.DefBuckets,
			},
		)
		snapshotsPersisted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "collection",
				Name:      "snapshots_persisted_total",
				Help:      "成功落库的快照数量。",
			},
		)

		prometheus.MustRegister(collectionRuns, siteFetchFailures, fetchDuration, snapshotsPersisted)
		registerRuntimeCollectors()
	})
}

// ObserveCollectionRun 记录一次采集任务的结束状态。
func ObserveCollectionRun(status string) {
	if collectionRuns == nil {
		return
	}
	collectionRuns.WithLabelValues(status).Inc()
}

// ObserveSiteFailure 记录单站点采集失败，stage 取 fetch/persist。
func ObserveSiteFailure(stage string) {
	if siteFetchFailures == nil {
		return
	}
	siteFetchFailures.WithLabelValues(stage).Inc()
}

// ObserveFetchDuration 记录单站点拉取耗时。
func ObserveFetchDuration(d time.Duration) {
	if fetchDuration == nil {
		return
	}
	fetchDuration.Observe(d.Seconds())
}

// ObserveSnapshotPersisted 记录一次成功落库。
func ObserveSnapshotPersisted() {
	if snapshotsPersisted == nil {
		return
	}
	snapshotsPersisted.Inc()
}

// registerRuntimeCollectors 注册 Go 运行时指标，重复注册时忽略冲突。
func registerRuntimeCollectors() {
	for _, collector := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
