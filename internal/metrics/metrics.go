// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 同期コンテキスト、HTTPミドルウェア、クリーンアップワーカーから利用する。
type MetricsCollector interface {
	ObserveLoad(result string, d time.Duration)
	ObserveMutation(collection, op, result string, d time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSessionsPurged(count int64)
	RecordContextsEvicted(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncLoads       *prometheus.CounterVec
	syncLoadLatency prometheus.Histogram
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
	sessionsPurged  prometheus.Counter
	contextsEvicted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secondbrain_sync_loads_total",
			Help: "ミラー初期読み込みの合計数（結果別）",
		}, []string{"result"}),
		syncLoadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "secondbrain_sync_load_latency_seconds",
			Help:    "4コレクション並列読み込みのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secondbrain_mutations_total",
			Help: "コレクション変更操作の合計数",
		}, []string{"collection", "op", "result"}),
		mutationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "secondbrain_remote_latency_seconds",
			Help:    "リモートストアへの変更操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secondbrain_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secondbrain_sessions_purged_total",
			Help: "削除された期限切れセッションの合計数",
		}),
		contextsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secondbrain_sync_contexts_evicted_total",
			Help: "アイドルで破棄された同期コンテキストの合計数",
		}),
	}

	reg.MustRegister(
		c.syncLoads,
		c.syncLoadLatency,
		c.mutations,
		c.mutationLatency,
		c.httpStatus,
		c.sessionsPurged,
		c.contextsEvicted,
	)

	return c
}

// ObserveLoad はミラー初期読み込みの結果とレイテンシを記録する。
func (c *Collector) ObserveLoad(result string, d time.Duration) {
	c.syncLoads.WithLabelValues(result).Inc()
	c.syncLoadLatency.Observe(d.Seconds())
}

// ObserveMutation は変更操作の結果とレイテンシを記録する。
func (c *Collector) ObserveMutation(collection, op, result string, d time.Duration) {
	c.mutations.WithLabelValues(collection, op, result).Inc()
	c.mutationLatency.WithLabelValues(collection).Observe(d.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// RecordContextsEvicted は破棄したアイドル同期コンテキスト数を記録する。
func (c *Collector) RecordContextsEvicted(count int) {
	c.contextsEvicted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
