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
// フィードサービス・書き込みサービス・HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordFeedRequest(feedType, bucket string)
	RecordFeedLatency(feedType string, duration time.Duration)
	RecordApplicantCountFailure()
	RecordWriteOperation(operation, outcome string)
	RecordHTTPStatus(statusCode int)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	feedRequests    *prometheus.CounterVec
	feedLatency     *prometheus.HistogramVec
	applicantFail   prometheus.Counter
	writeOperations *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitfeed_feed_requests_total",
			Help: "フィード種別・区分別のフィード取得数",
		}, []string{"feed_type", "bucket"}),
		feedLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recruitfeed_feed_latency_seconds",
			Help:    "フィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"feed_type"}),
		applicantFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recruitfeed_applicant_count_fail_total",
			Help: "応募数集計に失敗し0件で代替した回数",
		}),
		writeOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitfeed_write_operations_total",
			Help: "書き込み操作の結果別件数",
		}, []string{"operation", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recruitfeed_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recruitfeed_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.feedRequests,
		c.feedLatency,
		c.applicantFail,
		c.writeOperations,
		c.httpStatus,
		c.sessionsCleaned,
	)

	return c
}

// RecordFeedRequest はフィード取得を記録する。
func (c *Collector) RecordFeedRequest(feedType, bucket string) {
	c.feedRequests.WithLabelValues(feedType, bucket).Inc()
}

// RecordFeedLatency はフィード取得のレイテンシを記録する。
func (c *Collector) RecordFeedLatency(feedType string, duration time.Duration) {
	c.feedLatency.WithLabelValues(feedType).Observe(duration.Seconds())
}

// RecordApplicantCountFailure は応募数集計の失敗を記録する。
func (c *Collector) RecordApplicantCountFailure() {
	c.applicantFail.Inc()
}

// RecordWriteOperation は書き込み操作の結果を記録する。
func (c *Collector) RecordWriteOperation(operation, outcome string) {
	c.writeOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsCleaned は削除したセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordFeedRequest(string, string) {}
func (Nop) RecordFeedLatency(string, time.Duration) {}
func (Nop) RecordApplicantCountFailure() {}
func (Nop) RecordWriteOperation(string, string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordSessionsCleaned(int64) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
