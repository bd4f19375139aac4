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
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordIndicatorFailure(indicator string)
	RecordIndicatorLatency(duration time.Duration)
	RecordLogin(result string)
	RecordSecondarySave(path string)
	RecordRelationsRepaired(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	indicatorFail    *prometheus.CounterVec
	indicatorLatency prometheus.Histogram
	logins           *prometheus.CounterVec
	secondarySaves   *prometheus.CounterVec
	repaired         prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		indicatorFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lactech_indicator_failures_total",
			Help: "ダッシュボード指標のクエリ失敗数",
		}, []string{"indicator"}),
		indicatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lactech_indicator_latency_seconds",
			Help:    "ダッシュボード指標の読み込み時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lactech_login_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		secondarySaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lactech_secondary_account_saves_total",
			Help: "経路別の副アカウント保存数",
		}, []string{"path"}),
		repaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lactech_secondary_relations_repaired_total",
			Help: "修復ジョブが補完した主・副アカウント関係の数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lactech_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.indicatorFail,
		c.indicatorLatency,
		c.logins,
		c.secondarySaves,
		c.repaired,
		c.httpStatus,
	)

	return c
}

// RecordIndicatorFailure は指標クエリの失敗を記録する。
func (c *Collector) RecordIndicatorFailure(indicator string) {
	c.indicatorFail.WithLabelValues(indicator).Inc()
}

// RecordIndicatorLatency は指標一式の読み込み時間を記録する。
func (c *Collector) RecordIndicatorLatency(duration time.Duration) {
	c.indicatorLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordSecondarySave は副アカウント保存の経路を記録する。
func (c *Collector) RecordSecondarySave(path string) {
	c.secondarySaves.WithLabelValues(path).Inc()
}

// RecordRelationsRepaired は修復した関係の数を記録する。
func (c *Collector) RecordRelationsRepaired(count int) {
	c.repaired.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやworkerコマンドで使う。
type Nop struct{}

func (Nop) RecordIndicatorFailure(string)         {}
func (Nop) RecordIndicatorLatency(time.Duration) {}
func (Nop) RecordLogin(string)                    {}
func (Nop) RecordSecondarySave(string)            {}
func (Nop) RecordRelationsRepaired(int)           {}
func (Nop) RecordHTTPStatus(int)                  {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
