package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// イベントキャッシュの参照結果（result: hit, miss, error）
	CacheLookupsTotal *prometheus.CounterVec

	// 統合検索時の各ソースの取得結果（source: catalog, user_store, result: success, failed）
	SourceFetchTotal *prometheus.CounterVec

	// 統合検索時の各ソースの取得時間（source）
	SourceFetchDuration *prometheus.HistogramVec

	// 参加・退出操作の総数（operation: join, leave, result: success, full, already_attending, not_attending, error）
	AttendanceTotal *prometheus.CounterVec

	// 購読中のイベントストリーム数
	ActiveSubscriptions prometheus.Gauge
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_cache_lookups_total",
				Help: "Total number of event cache lookups by result",
			},
			[]string{"result"},
		),
		SourceFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_source_fetch_total",
				Help: "Total number of event source fetches during merged searches",
			},
			[]string{"source", "result"},
		),
		SourceFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "event_source_fetch_duration_seconds",
				Help:    "Time spent fetching from each event source",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"source"},
		),
		AttendanceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_attendance_operations_total",
				Help: "Total number of join/leave attempts by result",
			},
			[]string{"operation", "result"},
		),
		ActiveSubscriptions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "event_stream_active_subscriptions",
				Help: "Current number of open organizer event streams",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheLookupsTotal,
		m.SourceFetchTotal,
		m.SourceFetchDuration,
		m.AttendanceTotal,
		m.ActiveSubscriptions,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
