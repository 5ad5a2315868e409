package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 应用级 Prometheus 指标
// 使用独立 Registry，避免测试中重复注册到全局默认 Registry
type Metrics struct {
	reg *prometheus.Registry

	sourceQueries  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	malformedRows  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		sourceQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_source_queries_total",
			Help: "Total number of schedule source queries issued by the aggregator.",
		}, []string{"source"}),
		sourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_source_failures_total",
			Help: "Total number of schedule source queries that failed or timed out and were treated as empty.",
		}, []string{"source"}),
		sourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schedule_source_query_duration_seconds",
			Help:    "Latency of a single schedule source query.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		malformedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_malformed_rows_total",
			Help: "Total number of schedule rows skipped because a required field was missing.",
		}, []string{"source"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry 返回底层 Registry（测试读取指标值）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveSourceQuery 记录一次数据源查询结果
func (m *Metrics) ObserveSourceQuery(source string, elapsed time.Duration, err error) {
	m.sourceQueries.WithLabelValues(source).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		m.sourceFailures.WithLabelValues(source).Inc()
	}
}

// IncMalformedRow 记录一条被跳过的异常行
func (m *Metrics) IncMalformedRow(source string) {
	m.malformedRows.WithLabelValues(source).Inc()
}

// ObserveHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
