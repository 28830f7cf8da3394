package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method", "path", "status"},
	)

	// 模型调用延迟（毫秒）
	ModelCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_call_latency_ms",
			Help:    "Hosted model completion latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"model", "status"},
	)

	// 邮件提供方调用延迟（毫秒）
	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_latency_ms",
			Help:    "Mail provider API latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12), // 10ms to ~40s
		},
		[]string{"operation", "status"},
	)

	// 分类结果计数
	EmailClassifiedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_classified_count",
			Help: "Total number of emails classified",
		},
		[]string{"category", "status"}, // status: success, invalid_reply, failed
	)

	// 拉取邮件计数
	EmailFetchedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_fetched_count",
			Help: "Total number of emails fetched and normalized",
		},
		[]string{"status"}, // status: success, failed
	)
)

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordModelCallLatency 记录模型调用延迟
func RecordModelCallLatency(model, status string, duration time.Duration) {
	ModelCallLatency.WithLabelValues(model, status).Observe(float64(duration.Milliseconds()))
}

// RecordProviderCallLatency 记录邮件提供方调用延迟
func RecordProviderCallLatency(operation, status string, duration time.Duration) {
	ProviderCallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

// IncrementEmailClassified 增加分类计数
func IncrementEmailClassified(category, status string) {
	EmailClassifiedCount.WithLabelValues(category, status).Inc()
}

// AddEmailFetched 增加拉取计数
func AddEmailFetched(status string, n int) {
	EmailFetchedCount.WithLabelValues(status).Add(float64(n))
}
