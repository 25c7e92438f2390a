package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pronos"

var (
	metricsOnce sync.Once

	httpRequestDuration *prometheus.HistogramVec
	httpRequestTotal    *prometheus.CounterVec
	webhookEvents       *prometheus.CounterVec
	paymentsApproved    *prometheus.CounterVec
	paymentsRejected    prometheus.Counter
	commissionCredited  prometheus.Counter
	subscriptionsExpire prometheus.Counter
	providerRequests    *prometheus.CounterVec
)

func initMetrics() {
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Payment provider webhook deliveries by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	paymentsApproved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "approved_total",
			Help:      "Payments that activated or extended a subscription, by path.",
		},
		[]string{"path"},
	)

	paymentsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "rejected_total",
		Help:      "Manual payments rejected by an administrator.",
	})

	commissionCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "referral",
		Name:      "commission_credited_total",
		Help:      "Sum of referral commission credited, in minor currency units.",
	})

	subscriptionsExpire = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "expired_total",
		Help:      "Subscriptions moved to expired by the periodic sweep.",
	})

	providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Outbound payment provider calls by operation and result.",
		},
		[]string{"operation", "result"},
	)

	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestTotal,
		webhookEvents,
		paymentsApproved,
		paymentsRejected,
		commissionCredited,
		subscriptionsExpire,
		providerRequests,
	)
}

// Init 提前注册（/metrics 在第一次请求前也能看到全部指标）
func Init() {
	metricsOnce.Do(initMetrics)
}

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	Init()
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	httpRequestTotal.WithLabelValues(method, route, code).Inc()
}

func RecordWebhook(event, outcome string) {
	Init()
	webhookEvents.WithLabelValues(event, outcome).Inc()
}

// RecordApproval path 取值 webhook / admin
func RecordApproval(path string) {
	Init()
	paymentsApproved.WithLabelValues(path).Inc()
}

func RecordRejection() {
	Init()
	paymentsRejected.Inc()
}

func RecordCommission(amount int64) {
	Init()
	if amount > 0 {
		commissionCredited.Add(float64(amount))
	}
}

func RecordExpired(n int64) {
	Init()
	if n > 0 {
		subscriptionsExpire.Add(float64(n))
	}
}

func RecordProviderCall(operation string, err error) {
	Init()
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerRequests.WithLabelValues(operation, result).Inc()
}
