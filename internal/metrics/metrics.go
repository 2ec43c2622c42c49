package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "zucchini"

// Registry holds every metric the server exposes on /metrics.
var Registry = prometheus.NewRegistry()

// AppInfo is always 1; build details live in the labels.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always 1, details in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HealthStatus is the overall health: 0 = unhealthy, 1 = degraded, 2 = healthy.
var HealthStatus = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_status",
		Help:      "Overall server health status (0=unhealthy, 1=degraded, 2=healthy)",
	},
)

// HealthCheckStatus is per check: 0 = fail, 1 = warn, 2 = pass.
var HealthCheckStatus = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_status",
		Help:      "Individual health check status (0=fail, 1=warn, 2=pass)",
	},
	[]string{"check"},
)

var HealthCheckLatency = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "health_check_latency_ms",
		Help:      "Health check latency in milliseconds",
	},
	[]string{"check"},
)

// Registration and payment metrics

// RegistrationsTotal counts registration calls by event and outcome
// (created, existing, rejected).
var RegistrationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration requests by event and outcome",
	},
	[]string{"event", "outcome"},
)

// OrdersCreatedTotal counts gateway orders by event and outcome (created, error).
var OrdersCreatedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_orders_total",
		Help:      "Payment orders requested from the gateway",
	},
	[]string{"event", "outcome"},
)

// PaymentVerificationsTotal counts verification calls by event and outcome
// (verified, already_verified, rejected, error).
var PaymentVerificationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verifications_total",
		Help:      "Payment verification requests by event and outcome",
	},
	[]string{"event", "outcome"},
)

// RateLimitRejectionsTotal counts 429 responses per category.
var RateLimitRejectionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limiter",
	},
	[]string{"category"},
)

// RateLimitStoreErrorsTotal counts store failures that let a request through.
var RateLimitStoreErrorsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_store_errors_total",
		Help:      "Rate limit store failures (requests allowed through)",
	},
	[]string{"category"},
)

// RateLimitWindowsDeleted counts expired windows removed by the cleanup job.
var RateLimitWindowsDeleted = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_windows_deleted_total",
		Help:      "Expired rate limit windows deleted by the cleanup job",
	},
)

// UploadsTotal counts uploads by outcome (stored, rejected, error).
var UploadsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "File uploads by outcome",
	},
	[]string{"outcome"},
)

var UploadBytes = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upload_size_bytes",
		Help:      "Size of stored uploads in bytes",
		// 10KB .. 5MB
		Buckets: []float64{10e3, 50e3, 100e3, 250e3, 500e3, 1e6, 2.5e6, 5.3e6},
	},
)

// EmailsTotal counts outbound email attempts by template and outcome.
var EmailsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Outbound emails by template and outcome",
	},
	[]string{"template", "outcome"},
)

// Init registers the runtime collectors and publishes build information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
