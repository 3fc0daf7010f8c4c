package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus collectors exported by the service.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	loginsTotal      *prometheus.CounterVec
	leadConversions  prometheus.Counter
	claimTransitions *prometheus.CounterVec
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crm_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_http_errors_total",
			Help: "HTTP errors by route and error code",
		}, []string{"route", "method", "code"}),
		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		leadConversions: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_lead_conversions_total",
			Help: "Leads converted into clients",
		}),
		claimTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crm_claim_status_changes_total",
			Help: "Claim status changes by target status",
		}, []string{"status"}),
	}
}

// RecordRequest observes a finished HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordLogin counts a login attempt; outcome is "success" or "failure".
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLeadConversion() {
	if m == nil {
		return
	}
	m.leadConversions.Inc()
}

func (m *Metrics) RecordClaimStatusChange(status string) {
	if m == nil {
		return
	}
	m.claimTransitions.WithLabelValues(status).Inc()
}
