package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes prometheus collectors for the HTTP surface and the
// verification pipeline. All methods are safe on a nil receiver.
type Metrics struct {
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	verdicts          *prometheus.CounterVec
	certificates      *prometheus.CounterVec
	missedObligations prometheus.Counter
}

// NewMetrics registers collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elife_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elife_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elife_http_errors_total",
			Help: "HTTP error responses by route and error code",
		}, []string{"path", "method", "code"}),
		inferenceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "elife_inference_duration_seconds",
			Help:    "Latency of calls to external OCR and model services",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"capability", "outcome"}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elife_verification_verdicts_total",
			Help: "Pipeline verdicts by stage and outcome",
		}, []string{"stage", "outcome"}),
		certificates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "elife_certificates_total",
			Help: "Certificate issuance requests by result",
		}, []string{"result"}),
		missedObligations: f.NewCounter(prometheus.CounterOpts{
			Name: "elife_obligations_missed_total",
			Help: "Quarter obligations marked missed by the sweeper",
		}),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// ObserveInference records one external model call. Call with time.Now() at the start.
func (m *Metrics) ObserveInference(capability, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.inferenceDuration.WithLabelValues(capability, outcome).Observe(time.Since(start).Seconds())
}

// RecordVerdict counts a completed pipeline stage.
func (m *Metrics) RecordVerdict(stage, outcome string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(stage, outcome).Inc()
}

// RecordCertificate counts an issuance request as minted or existing.
func (m *Metrics) RecordCertificate(minted bool) {
	if m == nil {
		return
	}
	result := "existing"
	if minted {
		result = "minted"
	}
	m.certificates.WithLabelValues(result).Inc()
}

// AddMissed adds n obligations marked missed.
func (m *Metrics) AddMissed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.missedObligations.Add(float64(n))
}
