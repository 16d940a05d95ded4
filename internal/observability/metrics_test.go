package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordsPipelineOutcomes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordVerdict("live", "approved")
	m.RecordVerdict("live", "approved")
	m.RecordVerdict("live", "flagged")
	m.RecordCertificate(true)
	m.RecordCertificate(false)
	m.RecordCertificate(false)
	m.AddMissed(3)
	m.AddMissed(-1)
	m.RecordError("/certificates", "POST", "NOT_FOUND")
	m.RecordRequest("/certificates", "POST", 404, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verdicts.WithLabelValues("live", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdicts.WithLabelValues("live", "flagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.certificates.WithLabelValues("minted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.certificates.WithLabelValues("existing")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.missedObligations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("/certificates", "POST", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/certificates", "POST", "404")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		m.ObserveInference("ocr", "ok", time.Now())
		m.RecordVerdict("document", "passed")
		m.RecordCertificate(true)
		m.AddMissed(1)
	})
}
