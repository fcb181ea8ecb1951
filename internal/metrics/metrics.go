// Package metrics exports enrollment and verification outcomes to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/banshee-data/keyscan/internal/session"
)

// Metrics implements session.Observer.
type Metrics struct {
	KeysEnrolled     prometheus.Gauge
	EnrollmentFrames *prometheus.CounterVec
	ScanResults      *prometheus.CounterVec
	ConfidenceScore  prometheus.Histogram
}

var _ session.Observer = (*Metrics)(nil)

// New creates the keyscan metrics and registers them with reg. Pass a
// fresh prometheus.NewRegistry() when more than one instance may exist
// in the process.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		KeysEnrolled: f.NewGauge(prometheus.GaugeOpts{
			Name: "keyscan_keys_enrolled",
			Help: "Number of enrolled key templates in the cache",
		}),
		EnrollmentFrames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keyscan_enrollment_frames_total",
			Help: "Enrollment frames processed, by outcome",
		}, []string{"outcome"}),
		ScanResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keyscan_scan_results_total",
			Help: "Verification scan results, by outcome",
		}, []string{"outcome"}),
		ConfidenceScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keyscan_confidence_score",
			Help:    "Best-match confidence of scored verification frames",
			Buckets: prometheus.LinearBuckets(0.5, 0.05, 10),
		}),
	}
}

// ObserveEnrollmentFrame counts an accepted frame as "accepted" and a
// rejected one under its rejection reason. Selection ticks and frames past
// the cap carry no outcome and are ignored.
func (m *Metrics) ObserveEnrollmentFrame(p session.EnrollmentProgress) {
	switch {
	case p.Accepted:
		m.EnrollmentFrames.WithLabelValues("accepted").Inc()
	case p.Rejection != session.RejectNone:
		m.EnrollmentFrames.WithLabelValues(string(p.Rejection)).Inc()
	}
}

// ObserveScanResult counts r and records its score when the frame was
// actually matched against the template.
func (m *Metrics) ObserveScanResult(r session.ScanResult) {
	outcome := "match"
	if !r.IsMatch {
		outcome = string(r.ErrorReason)
		if outcome == "" {
			outcome = "pending"
		}
	}
	m.ScanResults.WithLabelValues(outcome).Inc()
	if r.ErrorReason == session.ScanErrorNone || r.ErrorReason == session.ScanErrorNoMatch {
		m.ConfidenceScore.Observe(r.ConfidenceScore)
	}
}

// ObserveKeyCount sets the enrolled-key gauge.
func (m *Metrics) ObserveKeyCount(n int) {
	m.KeysEnrolled.Set(float64(n))
}
