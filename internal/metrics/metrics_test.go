package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/keyscan/internal/session"
)

func TestObserveEnrollmentFrame(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEnrollmentFrame(session.EnrollmentProgress{Accepted: true})
	m.ObserveEnrollmentFrame(session.EnrollmentProgress{Accepted: true})
	m.ObserveEnrollmentFrame(session.EnrollmentProgress{Rejection: session.RejectTooFar})
	m.ObserveEnrollmentFrame(session.EnrollmentProgress{State: session.EnrollmentAwaitingSelection})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrollmentFrames.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrollmentFrames.WithLabelValues("too-far")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.EnrollmentFrames))
}

func TestObserveScanResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScanResult(session.ScanResult{IsMatch: true, ConfidenceScore: 0.97})
	m.ObserveScanResult(session.ScanResult{ConfidenceScore: 0.91})
	m.ObserveScanResult(session.ScanResult{ConfidenceScore: 0.6, ErrorReason: session.ScanErrorNoMatch})
	m.ObserveScanResult(session.ScanResult{ErrorReason: session.ScanErrorTooFarOrUntracked})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanResults.WithLabelValues("match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanResults.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanResults.WithLabelValues("no-match")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanResults.WithLabelValues("toofar-or-untracked")))
	// Unscored frames stay out of the histogram.
	var pb dto.Metric
	require.NoError(t, m.ConfidenceScore.Write(&pb))
	assert.Equal(t, uint64(3), pb.GetHistogram().GetSampleCount())
}

func TestObserveKeyCount(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveKeyCount(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.KeysEnrolled))
	m.ObserveKeyCount(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.KeysEnrolled))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
