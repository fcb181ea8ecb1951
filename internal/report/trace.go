// Package report renders verification score traces for offline review:
// PNG line plots through gonum/plot and interactive HTML through go-echarts.
package report

import "sync"

// Sample is one verification frame as seen by the operator.
type Sample struct {
	Frame     int
	Score     float64
	Confirmed bool
	Reason    string
}

// ScoreTrace accumulates samples from a verification run. It is safe for
// concurrent use so it can be fed straight from a result handler.
type ScoreTrace struct {
	mu        sync.Mutex
	title     string
	threshold float64
	samples   []Sample
}

// NewScoreTrace returns an empty trace. threshold is drawn as a reference
// line on every rendering.
func NewScoreTrace(title string, threshold float64) *ScoreTrace {
	return &ScoreTrace{title: title, threshold: threshold}
}

// Add appends the next frame's result.
func (t *ScoreTrace) Add(score float64, confirmed bool, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, Sample{
		Frame:     len(t.samples),
		Score:     score,
		Confirmed: confirmed,
		Reason:    reason,
	})
}

// Samples returns a copy of the recorded samples.
func (t *ScoreTrace) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sample(nil), t.samples...)
}

// Len returns the number of recorded samples.
func (t *ScoreTrace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Threshold returns the reference threshold.
func (t *ScoreTrace) Threshold() float64 { return t.threshold }

// Title returns the chart title.
func (t *ScoreTrace) Title() string { return t.title }
