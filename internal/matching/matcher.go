// Package matching scores a query feature vector against an enrolled template.
package matching

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the remapped cosine score a frame must reach to
// count as a raw match.
const DefaultThreshold = 0.85

// Matcher compares feature vectors by cosine similarity remapped to [0,1].
// It holds no state beyond its threshold and is safe for concurrent use.
type Matcher struct {
	Threshold float64
}

// NewMatcher returns a Matcher with the given threshold.
func NewMatcher(threshold float64) Matcher {
	return Matcher{Threshold: threshold}
}

// DefaultMatcher returns a Matcher using DefaultThreshold.
func DefaultMatcher() Matcher {
	return Matcher{Threshold: DefaultThreshold}
}

// BestMatchScore returns the highest remapped cosine similarity between
// query and any stored vector. Vectors whose length differs from the
// query, or that have zero norm, are skipped. An empty template or one
// where everything was skipped scores 0.
func (m Matcher) BestMatchScore(query []float32, template [][]float32) float64 {
	if len(query) == 0 {
		return 0
	}
	q := widen(query)
	qNorm := floats.Norm(q, 2)
	if qNorm == 0 {
		return 0
	}

	best := 0.0
	for _, stored := range template {
		if len(stored) != len(query) {
			continue
		}
		s := widen(stored)
		sNorm := floats.Norm(s, 2)
		if sNorm == 0 {
			continue
		}
		score := remap(floats.Dot(q, s) / (qNorm * sNorm))
		if score > best {
			best = score
		}
	}
	return best
}

// IsMatch reports whether score clears the threshold.
func (m Matcher) IsMatch(score float64) bool {
	return score >= m.Threshold
}

// Match returns the best score and whether it clears the threshold.
func (m Matcher) Match(query []float32, template [][]float32) (float64, bool) {
	score := m.BestMatchScore(query, template)
	return score, m.IsMatch(score)
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1,1]. ok is false when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) (cos float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	x, y := widen(a), widen(b)
	nx, ny := floats.Norm(x, 2), floats.Norm(y, 2)
	if nx == 0 || ny == 0 {
		return 0, false
	}
	return clampCos(floats.Dot(x, y) / (nx * ny)), true
}

// L2Distance returns the Euclidean distance between a and b. It is a
// diagnostic only; the match decision never uses it. Mismatched lengths
// return +Inf.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	return floats.Distance(widen(a), widen(b), 2)
}

// remap maps a cosine in [-1,1] onto [0,1].
func remap(cos float64) float64 {
	return (clampCos(cos) + 1) / 2
}

// clampCos absorbs rounding that pushes a cosine just outside [-1,1].
func clampCos(cos float64) float64 {
	return math.Max(-1, math.Min(1, cos))
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
