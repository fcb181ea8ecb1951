// Package testutil provides shared test utilities and fixtures.
//
// This package centralises synthetic point clouds and common assertions
// so the feature, session and store tests build their inputs the same way.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/keyscan/internal/pointcloud"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// BoxCloud samples a regular grid of steps³ points filling an axis-aligned
// box of the given size centred on (cx, cy, cz).
func BoxCloud(cx, cy, cz, sx, sy, sz float32, steps int) []pointcloud.Point {
	if steps < 2 {
		steps = 2
	}
	pts := make([]pointcloud.Point, 0, steps*steps*steps)
	div := float32(steps - 1)
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			for k := 0; k < steps; k++ {
				pts = append(pts, pointcloud.Point{
					X: cx - sx/2 + sx*float32(i)/div,
					Y: cy - sy/2 + sy*float32(j)/div,
					Z: cz - sz/2 + sz*float32(k)/div,
				})
			}
		}
	}
	return pts
}

// SphereCloud samples n points on a sphere surface using a Fibonacci lattice.
func SphereCloud(cx, cy, cz, radius float32, n int) []pointcloud.Point {
	pts := make([]pointcloud.Point, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		pts[i] = pointcloud.Point{
			X: cx + radius*float32(r*math.Cos(theta)),
			Y: cy + radius*float32(y),
			Z: cz + radius*float32(r*math.Sin(theta)),
		}
	}
	return pts
}

// LineCloud places n evenly spaced collinear points along the X axis.
func LineCloud(n int, spacing float32) []pointcloud.Point {
	pts := make([]pointcloud.Point, n)
	for i := range pts {
		pts[i] = pointcloud.Point{X: float32(i) * spacing}
	}
	return pts
}

// Jitter returns a copy of pts with a deterministic per-point offset of
// at most amp along each axis.
func Jitter(pts []pointcloud.Point, amp float32, seed int) []pointcloud.Point {
	out := make([]pointcloud.Point, len(pts))
	for i, p := range pts {
		phase := float64(i*7 + seed*13)
		out[i] = pointcloud.Point{
			X: p.X + amp*float32(math.Sin(phase)),
			Y: p.Y + amp*float32(math.Cos(phase*1.3)),
			Z: p.Z + amp*float32(math.Sin(phase*0.7)),
		}
	}
	return out
}

// KeyFrame is a Normal-tracking frame of a 15cm box, a comfortably valid
// enrollment input under default volume limits.
func KeyFrame(seed int) pointcloud.Frame {
	return pointcloud.Frame{
		Points:   Jitter(BoxCloud(0, 0, -0.4, 0.15, 0.15, 0.15, 5), 0.001, seed),
		Tracking: pointcloud.Normal(),
	}
}

// OneHot returns a dim-length vector with 1 at index i and 0 elsewhere.
func OneHot(dim, i int) []float32 {
	v := make([]float32, dim)
	v[i] = 1
	return v
}
