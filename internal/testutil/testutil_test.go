package testutil

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/keyscan/internal/pointcloud"
)

func TestAssertHelpers(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
	AssertError(t, errors.New("test error"))
}

func TestBoxCloud(t *testing.T) {
	t.Parallel()
	pts := BoxCloud(0, 0, -1, 0.2, 0.4, 0.6, 3)
	assert.Len(t, pts, 27)

	b, ok := pointcloud.ComputeBounds(pts)
	assert.True(t, ok)
	dx, dy, dz := b.Extents()
	assert.InDelta(t, 0.2, dx, 1e-6)
	assert.InDelta(t, 0.4, dy, 1e-6)
	assert.InDelta(t, 0.6, dz, 1e-6)

	assert.Len(t, BoxCloud(0, 0, 0, 1, 1, 1, 1), 8, "steps below 2 clamp to 2")
}

func TestSphereCloud(t *testing.T) {
	t.Parallel()
	pts := SphereCloud(1, 2, 3, 0.5, 200)
	assert.Len(t, pts, 200)
	for _, p := range pts {
		r := math.Sqrt(float64((p.X-1)*(p.X-1) + (p.Y-2)*(p.Y-2) + (p.Z-3)*(p.Z-3)))
		assert.InDelta(t, 0.5, r, 1e-4)
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()
	base := BoxCloud(0, 0, 0, 1, 1, 1, 3)
	a := Jitter(base, 0.01, 1)
	assert.Equal(t, a, Jitter(base, 0.01, 1), "deterministic for a seed")
	assert.NotEqual(t, a, Jitter(base, 0.01, 2))
	for i := range base {
		assert.InDelta(t, base[i].X, a[i].X, 0.0100001)
	}
}

func TestKeyFrame_PassesVolumeLimits(t *testing.T) {
	t.Parallel()
	for seed := 0; seed < 20; seed++ {
		f := KeyFrame(seed)
		b, ok := pointcloud.ComputeBounds(f.Points)
		assert.True(t, ok)
		assert.Greater(t, b.Volume(), 0.001)
		assert.Less(t, b.Volume(), 1.0)
		assert.Equal(t, pointcloud.Normal(), f.Tracking)
	}
}

func TestOneHot(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []float32{0, 0, 1, 0}, OneHot(4, 2))
}
