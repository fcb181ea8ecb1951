package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/keyscan/internal/pointcloud"
	"github.com/banshee-data/keyscan/internal/testutil"
)

func assertUnitRange(t *testing.T, v []float32) {
	t.Helper()
	for i, x := range v {
		f := float64(x)
		require.False(t, math.IsNaN(f) || math.IsInf(f, 0), "element %d not finite: %v", i, x)
		assert.GreaterOrEqual(t, x, float32(0), "element %d below 0", i)
		assert.LessOrEqual(t, x, float32(1), "element %d above 1", i)
	}
}

func TestExtract_ValuesInUnitRange(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()

	tests := []struct {
		name   string
		points []pointcloud.Point
	}{
		{"box", testutil.BoxCloud(0, 0, -0.5, 0.2, 0.1, 0.05, 6)},
		{"sphere", testutil.SphereCloud(0.1, 0.2, -0.3, 0.08, 300)},
		{"line", testutil.LineCloud(20, 0.01)},
		{"single point", []pointcloud.Point{{X: 1, Y: 2, Z: 3}}},
		{"two points", []pointcloud.Point{{}, {X: 1}}},
		{"jittered box", testutil.Jitter(testutil.BoxCloud(0, 0, 0, 1, 1, 1, 4), 0.01, 3)},
		{"far away", testutil.BoxCloud(1000, -500, 250, 0.1, 0.1, 0.1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ex.Extract(tt.points)
			require.NoError(t, err)
			assert.Len(t, v, Dimension)
			assertUnitRange(t, v)
		})
	}
}

func TestExtract_EmptyCloud(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()

	_, err := ex.Extract(nil)
	assert.ErrorIs(t, err, ErrEmptyPointCloud)

	_, err = ex.Extract([]pointcloud.Point{})
	assert.ErrorIs(t, err, ErrEmptyPointCloud)
}

func TestExtract_NonFinitePointsDropped(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	clean := testutil.BoxCloud(0, 0, 0, 0.1, 0.1, 0.1, 3)
	dirty := append([]pointcloud.Point{{X: nan}}, clean...)
	dirty = append(dirty, pointcloud.Point{Y: inf})

	want, err := ex.Extract(clean)
	require.NoError(t, err)
	got, err := ex.Extract(dirty)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ex.Extract([]pointcloud.Point{{X: nan}, {Z: inf}})
	assert.ErrorIs(t, err, ErrEmptyPointCloud)
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()
	pts := testutil.SphereCloud(0, 0, 0, 0.1, 200)

	a, err := ex.Extract(pts)
	require.NoError(t, err)
	b, err := ex.Extract(pts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractor_Dimension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 47, Dimension)
	assert.Equal(t, Dimension, DefaultExtractor().Dimension())

	ex := Extractor{SurfaceSampleLimit: 10, DistanceBins: 4, AzimuthBins: 6}
	v, err := ex.Extract(testutil.BoxCloud(0, 0, 0, 1, 1, 1, 3))
	require.NoError(t, err)
	assert.Len(t, v, 12+4+6+4+7)
}

func TestNormalise(t *testing.T) {
	t.Parallel()

	t.Run("min maps to 0 and max to 1", func(t *testing.T) {
		got := normalise([]float64{-2, 0, 2})
		assert.Equal(t, []float32{0, 0.5, 1}, got)
	})

	t.Run("uniform vector becomes 0.5", func(t *testing.T) {
		got := normalise([]float64{3, 3, 3, 3})
		assert.Equal(t, []float32{0.5, 0.5, 0.5, 0.5}, got)
	})

	t.Run("non-finite values are zeroed", func(t *testing.T) {
		got := normalise([]float64{math.NaN(), math.Inf(1), 4, math.Inf(-1)})
		assert.Equal(t, []float32{0, 0, 1, 0}, got)
	})

	t.Run("all non-finite is uniform", func(t *testing.T) {
		got := normalise([]float64{math.NaN(), math.Inf(1)})
		assert.Equal(t, []float32{0.5, 0.5}, got)
	})
}

func TestHistogram_FractionsSumToOne(t *testing.T) {
	t.Parallel()
	x := []float64{0, 0.1, 0.5, 0.99, 1.0, 1.0}
	h := histogram(x, 0, 1, 4)
	require.Len(t, h, 4)

	var sum float64
	for _, v := range h {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	// The upper edge is inclusive.
	assert.InDelta(t, 3.0/6.0, h[3], 1e-12)
}

func TestDistributionBlock_AzimuthCoversFullCircle(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()
	pts := []pointcloud.Point{
		{X: 1}, {X: -1}, {Z: 1}, {Z: -1},
	}
	block := ex.distributionBlock(newColumns(pts))
	require.Len(t, block, DefaultDistanceBins+DefaultAzimuthBins)

	var radial, azimuth float64
	for _, v := range block[:DefaultDistanceBins] {
		radial += v
	}
	for _, v := range block[DefaultDistanceBins:] {
		azimuth += v
	}
	assert.InDelta(t, 1.0, radial, 1e-12)
	assert.InDelta(t, 1.0, azimuth, 1e-12)
	// Every point sits at distance 1 from the centroid, the top radial bin.
	assert.InDelta(t, 1.0, block[DefaultDistanceBins-1], 1e-12)
}

func TestSurfaceBlock(t *testing.T) {
	t.Parallel()
	ex := DefaultExtractor()

	t.Run("collinear points yield zeros", func(t *testing.T) {
		got := ex.surfaceBlock(newColumns(testutil.LineCloud(10, 0.1)))
		assert.Equal(t, []float64{0, 0, 0, 0}, got)
	})

	t.Run("single point yields zeros", func(t *testing.T) {
		got := ex.surfaceBlock(newColumns([]pointcloud.Point{{X: 1}}))
		assert.Equal(t, []float64{0, 0, 0, 0}, got)
	})

	t.Run("coincident neighbours are not usable", func(t *testing.T) {
		pts := []pointcloud.Point{{X: 1}, {X: 1}, {X: 1}}
		got := ex.surfaceBlock(newColumns(pts))
		assert.Equal(t, []float64{0, 0, 0, 0}, got)
	})

	t.Run("horizontal plane has vertical normals", func(t *testing.T) {
		var pts []pointcloud.Point
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				pts = append(pts, pointcloud.Point{X: float32(i) * 0.1, Z: float32(j) * 0.13})
			}
		}
		got := ex.surfaceBlock(newColumns(pts))
		require.Len(t, got, SurfaceBlockSize)
		assert.InDelta(t, 0, got[0], 1e-9)
		assert.InDelta(t, 0, got[2], 1e-9)
	})

	t.Run("zero sample limit skips normals", func(t *testing.T) {
		limited := Extractor{SurfaceSampleLimit: 0, DistanceBins: 8, AzimuthBins: 16}
		got := limited.surfaceBlock(newColumns(testutil.SphereCloud(0, 0, 0, 1, 50)))
		assert.Equal(t, []float64{0, 0, 0, 0}, got)
	})
}

func TestStatisticalBlock_Density(t *testing.T) {
	t.Parallel()

	t.Run("flat cloud has zero density", func(t *testing.T) {
		got := statisticalBlock(newColumns(testutil.LineCloud(5, 1)))
		assert.Equal(t, 0.0, got[6])
	})

	t.Run("unit box", func(t *testing.T) {
		pts := testutil.BoxCloud(0.5, 0.5, 0.5, 1, 1, 1, 2)
		got := statisticalBlock(newColumns(pts))
		assert.InDelta(t, 8.0, got[6], 1e-9)
		assert.InDelta(t, 0.5, got[0], 1e-9)
		assert.InDelta(t, 0.25, got[3], 1e-9)
	})
}

func TestGeometricBlock(t *testing.T) {
	t.Parallel()
	pts := testutil.BoxCloud(1, 2, 3, 2, 4, 6, 2)
	got := geometricBlock(newColumns(pts))
	require.Len(t, got, GeometricBlockSize)

	want := []float64{1, 2, 3, 2, 4, 6, 1, 2, 3}
	for i, w := range want {
		assert.InDelta(t, w, got[i], 1e-6, "index %d", i)
	}
	// Sample covariance of two equally weighted corners per axis: (s/2)²·n/(n-1).
	assert.InDelta(t, 1.0*8/7, got[9], 1e-5)
	assert.InDelta(t, 4.0*8/7, got[10], 1e-5)
	assert.InDelta(t, 9.0*8/7, got[11], 1e-5)
}
