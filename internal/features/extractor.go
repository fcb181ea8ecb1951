package features

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/keyscan/internal/pointcloud"
)

// ErrEmptyPointCloud is returned when extraction is asked to describe no points.
var ErrEmptyPointCloud = errors.New("empty point cloud")

// Block sizes that do not depend on configuration.
const (
	GeometricBlockSize   = 12
	SurfaceBlockSize     = 4
	StatisticalBlockSize = 7
)

// Defaults for the configurable parts of the descriptor.
const (
	DefaultSurfaceSampleLimit = 100
	DefaultDistanceBins       = 8
	DefaultAzimuthBins        = 16
)

// Dimension is the descriptor length produced by DefaultExtractor.
const Dimension = GeometricBlockSize + DefaultDistanceBins + DefaultAzimuthBins +
	SurfaceBlockSize + StatisticalBlockSize

// uniformValue is emitted in every slot when the raw vector has no spread.
const uniformValue = 0.5

// coincidentEpsilon is the squared distance under which two points are
// treated as the same sample.
const coincidentEpsilon = 1e-12

// Extractor computes feature vectors. The zero value is not usable; start
// from DefaultExtractor and override fields.
type Extractor struct {
	// SurfaceSampleLimit caps how many leading points get a normal estimate.
	SurfaceSampleLimit int
	DistanceBins       int
	AzimuthBins        int
}

// DefaultExtractor returns an extractor that produces Dimension-length vectors.
func DefaultExtractor() Extractor {
	return Extractor{
		SurfaceSampleLimit: DefaultSurfaceSampleLimit,
		DistanceBins:       DefaultDistanceBins,
		AzimuthBins:        DefaultAzimuthBins,
	}
}

// Dimension returns the length of every vector this extractor produces.
func (e Extractor) Dimension() int {
	return GeometricBlockSize + e.DistanceBins + e.AzimuthBins + SurfaceBlockSize + StatisticalBlockSize
}

// Extract computes the normalised descriptor of points.
func (e Extractor) Extract(points []pointcloud.Point) ([]float32, error) {
	points = pointcloud.FinitePoints(points)
	if len(points) == 0 {
		return nil, ErrEmptyPointCloud
	}
	cloud := newColumns(points)

	raw := make([]float64, 0, e.Dimension())
	raw = append(raw, geometricBlock(cloud)...)
	raw = append(raw, e.distributionBlock(cloud)...)
	raw = append(raw, e.surfaceBlock(cloud)...)
	raw = append(raw, statisticalBlock(cloud)...)

	return normalise(raw), nil
}

// columns stores the cloud as per-axis float64 slices, the layout gonum
// expects, together with precomputed bounds and centroid.
type columns struct {
	xs, ys, zs []float64
	bounds     pointcloud.Bounds
	cx, cy, cz float64
}

func newColumns(points []pointcloud.Point) columns {
	n := len(points)
	c := columns{
		xs: make([]float64, n),
		ys: make([]float64, n),
		zs: make([]float64, n),
	}
	for i, p := range points {
		c.xs[i] = float64(p.X)
		c.ys[i] = float64(p.Y)
		c.zs[i] = float64(p.Z)
	}
	c.bounds, _ = pointcloud.ComputeBounds(points)
	c.cx = stat.Mean(c.xs, nil)
	c.cy = stat.Mean(c.ys, nil)
	c.cz = stat.Mean(c.zs, nil)
	return c
}

func (c columns) len() int { return len(c.xs) }

func (c columns) point(i int) r3.Vec {
	return r3.Vec{X: c.xs[i], Y: c.ys[i], Z: c.zs[i]}
}

// geometricBlock: centroid, extents, bbox centre, covariance diagonal.
func geometricBlock(c columns) []float64 {
	dx, dy, dz := c.bounds.Extents()
	mx, my, mz := c.bounds.Center()
	vx, vy, vz := covarianceDiagonal(c)
	return []float64{
		c.cx, c.cy, c.cz,
		dx, dy, dz,
		mx, my, mz,
		vx, vy, vz,
	}
}

// covarianceDiagonal approximates the principal-axis spread with the
// diagonal of the sample covariance matrix. Fewer than two points have
// no covariance.
func covarianceDiagonal(c columns) (vx, vy, vz float64) {
	n := c.len()
	if n < 2 {
		return 0, 0, 0
	}
	data := make([]float64, 0, n*3)
	for i := 0; i < n; i++ {
		data = append(data, c.xs[i], c.ys[i], c.zs[i])
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(n, 3, data), nil)
	return cov.At(0, 0), cov.At(1, 1), cov.At(2, 2)
}

// distributionBlock: radial and azimuthal histograms around the centroid,
// each bin holding the fraction of points that fell into it.
func (e Extractor) distributionBlock(c columns) []float64 {
	n := c.len()
	dists := make([]float64, n)
	azimuths := make([]float64, n)
	for i := 0; i < n; i++ {
		dx := c.xs[i] - c.cx
		dy := c.ys[i] - c.cy
		dz := c.zs[i] - c.cz
		dists[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
		// Y is up, so azimuth is measured in the horizontal XZ plane.
		azimuths[i] = math.Atan2(dz, dx)
	}

	maxDist := floats.Max(dists)
	if maxDist <= 0 {
		maxDist = 1
	}
	out := make([]float64, 0, e.DistanceBins+e.AzimuthBins)
	out = append(out, histogram(dists, 0, maxDist, e.DistanceBins)...)
	out = append(out, histogram(azimuths, -math.Pi, math.Pi, e.AzimuthBins)...)
	return out
}

// histogram bins x into equal-width bins over [lo, hi] (hi inclusive) and
// divides by len(x).
func histogram(x []float64, lo, hi float64, bins int) []float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	floats.Scale(1/float64(len(x)), counts)
	return counts
}

// surfaceBlock estimates a normal at each of the first SurfaceSampleLimit
// points from its two nearest non-coincident neighbours and reports the
// mean normal and the spread around it. Truncation follows input order.
func (e Extractor) surfaceBlock(c columns) []float64 {
	limit := min(e.SurfaceSampleLimit, c.len())
	normals := make([]r3.Vec, 0, limit)
	for i := 0; i < limit; i++ {
		if n, ok := localNormal(c, i); ok {
			normals = append(normals, n)
		}
	}
	if len(normals) == 0 {
		return make([]float64, SurfaceBlockSize)
	}

	var sum r3.Vec
	for _, n := range normals {
		sum = r3.Add(sum, n)
	}
	mean := r3.Scale(1/float64(len(normals)), sum)

	var variance float64
	for _, n := range normals {
		d := r3.Sub(n, mean)
		variance += r3.Dot(d, d)
	}
	variance /= float64(len(normals))

	return []float64{mean.X, mean.Y, mean.Z, variance}
}

// localNormal returns the unit normal of the plane through point i and
// its two nearest neighbours. ok is false when fewer than two usable
// neighbours exist or the three points are collinear.
func localNormal(c columns, i int) (r3.Vec, bool) {
	p := c.point(i)
	first, second := -1, -1
	bestD, nextD := math.Inf(1), math.Inf(1)
	for j := 0; j < c.len(); j++ {
		if j == i {
			continue
		}
		d := r3.Norm2(r3.Sub(c.point(j), p))
		if d <= coincidentEpsilon {
			continue
		}
		switch {
		case d < bestD:
			second, nextD = first, bestD
			first, bestD = j, d
		case d < nextD:
			second, nextD = j, d
		}
	}
	if first < 0 || second < 0 {
		return r3.Vec{}, false
	}

	cross := r3.Cross(r3.Sub(c.point(first), p), r3.Sub(c.point(second), p))
	if r3.Norm2(cross) <= coincidentEpsilon*coincidentEpsilon {
		return r3.Vec{}, false
	}
	return r3.Unit(cross), true
}

// statisticalBlock: per-axis population mean and variance plus density.
func statisticalBlock(c columns) []float64 {
	mx, vx := stat.PopMeanVariance(c.xs, nil)
	my, vy := stat.PopMeanVariance(c.ys, nil)
	mz, vz := stat.PopMeanVariance(c.zs, nil)

	var density float64
	if vol := c.bounds.Volume(); vol > 0 {
		density = float64(c.len()) / vol
	}
	return []float64{mx, my, mz, vx, vy, vz, density}
}

// normalise min–max scales raw into [0,1] as float32. Non-finite inputs
// are zeroed first; a vector with no spread becomes uniformValue everywhere.
func normalise(raw []float64) []float32 {
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			raw[i] = 0
		}
	}
	out := make([]float32, len(raw))
	lo, hi := floats.Min(raw), floats.Max(raw)
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) {
		for i := range out {
			out[i] = uniformValue
		}
		return out
	}
	for i, v := range raw {
		out[i] = clamp01(float32((v - lo) / span))
	}
	return out
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
