package pointcloud

import "math"

// Bounds is the axis-aligned bounding box of a point set, in float64 to
// keep volume and density arithmetic stable for small objects.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// FinitePoints drops samples with NaN or infinite coordinates. The input
// slice is only copied when something has to be dropped.
func FinitePoints(points []Point) []Point {
	for i, p := range points {
		if !p.Finite() {
			out := append([]Point(nil), points[:i]...)
			for _, q := range points[i+1:] {
				if q.Finite() {
					out = append(out, q)
				}
			}
			return out
		}
	}
	return points
}

// Finite reports whether every coordinate of p is a finite number.
func (p Point) Finite() bool {
	for _, v := range [3]float32{p.X, p.Y, p.Z} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// ComputeBounds returns the bounding box of points. ok is false for an
// empty slice. Any non-finite coordinate makes the box non-finite; filter
// with FinitePoints first when that matters.
func ComputeBounds(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1), MinZ: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1), MaxZ: math.Inf(-1),
	}
	for _, p := range points {
		x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
		b.MinX = math.Min(b.MinX, x)
		b.MinY = math.Min(b.MinY, y)
		b.MinZ = math.Min(b.MinZ, z)
		b.MaxX = math.Max(b.MaxX, x)
		b.MaxY = math.Max(b.MaxY, y)
		b.MaxZ = math.Max(b.MaxZ, z)
	}
	return b, true
}

// Extents returns the box size along each axis.
func (b Bounds) Extents() (dx, dy, dz float64) {
	return b.MaxX - b.MinX, b.MaxY - b.MinY, b.MaxZ - b.MinZ
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (cx, cy, cz float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2, (b.MinZ + b.MaxZ) / 2
}

// Volume returns the box volume in cubic units. Flat or degenerate
// clouds yield 0.
func (b Bounds) Volume() float64 {
	dx, dy, dz := b.Extents()
	return dx * dy * dz
}
