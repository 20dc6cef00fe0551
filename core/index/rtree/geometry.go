package rtree

import "math"

// Dimensions is the fixed dimensionality of indexed points. The node page
// layout and the entry capacity both depend on it at compile time.
const Dimensions = 2

// Point is a position in Euclidean space with Dimensions coordinates.
type Point [Dimensions]float64

// Rect represents a Minimum Bounding Rectangle (MBR): an axis-aligned box
// with Lower[i] <= Upper[i] for every axis once it covers at least one point.
type Rect struct {
	Lower Point
	Upper Point
}

// EmptyRect returns the identity rectangle for Union: every lower coordinate
// is +Inf and every upper coordinate is -Inf, so the first union with any
// real rectangle tightens it trivially.
func EmptyRect() Rect {
	var r Rect
	for d := 0; d < Dimensions; d++ {
		r.Lower[d] = math.Inf(1)
		r.Upper[d] = math.Inf(-1)
	}
	return r
}

// PointRect returns the degenerate rectangle whose corners coincide at p.
func PointRect(p Point) Rect {
	return Rect{Lower: p, Upper: p}
}

// Union returns the MBR that encloses both rectangles.
func (r Rect) Union(other Rect) Rect {
	var u Rect
	for d := 0; d < Dimensions; d++ {
		u.Lower[d] = math.Min(r.Lower[d], other.Lower[d])
		u.Upper[d] = math.Max(r.Upper[d], other.Upper[d])
	}
	return u
}

// Volume calculates the volume of the rectangle, taking the absolute value
// of each side. A degenerate rectangle (a point) has volume 0.
func (r Rect) Volume() float64 {
	volume := 1.0
	for d := 0; d < Dimensions; d++ {
		volume *= math.Abs(r.Upper[d] - r.Lower[d])
	}
	return volume
}

// Enlargement calculates the increase in volume if this rect were to be
// enlarged to include another rect.
func (r Rect) Enlargement(other Rect) float64 {
	return r.Union(other).Volume() - r.Volume()
}

// Distance is the Euclidean distance from p to the rectangle. An axis
// contributes 0 when p's coordinate lies inside [Lower, Upper], else the gap
// to the nearer side.
func (r Rect) Distance(p Point) float64 {
	var sum float64
	for d := 0; d < Dimensions; d++ {
		var gap float64
		switch {
		case p[d] < r.Lower[d]:
			gap = r.Lower[d] - p[d]
		case p[d] > r.Upper[d]:
			gap = p[d] - r.Upper[d]
		}
		sum += gap * gap
	}
	return math.Sqrt(sum)
}

// ContainsPoint reports whether p lies inside the rectangle, boundary
// included.
func (r Rect) ContainsPoint(p Point) bool {
	for d := 0; d < Dimensions; d++ {
		if p[d] < r.Lower[d] || p[d] > r.Upper[d] {
			return false
		}
	}
	return true
}
