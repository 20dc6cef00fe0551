package rtree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRect_VolumeOfPointIsZero(t *testing.T) {
	r := PointRect(Point{3, 7})
	require.Equal(t, 0.0, r.Volume())
}

func TestRect_Volume(t *testing.T) {
	r := Rect{Lower: Point{1, 2}, Upper: Point{4, 6}}
	require.Equal(t, 12.0, r.Volume())

	// Sides are taken by absolute value, so a corner-swapped rectangle
	// still reports a positive volume.
	swapped := Rect{Lower: Point{4, 6}, Upper: Point{1, 2}}
	require.Equal(t, 12.0, swapped.Volume())
}

func TestRect_Union(t *testing.T) {
	a := Rect{Lower: Point{0, 0}, Upper: Point{2, 2}}
	b := Rect{Lower: Point{1, -1}, Upper: Point{3, 1}}

	u := a.Union(b)
	require.Equal(t, Point{0, -1}, u.Lower)
	require.Equal(t, Point{3, 2}, u.Upper)
}

func TestRect_UnionWithEmptyIsIdentity(t *testing.T) {
	r := Rect{Lower: Point{1, 1}, Upper: Point{5, 10}}
	require.Equal(t, r, EmptyRect().Union(r))
	require.Equal(t, r, r.Union(EmptyRect()))
}

func TestRect_Enlargement(t *testing.T) {
	r := Rect{Lower: Point{0, 0}, Upper: Point{2, 2}}

	// Point already inside: no growth.
	require.Equal(t, 0.0, r.Enlargement(PointRect(Point{1, 1})))

	// Stretching to (4,2) doubles the area from 4 to 8.
	require.Equal(t, 4.0, r.Enlargement(PointRect(Point{4, 2})))
}

func TestRect_Distance(t *testing.T) {
	r := Rect{Lower: Point{0, 0}, Upper: Point{2, 2}}

	require.Equal(t, 0.0, r.Distance(Point{1, 1}), "inside")
	require.Equal(t, 0.0, r.Distance(Point{2, 2}), "on the boundary")
	require.Equal(t, 1.0, r.Distance(Point{3, 1}), "one axis out")
	require.InDelta(t, math.Sqrt(2), r.Distance(Point{3, 3}), 1e-12, "corner gap")
}

func TestRect_ContainsPoint(t *testing.T) {
	r := Rect{Lower: Point{0, 0}, Upper: Point{2, 2}}

	require.True(t, r.ContainsPoint(Point{1, 1}))
	require.True(t, r.ContainsPoint(Point{0, 2}))
	require.False(t, r.ContainsPoint(Point{2.001, 1}))
	require.False(t, r.ContainsPoint(Point{-0.001, 1}))
}
