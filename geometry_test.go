package spart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectangleContainsIsClosed(t *testing.T) {
	r := Rectangle{X: 0, Y: 0, Width: 10, Height: 10}
	assert.True(t, r.Contains(0, 0))
	assert.True(t, r.Contains(10, 10))
	assert.True(t, r.Contains(5, 5))
	assert.False(t, r.Contains(10.01, 5))
}

func TestRectangleIntersectsIsClosedOnEdge(t *testing.T) {
	a := Rectangle{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rectangle{X: 10, Y: 0, Width: 5, Height: 5}
	assert.True(t, a.Intersects(b), "rectangles sharing only an edge must intersect")
}

func TestRectangleUnionAndEnlargement(t *testing.T) {
	a := Rectangle{X: 0, Y: 0, Width: 2, Height: 2}
	b := Rectangle{X: 5, Y: 5, Width: 2, Height: 2}
	u := a.Union(b)
	require.Equal(t, Rectangle{X: 0, Y: 0, Width: 7, Height: 7}, u)
	assert.InDelta(t, u.Area()-a.Area(), a.Enlargement(b), 1e-9)
}

func TestCubeContainsAndIntersects(t *testing.T) {
	c := Cube{X: 0, Y: 0, Z: 0, Width: 4, Height: 4, Depth: 4}
	assert.True(t, c.Contains(4, 4, 4))
	other := Cube{X: 4, Y: 0, Z: 0, Width: 1, Height: 1, Depth: 1}
	assert.True(t, c.Intersects(other))
}

func TestOverlapZeroWhenDisjoint(t *testing.T) {
	a := Rectangle{X: 0, Y: 0, Width: 1, Height: 1}
	b := Rectangle{X: 10, Y: 10, Width: 1, Height: 1}
	assert.Equal(t, 0.0, a.Overlap(b))
}

func TestRectangleMinDistance(t *testing.T) {
	r := Rectangle{X: 0, Y: 0, Width: 2, Height: 2}
	assert.Equal(t, 0.0, RectangleMinDistance(r, 1, 1))
	assert.InDelta(t, 3.0, RectangleMinDistance(r, 5, 1), 1e-9)
}

func TestFromPointRadius(t *testing.T) {
	box := RectangleFromPointRadius(5, 5, 2)
	assert.Equal(t, Rectangle{X: 3, Y: 3, Width: 4, Height: 4}, box)
}

func TestEuclideanDistanceSq(t *testing.T) {
	metric := EuclideanPoint2D[string]{}
	a := NewPoint2D[string](0, 0)
	b := NewPoint2D[string](3, 4)
	assert.Equal(t, 25.0, metric.DistanceSq(a, b))
}

func TestPointEqualityComparesPayload(t *testing.T) {
	a := NewPoint2DWithData(1, 2, "alpha")
	b := NewPoint2DWithData(1, 2, "beta")
	c := NewPoint2DWithData(1, 2, "alpha")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
