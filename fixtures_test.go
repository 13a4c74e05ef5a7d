package spart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habedi/spart/internal/testutil"
)

// gridPoints2D converts a testutil.Grid2D layout into payload-carrying
// points, using a stable per-point label as the payload.
func gridPoints2D(coords [][2]float64) []Point2D[int] {
	pts := make([]Point2D[int], len(coords))
	for i, c := range coords {
		pts[i] = NewPoint2DWithData(c[0], c[1], i)
	}
	return pts
}

func gridPoints3D(coords [][3]float64) []Point3D[int] {
	pts := make([]Point3D[int], len(coords))
	for i, c := range coords {
		pts[i] = NewPoint3DWithData(c[0], c[1], c[2], i)
	}
	return pts
}

// TestQuadtreeGridFixtureEveryPointFindable exercises a shared grid fixture
// across a bulk-loaded Quadtree: every inserted point must be returned by a
// bbox range search covering the whole grid.
func TestQuadtreeGridFixtureEveryPointFindable(t *testing.T) {
	pts := gridPoints2D(testutil.Grid2D(6, 10))
	q, err := NewQuadtree[int](Rectangle{X: 0, Y: 0, Width: 100, Height: 100}, 4)
	require.NoError(t, err)
	assert.Equal(t, len(pts), q.InsertBulk(pts))

	got := q.RangeSearchBBox(Rectangle{X: 0, Y: 0, Width: 100, Height: 100})
	assert.Len(t, got, len(pts))
}

// TestOctreeGridFixtureEveryPointFindable mirrors the grid fixture check in
// three dimensions for Octree.
func TestOctreeGridFixtureEveryPointFindable(t *testing.T) {
	pts := gridPoints3D(testutil.Grid3D(4, 10))
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 100, Height: 100, Depth: 100}, 4)
	require.NoError(t, err)
	assert.Equal(t, len(pts), o.InsertBulk(pts))

	got := o.RangeSearchBBox(Cube{X: 0, Y: 0, Z: 0, Width: 100, Height: 100, Depth: 100})
	assert.Len(t, got, len(pts))
}

// TestRTree2DGridFixtureKNNFindsExactPoint uses the shared grid fixture to
// check that a kNN query for k=1 on a grid point returns that exact point.
func TestRTree2DGridFixtureKNNFindsExactPoint(t *testing.T) {
	pts := gridPoints2D(testutil.Grid2D(5, 10))
	tree, err := NewRTree2D[int](4)
	require.NoError(t, err)
	assert.Equal(t, len(pts), tree.InsertBulk(pts))

	for _, p := range pts {
		got := tree.KNNSearch(NewPoint2D[int](p.X, p.Y), 1)
		require.Len(t, got, 1)
		assert.Equal(t, p.Data, got[0].Data)
	}
}

// TestRStarTree2DLinearClusterSurvivesDeletes exercises the degenerate
// aligned-insert-order fixture: after deleting the first half of a linear
// cluster, the rest must remain findable and the tree must stay within its
// structural parameters (Size reflects exactly what remains).
func TestRStarTree2DLinearClusterSurvivesDeletes(t *testing.T) {
	coords := testutil.LinearCluster2D(30, 1)
	pts := gridPoints2D(coords)
	tree, err := NewRStarTree2D[int](4)
	require.NoError(t, err)
	require.Equal(t, len(pts), tree.InsertBulk(pts))

	for i := 0; i < 15; i++ {
		require.True(t, tree.Delete(pts[i]))
	}
	assert.Equal(t, 15, tree.Size())
	for i := 15; i < 30; i++ {
		got := tree.KNNSearch(NewPoint2D[int](pts[i].X, pts[i].Y), 1)
		require.Len(t, got, 1)
		assert.Equal(t, pts[i].Data, got[0].Data)
	}
}

// TestKdTreeGridFixtureRangeSearchCoversAll uses the shared grid fixture to
// check that a radius large enough to cover the whole grid returns every
// point.
func TestKdTreeGridFixtureRangeSearchCoversAll(t *testing.T) {
	coords := testutil.Grid2D(5, 10)
	kt := NewKdTree[int]()
	kdPoints := make([]KdPoint[int], len(coords))
	for i, c := range coords {
		kdPoints[i] = NewKdPointWithData(i, c[0], c[1])
	}
	n, err := kt.InsertBulk(kdPoints)
	require.NoError(t, err)
	assert.Equal(t, len(kdPoints), n)

	got := kt.RangeSearch(NewKdPoint[int](20, 20), 1000)
	assert.Len(t, got, len(kdPoints))
}
