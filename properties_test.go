package spart

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This file covers the four universal properties from spec.md section 8
// that aren't exercised by the per-tree tests elsewhere in this package:
// kNN-vs-brute-force equivalence (#3), R-tree MBR tightness (#11), R*-tree
// capacity bounds (#12), and triangle-inequality sanity (#13). Modeled on
// `_examples/original_source/tests/test_proptest_kdtree.rs`'s
// brute_knn_distances helpers and `test_regressions.rs`'s
// test_regression_distance_triangle_inequality, replacing proptest's
// generator-driven cases with a fixed-seed math/rand loop since this module
// has no property-testing library in its dependency pool.

func bruteKNNDistancesSq2D(points []Point2D[int], target Point2D[int], k int) []float64 {
	dists := make([]float64, len(points))
	m := EuclideanPoint2D[int]{}
	for i, p := range points {
		dists[i] = m.DistanceSq(p, target)
	}
	sort.Float64s(dists)
	if k > len(dists) {
		k = len(dists)
	}
	return dists[:k]
}

// TestKNNSearchMatchesBruteForce is universal property #3: for randomized
// point sets of up to 100 points, the squared distances KNNSearch returns
// match the first k entries of a brute-force sorted distance list.
func TestKNNSearchMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(100)
		points := make([]Point2D[int], n)
		for i := range points {
			points[i] = NewPoint2DWithData(rng.Float64()*200-100, rng.Float64()*200-100, i)
		}
		target := NewPoint2D[int](rng.Float64()*200-100, rng.Float64()*200-100)
		k := 1 + rng.Intn(n)

		rtree, err := NewRTree2D[int](4)
		require.NoError(t, err)
		for _, p := range points {
			require.True(t, rtree.Insert(p))
		}

		got := rtree.KNNSearch(target, k)
		require.Len(t, got, k)

		gotDists := make([]float64, len(got))
		m := EuclideanPoint2D[int]{}
		for i, p := range got {
			gotDists[i] = m.DistanceSq(p, target)
		}
		want := bruteKNNDistancesSq2D(points, target, k)

		require.Len(t, gotDists, len(want))
		for i := range gotDists {
			assert.InDeltaf(t, want[i], gotDists[i], 1e-9,
				"trial %d: kNN distance %d mismatched brute force", trial, i)
		}
		for i := 1; i < len(gotDists); i++ {
			assert.LessOrEqualf(t, gotDists[i-1], gotDists[i]+1e-9,
				"trial %d: kNN results not sorted ascending", trial)
		}
	}
}

// walkRTreeMBRTightness recursively checks that every internal node's stored
// mbr equals the union of its children's/entries' mbrs (property #11).
func walkRTreeMBRTightness[P comparable, B Bounds[B]](t *testing.T, node *rNode[P, B], eq func(a, b B) bool) {
	t.Helper()
	if node == nil || node.leaf {
		return
	}
	for _, e := range node.entries {
		childMBR, ok := computeGroupMBR(e.child.entries)
		if ok {
			assert.Truef(t, eq(e.mbr, childMBR),
				"entry mbr %+v does not equal union of its children's mbrs %+v", e.mbr, childMBR)
		}
		walkRTreeMBRTightness(t, e.child, eq)
	}
}

func rectanglesEqual(a, b Rectangle) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}

// TestRTreeMBRTightnessInvariant is universal property #11.
func TestRTreeMBRTightnessInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	tree, err := NewRTree2D[int](4)
	require.NoError(t, err)

	var inserted []Point2D[int]
	for i := 0; i < 300; i++ {
		p := NewPoint2DWithData(rng.Float64()*500-250, rng.Float64()*500-250, i)
		require.True(t, tree.Insert(p))
		inserted = append(inserted, p)
	}
	walkRTreeMBRTightness(t, tree.core.root, rectanglesEqual)

	for i := 0; i < 100; i++ {
		tree.Delete(inserted[i])
	}
	walkRTreeMBRTightness(t, tree.core.root, rectanglesEqual)
}

// walkRStarCapacityBounds recursively checks that every non-root node holds
// between minEntries and maxEntries entries (property #12).
func walkRStarCapacityBounds[P comparable, B Bounds[B]](t *testing.T, node *rNode[P, B], isRoot bool, minEntries, maxEntries int) {
	t.Helper()
	if node == nil {
		return
	}
	if !isRoot {
		assert.GreaterOrEqualf(t, len(node.entries), minEntries,
			"non-root node has %d entries, below minEntries %d", len(node.entries), minEntries)
	}
	assert.LessOrEqualf(t, len(node.entries), maxEntries,
		"node has %d entries, above maxEntries %d", len(node.entries), maxEntries)
	if node.leaf {
		return
	}
	for _, e := range node.entries {
		walkRStarCapacityBounds(t, e.child, false, minEntries, maxEntries)
	}
}

// TestRStarTreeCapacityBoundsInvariant is universal property #12.
func TestRStarTreeCapacityBoundsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tree, err := NewRStarTree2D[int](4)
	require.NoError(t, err)

	var inserted []Point2D[int]
	for i := 0; i < 300; i++ {
		p := NewPoint2DWithData(rng.Float64()*500-250, rng.Float64()*500-250, i)
		require.True(t, tree.Insert(p))
		inserted = append(inserted, p)
	}
	walkRStarCapacityBounds(t, tree.core.root, true, tree.core.minEntries, tree.core.maxEntries)

	for i := 0; i < 100; i++ {
		tree.Delete(inserted[i])
	}
	walkRStarCapacityBounds(t, tree.core.root, true, tree.core.minEntries, tree.core.maxEntries)
}

// TestDistanceMetricTriangleInequality is universal property #13, grounded
// on test_regressions.rs's test_regression_distance_triangle_inequality,
// generalized to randomized triples.
func TestDistanceMetricTriangleInequality(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	m := EuclideanPoint2D[int]{}

	for trial := 0; trial < 200; trial++ {
		a := NewPoint2D[int](rng.Float64()*200-100, rng.Float64()*200-100)
		b := NewPoint2D[int](rng.Float64()*200-100, rng.Float64()*200-100)
		c := NewPoint2D[int](rng.Float64()*200-100, rng.Float64()*200-100)

		dAC := math.Sqrt(m.DistanceSq(a, c))
		dAB := math.Sqrt(m.DistanceSq(a, b))
		dBC := math.Sqrt(m.DistanceSq(b, c))

		assert.LessOrEqualf(t, dAC, dAB+dBC+1e-9,
			"trial %d: triangle inequality violated: d(a,c)=%v > d(a,b)+d(b,c)=%v", trial, dAC, dAB+dBC)
	}

	m3 := EuclideanPoint3D[int]{}
	for trial := 0; trial < 200; trial++ {
		a := NewPoint3D[int](rng.Float64()*200-100, rng.Float64()*200-100, rng.Float64()*200-100)
		b := NewPoint3D[int](rng.Float64()*200-100, rng.Float64()*200-100, rng.Float64()*200-100)
		c := NewPoint3D[int](rng.Float64()*200-100, rng.Float64()*200-100, rng.Float64()*200-100)

		dAC := math.Sqrt(m3.DistanceSq(a, c))
		dAB := math.Sqrt(m3.DistanceSq(a, b))
		dBC := math.Sqrt(m3.DistanceSq(b, c))

		assert.LessOrEqualf(t, dAC, dAB+dBC+1e-9,
			"trial %d: 3D triangle inequality violated: d(a,c)=%v > d(a,b)+d(b,c)=%v", trial, dAC, dAB+dBC)
	}
}
