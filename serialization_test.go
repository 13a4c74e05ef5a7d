package spart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadtreeJSONRoundTrip(t *testing.T) {
	q, err := NewQuadtree[string](Rectangle{X: 0, Y: 0, Width: 100, Height: 100}, 2)
	require.NoError(t, err)
	require.True(t, q.Insert(NewPoint2DWithData[string](10, 10, "A")))
	require.True(t, q.Insert(NewPoint2DWithData[string](90, 90, "B")))
	require.True(t, q.Insert(NewPoint2DWithData[string](50, 50, "C")))

	data, err := json.Marshal(q)
	require.NoError(t, err)

	var restored Quadtree[string]
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, q.Size(), restored.Size())
	got := restored.KNNSearch(NewPoint2D[string](50, 50), 1)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Data)
}

func TestOctreeJSONRoundTrip(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 10, Height: 10, Depth: 10}, 2)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.True(t, o.Insert(NewPoint3DWithData(float64(i), float64(i), float64(i), i)))
	}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var restored Octree[int]
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, o.Size(), restored.Size())
}

func TestKdTreeJSONRoundTrip(t *testing.T) {
	kt := NewKdTree[string]()
	require.NoError(t, kt.Insert(NewKdPointWithData("A", 1, 2)))
	require.NoError(t, kt.Insert(NewKdPointWithData("B", 3, 4)))

	data, err := json.Marshal(kt)
	require.NoError(t, err)

	var restored KdTree[string]
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, kt.Size(), restored.Size())

	got := restored.KNNSearch(NewKdPoint[string](1, 2), 1)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Data)
}

func TestRTree2DJSONRoundTrip(t *testing.T) {
	tree, err := NewRTree2D[string](4)
	require.NoError(t, err)
	for i, label := range []string{"A", "B", "C", "D", "E"} {
		require.True(t, tree.Insert(NewPoint2DWithData(float64(i), float64(i), label)))
	}

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var restored RTree2D[string]
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, tree.Size(), restored.Size())

	for i, label := range []string{"A", "B", "C", "D", "E"} {
		got := restored.KNNSearch(NewPoint2D[string](float64(i), float64(i)), 1)
		require.Len(t, got, 1)
		assert.Equal(t, label, got[0].Data)
	}
}

func TestRStarTree2DJSONRoundTrip(t *testing.T) {
	tree, err := NewRStarTree2D[int](4)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.True(t, tree.Insert(NewPoint2DWithData(float64(i), float64(i), i)))
	}

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var restored RStarTree2D[int]
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, tree.Size(), restored.Size())
	assert.Equal(t, tree.RangeSearchBBox(Rectangle{X: 0, Y: 0, Width: 5, Height: 5}),
		restored.RangeSearchBBox(Rectangle{X: 0, Y: 0, Width: 5, Height: 5}))
}

func TestRTree3DAndRStarTree3DJSONRoundTrip(t *testing.T) {
	rt, err := NewRTree3D[int](4)
	require.NoError(t, err)
	require.True(t, rt.Insert(NewPoint3DWithData(1, 2, 3, 7)))
	data, err := json.Marshal(rt)
	require.NoError(t, err)
	var restoredR RTree3D[int]
	require.NoError(t, json.Unmarshal(data, &restoredR))
	assert.Equal(t, 1, restoredR.Size())

	st, err := NewRStarTree3D[int](4)
	require.NoError(t, err)
	require.True(t, st.Insert(NewPoint3DWithData(1, 2, 3, 7)))
	data, err = json.Marshal(st)
	require.NoError(t, err)
	var restoredS RStarTree3D[int]
	require.NoError(t, json.Unmarshal(data, &restoredS))
	assert.Equal(t, 1, restoredS.Size())
}

func TestSnapshotConstructorPropagatesInvalidCapacity(t *testing.T) {
	_, err := FromQuadtreeSnapshot(QuadtreeSnapshot[int]{Boundary: Rectangle{Width: 10, Height: 10}, Capacity: 0})
	require.Error(t, err)
	var capErr *InvalidCapacityError
	require.ErrorAs(t, err, &capErr)
}
