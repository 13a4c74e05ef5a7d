package spart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOctreeRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewOctree[int](Cube{Width: 10, Height: 10, Depth: 10}, -1)
	require.Error(t, err)
}

func TestOctreeInsertRejectsOutOfBounds(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 10, Height: 10, Depth: 10}, 2)
	require.NoError(t, err)
	assert.False(t, o.Insert(NewPoint3D[int](20, 20, 20)))
	assert.True(t, o.Insert(NewPoint3D[int](5, 5, 5)))
}

func TestOctreeSubdividesOnOverflow(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 10, Height: 10, Depth: 10}, 1)
	require.NoError(t, err)
	require.True(t, o.Insert(NewPoint3DWithData(1, 1, 1, 1)))
	require.True(t, o.Insert(NewPoint3DWithData(9, 9, 9, 2)))
	require.True(t, o.Insert(NewPoint3DWithData(1, 9, 1, 3)))
	assert.Equal(t, 3, o.Size())
	assert.True(t, o.divided)
}

func TestOctreeDeleteRemovesExactlyOneOccurrence(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 10, Height: 10, Depth: 10}, 4)
	require.NoError(t, err)
	p := NewPoint3DWithData(2, 2, 2, 7)
	require.True(t, o.Insert(p))
	require.True(t, o.Insert(p))
	assert.True(t, o.Delete(p))
	assert.Equal(t, 1, o.Size())
	assert.False(t, o.Delete(NewPoint3DWithData(99, 99, 99, 1)))
}

func TestOctreeRangeSearchRadius(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 100, Height: 100, Depth: 100}, 1)
	require.NoError(t, err)
	center := NewPoint3DWithData(50, 50, 50, 0)
	require.True(t, o.Insert(center))
	require.True(t, o.Insert(NewPoint3DWithData(53, 50, 50, 1)))
	require.True(t, o.Insert(NewPoint3DWithData(90, 90, 90, 2)))

	got := o.RangeSearch(center, 5)
	assert.Len(t, got, 2)
}

func TestOctreeKNNSearchOrdersByDistance(t *testing.T) {
	o, err := NewOctree[string](Cube{X: 0, Y: 0, Z: 0, Width: 100, Height: 100, Depth: 100}, 1)
	require.NoError(t, err)
	require.True(t, o.Insert(NewPoint3DWithData(1, 1, 1, "near")))
	require.True(t, o.Insert(NewPoint3DWithData(50, 50, 50, "mid")))
	require.True(t, o.Insert(NewPoint3DWithData(99, 99, 99, "far")))

	got := o.KNNSearch(NewPoint3D[string](0, 0, 0), 2)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Data)
	assert.Equal(t, "mid", got[1].Data)
}

func TestOctreeEmptyTreeQueriesReturnEmpty(t *testing.T) {
	o, err := NewOctree[int](Cube{X: 0, Y: 0, Z: 0, Width: 10, Height: 10, Depth: 10}, 1)
	require.NoError(t, err)
	assert.Empty(t, o.KNNSearch(NewPoint3D[int](1, 1, 1), 5))
	assert.Empty(t, o.RangeSearch(NewPoint3D[int](1, 1, 1), 5))
}
