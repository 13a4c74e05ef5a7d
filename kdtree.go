package spart

import (
	"container/heap"
	"sort"

	"github.com/habedi/spart/internal/spartlog"
)

// KdPoint is a point of runtime-determined dimensionality carrying an
// optional comparable payload, used by KdTree.
type KdPoint[T comparable] struct {
	Coords  []float64
	Data    T
	HasData bool
}

// NewKdPoint builds a KdPoint with no payload.
func NewKdPoint[T comparable](coords ...float64) KdPoint[T] {
	return KdPoint[T]{Coords: append([]float64(nil), coords...)}
}

// NewKdPointWithData builds a KdPoint carrying data.
func NewKdPointWithData[T comparable](data T, coords ...float64) KdPoint[T] {
	return KdPoint[T]{Coords: append([]float64(nil), coords...), Data: data, HasData: true}
}

// Equal reports whether p and other have identical coordinates and payload.
func (p KdPoint[T]) Equal(other KdPoint[T]) bool {
	if len(p.Coords) != len(other.Coords) {
		return false
	}
	for i := range p.Coords {
		if p.Coords[i] != other.Coords[i] {
			return false
		}
	}
	return p.Data == other.Data && p.HasData == other.HasData
}

func kdDistanceSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// EuclideanKdPoint is the default squared-distance metric for KdPoint.
type EuclideanKdPoint[T comparable] struct{}

// DistanceSq returns the squared Euclidean distance between a and b.
func (EuclideanKdPoint[T]) DistanceSq(a, b KdPoint[T]) float64 { return kdDistanceSq(a.Coords, b.Coords) }

type kdNode[T comparable] struct {
	point       KdPoint[T]
	left, right *kdNode[T]
}

// KdTree is a dimension-agnostic k-d tree. The dimensionality is fixed by
// the first point inserted; later inserts of a different dimensionality
// return an InvalidDimensionError. Once the last point is deleted, the tree
// forgets its dimensionality and a subsequent insert may fix a new one.
// Queries must not be interleaved with mutations without external
// synchronization.
type KdTree[T comparable] struct {
	root *kdNode[T]
	dim  *int
	size int
}

// NewKdTree creates an empty k-d tree with no fixed dimensionality yet.
func NewKdTree[T comparable]() *KdTree[T] {
	return &KdTree[T]{}
}

// Size returns the number of points currently stored in the tree.
func (kt *KdTree[T]) Size() int { return kt.size }

// Dim returns the tree's fixed dimensionality and whether one has been set.
func (kt *KdTree[T]) Dim() (int, bool) {
	if kt.dim == nil {
		return 0, false
	}
	return *kt.dim, true
}

// Height returns the tree's height (0 for an empty or single-node tree).
func (kt *KdTree[T]) Height() int {
	if kt.root == nil {
		return 0
	}
	return kdHeight(kt.root)
}

func kdHeight[T comparable](n *kdNode[T]) int {
	if n == nil {
		return -1
	}
	l, r := kdHeight(n.left), kdHeight(n.right)
	if l > r {
		return l + 1
	}
	return r + 1
}

// Insert adds p to the tree. If the tree already holds points of a
// different dimensionality than p, it returns an InvalidDimensionError and
// leaves the tree unchanged.
func (kt *KdTree[T]) Insert(p KdPoint[T]) error {
	if kt.dim == nil {
		d := len(p.Coords)
		kt.dim = &d
	} else if len(p.Coords) != *kt.dim {
		return &InvalidDimensionError{Requested: len(p.Coords), Available: *kt.dim}
	}
	kt.root = kdInsertRec(kt.root, p, 0, *kt.dim)
	kt.size++
	spartlog.Log.Debug().Interface("coords", p.Coords).Msg("kdtree: inserted")
	return nil
}

func kdInsertRec[T comparable](node *kdNode[T], p KdPoint[T], depth, k int) *kdNode[T] {
	if node == nil {
		return &kdNode[T]{point: p}
	}
	axis := depth % k
	if p.Coords[axis] < node.point.Coords[axis] {
		node.left = kdInsertRec(node.left, p, depth+1, k)
	} else {
		node.right = kdInsertRec(node.right, p, depth+1, k)
	}
	return node
}

// InsertBulk inserts every point in points, in order, stopping at (and
// reporting) the first dimension mismatch. It returns how many points were
// inserted before that.
func (kt *KdTree[T]) InsertBulk(points []KdPoint[T]) (int, error) {
	for i, p := range points {
		if err := kt.Insert(p); err != nil {
			return i, err
		}
	}
	return len(points), nil
}

func kdCollect[T comparable](n *kdNode[T], out *[]KdPoint[T]) {
	if n == nil {
		return
	}
	*out = append(*out, n.point)
	kdCollect(n.left, out)
	kdCollect(n.right, out)
}

// Delete removes one point equal to p (coordinates and payload), returning
// true iff a point was removed. The whole tree is rebuilt from its
// remaining points.
func (kt *KdTree[T]) Delete(p KdPoint[T]) bool {
	if kt.root == nil {
		return false
	}
	var points []KdPoint[T]
	kdCollect(kt.root, &points)

	removed := false
	kept := points[:0]
	for _, q := range points {
		if !removed && q.Equal(p) {
			removed = true
			continue
		}
		kept = append(kept, q)
	}
	if !removed {
		return false
	}

	kt.root = nil
	kt.size = 0
	if len(kept) == 0 {
		kt.dim = nil
		return true
	}
	k := *kt.dim
	for _, q := range kept {
		kt.root = kdInsertRec(kt.root, q, 0, k)
		kt.size++
	}
	spartlog.Log.Debug().Interface("coords", p.Coords).Msg("kdtree: deleted")
	return true
}

type kdHeapItem[T comparable] struct {
	distSq float64
	point  KdPoint[T]
}

type kdMaxHeap[T comparable] []kdHeapItem[T]

func (h kdMaxHeap[T]) Len() int            { return len(h) }
func (h kdMaxHeap[T]) Less(i, j int) bool  { return h[i].distSq > h[j].distSq }
func (h kdMaxHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *kdMaxHeap[T]) Push(x interface{}) { *h = append(*h, x.(kdHeapItem[T])) }
func (h *kdMaxHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// measured with metric if given (defaults to Euclidean distance). target must
// have the tree's fixed dimensionality. The near/far subtree-ordering and the
// diffSq pruning bound stay tied to per-axis Euclidean geometry regardless of
// metric, which is a valid pruning bound only for metrics monotonic with it
// (see DistanceMetric's doc comment).
func (kt *KdTree[T]) KNNSearch(target KdPoint[T], k int, metric ...DistanceMetric[KdPoint[T]]) []KdPoint[T] {
	if k <= 0 || kt.root == nil || kt.dim == nil {
		return nil
	}
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanKdPoint[T]{}
	}
	dim := *kt.dim
	h := &kdMaxHeap[T]{}
	var visit func(node *kdNode[T], depth int)
	visit = func(node *kdNode[T], depth int) {
		if node == nil {
			return
		}
		d := m.DistanceSq(node.point, target)
		if h.Len() < k {
			heap.Push(h, kdHeapItem[T]{distSq: d, point: node.point})
		} else if d < (*h)[0].distSq {
			heap.Pop(h)
			heap.Push(h, kdHeapItem[T]{distSq: d, point: node.point})
		}

		axis := depth % dim
		var near, far *kdNode[T]
		if target.Coords[axis] < node.point.Coords[axis] {
			near, far = node.left, node.right
		} else {
			near, far = node.right, node.left
		}
		visit(near, depth+1)

		diff := target.Coords[axis] - node.point.Coords[axis]
		diffSq := diff * diff
		if h.Len() < k || diffSq < (*h)[0].distSq {
			visit(far, depth+1)
		}
	}
	visit(kt.root, 0)

	results := make([]KdPoint[T], h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(kdHeapItem[T]).point
	}
	sort.SliceStable(results, func(i, j int) bool {
		return m.DistanceSq(results[i], target) < m.DistanceSq(results[j], target)
	})
	return results
}

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance). The
// per-axis bounding-box pruning stays Euclidean regardless of metric; see
// DistanceMetric's doc comment on the monotonicity this assumes.
func (kt *KdTree[T]) RangeSearch(center KdPoint[T], radius float64, metric ...DistanceMetric[KdPoint[T]]) []KdPoint[T] {
	if kt.root == nil || kt.dim == nil {
		return nil
	}
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanKdPoint[T]{}
	}
	dim := *kt.dim
	radiusSq := radius * radius
	var results []KdPoint[T]
	var visit func(node *kdNode[T], depth int)
	visit = func(node *kdNode[T], depth int) {
		if node == nil {
			return
		}
		if m.DistanceSq(node.point, center) <= radiusSq {
			results = append(results, node.point)
		}
		axis := depth % dim
		if center.Coords[axis]-radius <= node.point.Coords[axis] {
			visit(node.left, depth+1)
		}
		if center.Coords[axis]+radius >= node.point.Coords[axis] {
			visit(node.right, depth+1)
		}
	}
	visit(kt.root, 0)
	return results
}
