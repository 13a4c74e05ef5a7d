package spart

import (
	"container/heap"
	"sort"

	"github.com/habedi/spart/internal/spartlog"
)

// Quadtree is a region-quadtree over 2D points carrying a comparable payload.
// Points live only in leaf nodes; a node subdivides into four quadrants once
// it holds more than capacity points. Queries must not be interleaved with
// mutations without external synchronization.
type Quadtree[T comparable] struct {
	boundary Rectangle
	capacity int
	points   []Point2D[T]
	divided  bool

	ne, nw, se, sw *Quadtree[T]
}

// NewQuadtree creates a Quadtree over boundary with the given per-node
// capacity. capacity must be at least 1.
func NewQuadtree[T comparable](boundary Rectangle, capacity int) (*Quadtree[T], error) {
	if capacity < 1 {
		return nil, &InvalidCapacityError{Capacity: capacity}
	}
	spartlog.Log.Debug().Interface("boundary", boundary).Int("capacity", capacity).Msg("quadtree: created")
	return &Quadtree[T]{boundary: boundary, capacity: capacity}, nil
}

// Size returns the number of points currently stored in the tree.
func (q *Quadtree[T]) Size() int {
	if !q.divided {
		return len(q.points)
	}
	return q.ne.Size() + q.nw.Size() + q.se.Size() + q.sw.Size()
}

// Height returns the number of levels below the root (0 for an undivided tree).
func (q *Quadtree[T]) Height() int {
	if !q.divided {
		return 0
	}
	max := 0
	for _, child := range q.children() {
		if h := child.Height(); h > max {
			max = h
		}
	}
	return max + 1
}

func (q *Quadtree[T]) children() [4]*Quadtree[T] {
	return [4]*Quadtree[T]{q.ne, q.nw, q.se, q.sw}
}

func (q *Quadtree[T]) subdivide() {
	x, y, w, h := q.boundary.X, q.boundary.Y, q.boundary.Width/2, q.boundary.Height/2
	q.ne = &Quadtree[T]{boundary: Rectangle{X: x + w, Y: y, Width: w, Height: h}, capacity: q.capacity}
	q.nw = &Quadtree[T]{boundary: Rectangle{X: x, Y: y, Width: w, Height: h}, capacity: q.capacity}
	q.se = &Quadtree[T]{boundary: Rectangle{X: x + w, Y: y + h, Width: w, Height: h}, capacity: q.capacity}
	q.sw = &Quadtree[T]{boundary: Rectangle{X: x, Y: y + h, Width: w, Height: h}, capacity: q.capacity}
	q.divided = true

	old := q.points
	q.points = nil
	for _, p := range old {
		q.insertIntoChild(p)
	}
}

func (q *Quadtree[T]) insertIntoChild(p Point2D[T]) bool {
	for _, child := range q.children() {
		if child.Insert(p) {
			return true
		}
	}
	return false
}

// Insert adds p to the tree, returning false if p lies outside the
// tree's boundary.
func (q *Quadtree[T]) Insert(p Point2D[T]) bool {
	if !q.boundary.Contains(p.X, p.Y) {
		return false
	}
	if q.divided {
		return q.insertIntoChild(p)
	}
	if len(q.points) < q.capacity {
		q.points = append(q.points, p)
		spartlog.Log.Debug().Float64("x", p.X).Float64("y", p.Y).Msg("quadtree: inserted")
		return true
	}
	q.subdivide()
	return q.insertIntoChild(p)
}

// InsertBulk inserts every point in points, returning how many were
// accepted (rejecting only points outside the tree's boundary).
func (q *Quadtree[T]) InsertBulk(points []Point2D[T]) int {
	n := 0
	for _, p := range points {
		if q.Insert(p) {
			n++
		}
	}
	return n
}

// Delete removes one point equal to p (coordinates and payload), returning
// true iff a point was removed.
func (q *Quadtree[T]) Delete(p Point2D[T]) bool {
	if !q.boundary.Contains(p.X, p.Y) {
		return false
	}
	if q.divided {
		for _, child := range q.children() {
			if child.Delete(p) {
				return true
			}
		}
		return false
	}
	for i, existing := range q.points {
		if existing == p {
			q.points = append(q.points[:i], q.points[i+1:]...)
			spartlog.Log.Debug().Float64("x", p.X).Float64("y", p.Y).Msg("quadtree: deleted")
			return true
		}
	}
	return false
}

// RangeSearchBBox returns every point contained in box.
func (q *Quadtree[T]) RangeSearchBBox(box Rectangle) []Point2D[T] {
	var results []Point2D[T]
	q.rangeSearchBBox(box, &results)
	return results
}

func (q *Quadtree[T]) rangeSearchBBox(box Rectangle, results *[]Point2D[T]) {
	if !q.boundary.Intersects(box) {
		return
	}
	if q.divided {
		for _, child := range q.children() {
			child.rangeSearchBBox(box, results)
		}
		return
	}
	for _, p := range q.points {
		if box.Contains(p.X, p.Y) {
			*results = append(*results, p)
		}
	}
}

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance). Pruning
// via RangeSearchBBox stays Euclidean regardless of metric; see
// DistanceMetric's doc comment on the monotonicity this assumes.
func (q *Quadtree[T]) RangeSearch(center Point2D[T], radius float64, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanPoint2D[T]{}
	}
	box := RectangleFromPointRadius(center.X, center.Y, radius)
	radiusSq := radius * radius
	candidates := q.RangeSearchBBox(box)
	results := candidates[:0]
	for _, p := range candidates {
		if m.DistanceSq(p, center) <= radiusSq {
			results = append(results, p)
		}
	}
	return results
}

type quadtreeHeapItem[T comparable] struct {
	distSq float64
	point  Point2D[T]
}

type quadtreeMaxHeap[T comparable] []quadtreeHeapItem[T]

func (h quadtreeMaxHeap[T]) Len() int            { return len(h) }
func (h quadtreeMaxHeap[T]) Less(i, j int) bool  { return h[i].distSq > h[j].distSq }
func (h quadtreeMaxHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *quadtreeMaxHeap[T]) Push(x interface{}) { *h = append(*h, x.(quadtreeHeapItem[T])) }
func (h *quadtreeMaxHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// pruning subtrees whose boundary cannot contain a closer point than the
// current k-th best. Ranking uses metric if given (defaults to Euclidean
// distance); the boundary-pruning bound stays Euclidean regardless, which is
// a valid lower bound only for metrics monotonic with it (see
// DistanceMetric's doc comment).
func (q *Quadtree[T]) KNNSearch(target Point2D[T], k int, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	if k <= 0 {
		return nil
	}
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanPoint2D[T]{}
	}
	h := &quadtreeMaxHeap[T]{}
	var visit func(node *Quadtree[T])
	visit = func(node *Quadtree[T]) {
		if h.Len() == k {
			minDist := RectangleMinDistance(node.boundary, target.X, target.Y)
			if minDist*minDist > (*h)[0].distSq {
				return
			}
		}
		if node.divided {
			for _, child := range node.children() {
				visit(child)
			}
			return
		}
		for _, p := range node.points {
			d := m.DistanceSq(p, target)
			if h.Len() < k {
				heap.Push(h, quadtreeHeapItem[T]{distSq: d, point: p})
			} else if d < (*h)[0].distSq {
				heap.Pop(h)
				heap.Push(h, quadtreeHeapItem[T]{distSq: d, point: p})
			}
		}
	}
	visit(q)

	results := make([]Point2D[T], h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(quadtreeHeapItem[T]).point
	}
	sort.SliceStable(results, func(i, j int) bool {
		return m.DistanceSq(results[i], target) < m.DistanceSq(results[j], target)
	})
	return results
}
