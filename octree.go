package spart

import (
	"container/heap"
	"sort"

	"github.com/habedi/spart/internal/spartlog"
)

// Octree is a region-octree over 3D points carrying a comparable payload.
// Points live only in leaf nodes; a node subdivides into eight octants once
// it holds more than capacity points. Queries must not be interleaved with
// mutations without external synchronization.
type Octree[T comparable] struct {
	boundary Cube
	capacity int
	points   []Point3D[T]
	divided  bool

	// Eight octants.
	ftl, ftr, fbl, fbr *Octree[T]
	btl, btr, bbl, bbr *Octree[T]
}

// NewOctree creates an Octree over boundary with the given per-node
// capacity. capacity must be at least 1.
func NewOctree[T comparable](boundary Cube, capacity int) (*Octree[T], error) {
	if capacity < 1 {
		return nil, &InvalidCapacityError{Capacity: capacity}
	}
	spartlog.Log.Debug().Interface("boundary", boundary).Int("capacity", capacity).Msg("octree: created")
	return &Octree[T]{boundary: boundary, capacity: capacity}, nil
}

// Size returns the number of points currently stored in the tree.
func (o *Octree[T]) Size() int {
	if !o.divided {
		return len(o.points)
	}
	n := 0
	for _, child := range o.children() {
		n += child.Size()
	}
	return n
}

// Height returns the number of levels below the root (0 for an undivided tree).
func (o *Octree[T]) Height() int {
	if !o.divided {
		return 0
	}
	max := 0
	for _, child := range o.children() {
		if h := child.Height(); h > max {
			max = h
		}
	}
	return max + 1
}

func (o *Octree[T]) children() [8]*Octree[T] {
	return [8]*Octree[T]{o.ftl, o.ftr, o.fbl, o.fbr, o.btl, o.btr, o.bbl, o.bbr}
}

func (o *Octree[T]) subdivide() {
	x, y, z := o.boundary.X, o.boundary.Y, o.boundary.Z
	w, h, d := o.boundary.Width/2, o.boundary.Height/2, o.boundary.Depth/2
	mk := func(bx, by, bz float64) *Octree[T] {
		return &Octree[T]{boundary: Cube{X: bx, Y: by, Z: bz, Width: w, Height: h, Depth: d}, capacity: o.capacity}
	}
	o.ftl = mk(x, y, z)
	o.ftr = mk(x+w, y, z)
	o.fbl = mk(x, y+h, z)
	o.fbr = mk(x+w, y+h, z)
	o.btl = mk(x, y, z+d)
	o.btr = mk(x+w, y, z+d)
	o.bbl = mk(x, y+h, z+d)
	o.bbr = mk(x+w, y+h, z+d)
	o.divided = true

	old := o.points
	o.points = nil
	for _, p := range old {
		o.insertIntoChild(p)
	}
}

func (o *Octree[T]) insertIntoChild(p Point3D[T]) bool {
	for _, child := range o.children() {
		if child.Insert(p) {
			return true
		}
	}
	return false
}

// Insert adds p to the tree, returning false if p lies outside the
// tree's boundary.
func (o *Octree[T]) Insert(p Point3D[T]) bool {
	if !o.boundary.Contains(p.X, p.Y, p.Z) {
		return false
	}
	if o.divided {
		return o.insertIntoChild(p)
	}
	if len(o.points) < o.capacity {
		o.points = append(o.points, p)
		spartlog.Log.Debug().Float64("x", p.X).Float64("y", p.Y).Float64("z", p.Z).Msg("octree: inserted")
		return true
	}
	o.subdivide()
	return o.insertIntoChild(p)
}

// InsertBulk inserts every point in points, returning how many were
// accepted.
func (o *Octree[T]) InsertBulk(points []Point3D[T]) int {
	n := 0
	for _, p := range points {
		if o.Insert(p) {
			n++
		}
	}
	return n
}

// Delete removes one point equal to p, returning true iff a point was
// removed.
func (o *Octree[T]) Delete(p Point3D[T]) bool {
	if !o.boundary.Contains(p.X, p.Y, p.Z) {
		return false
	}
	if o.divided {
		for _, child := range o.children() {
			if child.Delete(p) {
				return true
			}
		}
		return false
	}
	for i, existing := range o.points {
		if existing == p {
			o.points = append(o.points[:i], o.points[i+1:]...)
			spartlog.Log.Debug().Float64("x", p.X).Float64("y", p.Y).Float64("z", p.Z).Msg("octree: deleted")
			return true
		}
	}
	return false
}

// RangeSearchBBox returns every point contained in box.
func (o *Octree[T]) RangeSearchBBox(box Cube) []Point3D[T] {
	var results []Point3D[T]
	o.rangeSearchBBox(box, &results)
	return results
}

func (o *Octree[T]) rangeSearchBBox(box Cube, results *[]Point3D[T]) {
	if !o.boundary.Intersects(box) {
		return
	}
	if o.divided {
		for _, child := range o.children() {
			child.rangeSearchBBox(box, results)
		}
		return
	}
	for _, p := range o.points {
		if box.Contains(p.X, p.Y, p.Z) {
			*results = append(*results, p)
		}
	}
}

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance). Pruning
// via RangeSearchBBox stays Euclidean regardless of metric; see
// DistanceMetric's doc comment on the monotonicity this assumes.
func (o *Octree[T]) RangeSearch(center Point3D[T], radius float64, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanPoint3D[T]{}
	}
	box := CubeFromPointRadius(center.X, center.Y, center.Z, radius)
	radiusSq := radius * radius
	candidates := o.RangeSearchBBox(box)
	results := candidates[:0]
	for _, p := range candidates {
		if m.DistanceSq(p, center) <= radiusSq {
			results = append(results, p)
		}
	}
	return results
}

type octreeHeapItem[T comparable] struct {
	distSq float64
	point  Point3D[T]
}

type octreeMaxHeap[T comparable] []octreeHeapItem[T]

func (h octreeMaxHeap[T]) Len() int            { return len(h) }
func (h octreeMaxHeap[T]) Less(i, j int) bool  { return h[i].distSq > h[j].distSq }
func (h octreeMaxHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *octreeMaxHeap[T]) Push(x interface{}) { *h = append(*h, x.(octreeHeapItem[T])) }
func (h *octreeMaxHeap[T]) Pop() interface{} {
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
func (o *Octree[T]) KNNSearch(target Point3D[T], k int, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	if k <= 0 {
		return nil
	}
	m := optionalMetric(metric)
	if m == nil {
		m = EuclideanPoint3D[T]{}
	}
	h := &octreeMaxHeap[T]{}
	var visit func(node *Octree[T])
	visit = func(node *Octree[T]) {
		if h.Len() == k {
			minDist := CubeMinDistance(node.boundary, target.X, target.Y, target.Z)
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
				heap.Push(h, octreeHeapItem[T]{distSq: d, point: p})
			} else if d < (*h)[0].distSq {
				heap.Pop(h)
				heap.Push(h, octreeHeapItem[T]{distSq: d, point: p})
			}
		}
	}
	visit(o)

	results := make([]Point3D[T], h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(octreeHeapItem[T]).point
	}
	sort.SliceStable(results, func(i, j int) bool {
		return m.DistanceSq(results[i], target) < m.DistanceSq(results[j], target)
	})
	return results
}
