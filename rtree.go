package spart

import (
	"container/heap"
	"math"
	"sort"

	"github.com/habedi/spart/internal/spartlog"
)

// rtreeCore holds the classic Guttman R-tree algorithms shared by RTree2D
// and RTree3D, generic over the point type P and its bounding-volume type B.
type rtreeCore[P comparable, B Bounds[B]] struct {
	root       *rNode[P, B]
	maxEntries int
	minEntries int
	size       int

	mbrOf           func(P) B
	distSq          func(a, b P) float64
	minDistSq       func(mbr B, p P) float64
	fromPointRadius func(p P, radius float64) B
}

func newRTreeCore[P comparable, B Bounds[B]](
	maxEntries int,
	mbrOf func(P) B,
	distSq func(a, b P) float64,
	minDistSq func(mbr B, p P) float64,
	fromPointRadius func(p P, radius float64) B,
) (*rtreeCore[P, B], error) {
	if maxEntries < 2 {
		return nil, &InvalidCapacityError{Capacity: maxEntries}
	}
	minEntries := (maxEntries + 1) / 2
	return &rtreeCore[P, B]{
		root:            &rNode[P, B]{leaf: true},
		maxEntries:      maxEntries,
		minEntries:      minEntries,
		mbrOf:           mbrOf,
		distSq:          distSq,
		minDistSq:       minDistSq,
		fromPointRadius: fromPointRadius,
	}, nil
}

func (core *rtreeCore[P, B]) Size() int { return core.size }

func (core *rtreeCore[P, B]) Height() int { return rHeight[P, B](core.root) }

// rHeight returns the number of levels in the subtree rooted at n, counting
// a single leaf node as height 1.
func rHeight[P comparable, B Bounds[B]](n *rNode[P, B]) int {
	if n.leaf {
		return 1
	}
	max := 0
	for _, e := range n.entries {
		if h := rHeight[P, B](e.child); h > max {
			max = h
		}
	}
	return max + 1
}

// chooseLeafPath finds the leaf node in which an object with the given mbr
// should be inserted, recording the descent path so the caller can adjust
// nodes back up to the root.
//
// Implemented per Section 3.2 of "R-trees: A Dynamic Index Structure for
// Spatial Searching" by A. Guttman, Proceedings of ACM SIGMOD, p. 47-57, 1984.
func (core *rtreeCore[P, B]) chooseLeafPath(mbr B) []*rNode[P, B] {
	path := []*rNode[P, B]{core.root}
	node := core.root
	for !node.leaf {
		bestIdx := 0
		bestEnl := math.MaxFloat64
		bestArea := math.MaxFloat64
		for i, e := range node.entries {
			enl := e.mbr.Enlargement(mbr)
			area := e.mbr.Area()
			if enl < bestEnl || (enl == bestEnl && area < bestArea) {
				bestEnl, bestArea, bestIdx = enl, area, i
			}
		}
		node = node.entries[bestIdx].child
		path = append(path, node)
	}
	return path
}

// insertEntryMBR inserts an object whose mbr has already been computed,
// without touching the tree's size counter. Used both by Insert (which
// bumps size) and by reinsertion after a delete-triggered underflow (which
// must not).
func (core *rtreeCore[P, B]) insertEntryMBR(mbr B, obj P) {
	path := core.chooseLeafPath(mbr)
	leaf := path[len(path)-1]
	leaf.entries = append(leaf.entries, rEntry[P, B]{mbr: mbr, object: obj})
	core.adjustTree(path)
}

func (core *rtreeCore[P, B]) insert(obj P) {
	core.insertEntryMBR(core.mbrOf(obj), obj)
	core.size++
}

func (core *rtreeCore[P, B]) insertBulk(objs []P) int {
	for _, o := range objs {
		core.insert(o)
	}
	return len(objs)
}

// adjustTree splits overflowing nodes and propagates bounding-box and split
// changes upward along path, creating a new root if the tree's root splits.
//
// Implemented per Section 3.2 of "R-trees: A Dynamic Index Structure for
// Spatial Searching" by A. Guttman, Proceedings of ACM SIGMOD, p. 47-57, 1984.
func (core *rtreeCore[P, B]) adjustTree(path []*rNode[P, B]) {
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if len(node.entries) <= core.maxEntries {
			if i > 0 {
				updateParentEntry(path[i-1], node)
			}
			continue
		}

		left, right := splitRNode(core, node)
		if i == 0 {
			lm, _ := computeGroupMBR(left.entries)
			rm, _ := computeGroupMBR(right.entries)
			newRoot := &rNode[P, B]{leaf: false, entries: []rEntry[P, B]{
				{mbr: lm, child: left},
				{mbr: rm, child: right},
			}}
			core.root = newRoot
			spartlog.Log.Debug().Msg("rtree: root split")
			continue
		}
		parent := path[i-1]
		for j := range parent.entries {
			if parent.entries[j].child == left {
				lm, _ := computeGroupMBR(left.entries)
				rm, _ := computeGroupMBR(right.entries)
				parent.entries[j].mbr = lm
				parent.entries = append(parent.entries, rEntry[P, B]{mbr: rm, child: right})
				break
			}
		}
	}
}

func updateParentEntry[P comparable, B Bounds[B]](parent, child *rNode[P, B]) {
	mbr, ok := computeGroupMBR(child.entries)
	if !ok {
		return
	}
	for j := range parent.entries {
		if parent.entries[j].child == child {
			parent.entries[j].mbr = mbr
			return
		}
	}
}

// splitRNode splits an overflowing node into two nodes, attempting to
// minimize wasted space, using Guttman's quadratic-cost split algorithm.
// node is mutated in place to hold the first group; a new sibling node
// holding the second group is returned alongside it.
//
// Implemented per Section 3.5.2 of "R-trees: A Dynamic Index Structure for
// Spatial Searching" by A. Guttman, Proceedings of ACM SIGMOD, p. 47-57, 1984.
func splitRNode[P comparable, B Bounds[B]](core *rtreeCore[P, B], node *rNode[P, B]) (*rNode[P, B], *rNode[P, B]) {
	entries := node.entries
	n := len(entries)
	si, sj := pickSeeds(entries)

	assigned := make([]bool, n)
	assigned[si], assigned[sj] = true, true
	group1 := []rEntry[P, B]{entries[si]}
	group2 := []rEntry[P, B]{entries[sj]}
	mbr1, mbr2 := entries[si].mbr, entries[sj].mbr
	remaining := n - 2

	for remaining > 0 {
		if len(group1)+remaining == core.minEntries {
			for k := range entries {
				if !assigned[k] {
					group1 = append(group1, entries[k])
					mbr1 = mbr1.Union(entries[k].mbr)
					assigned[k] = true
				}
			}
			break
		}
		if len(group2)+remaining == core.minEntries {
			for k := range entries {
				if !assigned[k] {
					group2 = append(group2, entries[k])
					mbr2 = mbr2.Union(entries[k].mbr)
					assigned[k] = true
				}
			}
			break
		}

		next := pickNext(mbr1, mbr2, entries, assigned)
		e1 := mbr1.Enlargement(entries[next].mbr)
		e2 := mbr2.Enlargement(entries[next].mbr)
		toGroup1 := e1 < e2 ||
			(e1 == e2 && mbr1.Area() < mbr2.Area()) ||
			(e1 == e2 && mbr1.Area() == mbr2.Area() && len(group1) <= len(group2))
		if toGroup1 {
			group1 = append(group1, entries[next])
			mbr1 = mbr1.Union(entries[next].mbr)
		} else {
			group2 = append(group2, entries[next])
			mbr2 = mbr2.Union(entries[next].mbr)
		}
		assigned[next] = true
		remaining--
	}

	node.entries = group1
	sibling := &rNode[P, B]{leaf: node.leaf, entries: group2}
	return node, sibling
}

// pickSeeds chooses the two entries of a node to start a split, picking the
// pair that would waste the most space if grouped together.
func pickSeeds[P comparable, B Bounds[B]](entries []rEntry[P, B]) (left, right int) {
	maxWastedSpace := -1.0
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			union := entries[i].mbr.Union(entries[j].mbr)
			waste := union.Area() - entries[i].mbr.Area() - entries[j].mbr.Area()
			if waste > maxWastedSpace {
				maxWastedSpace = waste
				left, right = i, j
			}
		}
	}
	return
}

// pickNext chooses the next unassigned entry to add to one of the two
// growing groups, preferring the entry with the strongest preference for
// one group over the other.
func pickNext[P comparable, B Bounds[B]](mbr1, mbr2 B, entries []rEntry[P, B], assigned []bool) int {
	maxDiff := -1.0
	next := -1
	for i, e := range entries {
		if assigned[i] {
			continue
		}
		d1 := mbr1.Enlargement(e.mbr)
		d2 := mbr2.Enlargement(e.mbr)
		diff := math.Abs(d1 - d2)
		if diff > maxDiff {
			maxDiff = diff
			next = i
		}
	}
	return next
}

// Delete removes an object from the tree.
//
// Implemented per Section 3.3 of "R-trees: A Dynamic Index Structure for
// Spatial Searching" by A. Guttman, Proceedings of ACM SIGMOD, p. 47-57, 1984.
func (core *rtreeCore[P, B]) delete(obj P) bool {
	mbr := core.mbrOf(obj)
	var reinsert []P
	if !deleteEntry(core.root, obj, mbr, core.minEntries, &reinsert) {
		return false
	}
	core.size--

	for !core.root.leaf && len(core.root.entries) == 1 {
		core.root = core.root.entries[0].child
	}

	for _, obj2 := range reinsert {
		core.insertEntryMBR(core.mbrOf(obj2), obj2)
	}
	spartlog.Log.Debug().Msg("rtree: deleted")
	return true
}

func (core *rtreeCore[P, B]) rangeSearchBBox(box B) []P {
	var results []P
	searchNode(core.root, box, &results)
	return results
}

// rangeSearch filters rangeSearchBBox's candidates by exact distance, using
// metric if non-nil, or core's own (Euclidean) distSq otherwise. Pruning via
// fromPointRadius/rangeSearchBBox stays Euclidean regardless of metric; see
// DistanceMetric's doc comment on the monotonicity this assumes.
func (core *rtreeCore[P, B]) rangeSearch(center P, radius float64, metric DistanceMetric[P]) []P {
	distSq := core.distSq
	if metric != nil {
		distSq = metric.DistanceSq
	}
	box := core.fromPointRadius(center, radius)
	radiusSq := radius * radius
	candidates := core.rangeSearchBBox(box)
	results := candidates[:0]
	for _, p := range candidates {
		if distSq(p, center) <= radiusSq {
			results = append(results, p)
		}
	}
	return results
}

// knnSearch performs best-first search with a priority queue ordered by
// squared minimum distance from each entry's mbr to target, expanding the
// globally-closest unexpanded entry at every step. Candidate ranking uses
// metric if non-nil, or core's own (Euclidean) distSq otherwise; the
// frontier's mbr-to-target lower bound (minDistSq) is always Euclidean,
// which is a valid pruning bound only for metrics monotonic with it (see
// DistanceMetric's doc comment).
func (core *rtreeCore[P, B]) knnSearch(target P, k int, metric DistanceMetric[P]) []P {
	if k <= 0 {
		return nil
	}
	distSq := core.distSq
	if metric != nil {
		distSq = metric.DistanceSq
	}
	seq := 0
	frontier := &rKnnFrontier[P, B]{}
	pushNode := func(node *rNode[P, B]) {
		for i := range node.entries {
			e := &node.entries[i]
			heap.Push(frontier, rKnnCandidate[P, B]{distSq: core.minDistSq(e.mbr, target), entry: e, seq: seq})
			seq++
		}
	}
	pushNode(core.root)

	results := &rKnnResults[P]{}
	for frontier.Len() > 0 {
		cand := heap.Pop(frontier).(rKnnCandidate[P, B])
		if results.Len() == k && cand.distSq > (*results)[0].distSq {
			break
		}
		if cand.entry.child != nil {
			pushNode(cand.entry.child)
			continue
		}
		d := distSq(cand.entry.object, target)
		if results.Len() < k {
			heap.Push(results, rKnnResultItem[P]{distSq: d, seq: seq, object: cand.entry.object})
			seq++
		} else if d < (*results)[0].distSq {
			heap.Pop(results)
			heap.Push(results, rKnnResultItem[P]{distSq: d, seq: seq, object: cand.entry.object})
			seq++
		}
	}

	out := make([]P, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(rKnnResultItem[P]).object
	}
	sort.SliceStable(out, func(i, j int) bool {
		return distSq(out[i], target) < distSq(out[j], target)
	})
	return out
}

// RTree2D is a classic R-tree over 2D points carrying a comparable payload.
// Queries must not be interleaved with mutations without external
// synchronization.
type RTree2D[T comparable] struct {
	core *rtreeCore[Point2D[T], Rectangle]
}

// NewRTree2D creates an RTree2D with the given maximum entries per node.
// maxEntries must be at least 2.
func NewRTree2D[T comparable](maxEntries int) (*RTree2D[T], error) {
	metric := EuclideanPoint2D[T]{}
	core, err := newRTreeCore[Point2D[T], Rectangle](
		maxEntries,
		func(p Point2D[T]) Rectangle { return pointRectangle(p.X, p.Y, 0) },
		metric.DistanceSq,
		func(mbr Rectangle, p Point2D[T]) float64 {
			d := RectangleMinDistance(mbr, p.X, p.Y)
			return d * d
		},
		func(p Point2D[T], r float64) Rectangle { return RectangleFromPointRadius(p.X, p.Y, r) },
	)
	if err != nil {
		return nil, err
	}
	spartlog.Log.Debug().Int("maxEntries", maxEntries).Msg("rtree2d: created")
	return &RTree2D[T]{core: core}, nil
}

// Size returns the number of points currently stored in the tree.
func (t *RTree2D[T]) Size() int { return t.core.Size() }

// Height returns the tree's height (1 if the root is a leaf).
func (t *RTree2D[T]) Height() int { return t.core.Height() }

// Insert adds p to the tree.
func (t *RTree2D[T]) Insert(p Point2D[T]) bool {
	t.core.insert(p)
	return true
}

// InsertBulk inserts every point in points.
func (t *RTree2D[T]) InsertBulk(points []Point2D[T]) int { return t.core.insertBulk(points) }

// Delete removes one point equal to p, returning true iff a point was removed.
func (t *RTree2D[T]) Delete(p Point2D[T]) bool { return t.core.delete(p) }

// RangeSearchBBox returns every point contained in box.
func (t *RTree2D[T]) RangeSearchBBox(box Rectangle) []Point2D[T] { return t.core.rangeSearchBBox(box) }

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance).
func (t *RTree2D[T]) RangeSearch(center Point2D[T], radius float64, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	return t.core.rangeSearch(center, radius, optionalMetric(metric))
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// measured with metric if given (defaults to Euclidean distance).
func (t *RTree2D[T]) KNNSearch(target Point2D[T], k int, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	return t.core.knnSearch(target, k, optionalMetric(metric))
}

// RTree3D is a classic R-tree over 3D points carrying a comparable payload.
// Queries must not be interleaved with mutations without external
// synchronization.
type RTree3D[T comparable] struct {
	core *rtreeCore[Point3D[T], Cube]
}

// NewRTree3D creates an RTree3D with the given maximum entries per node.
// maxEntries must be at least 2.
func NewRTree3D[T comparable](maxEntries int) (*RTree3D[T], error) {
	metric := EuclideanPoint3D[T]{}
	core, err := newRTreeCore[Point3D[T], Cube](
		maxEntries,
		func(p Point3D[T]) Cube { return pointCube(p.X, p.Y, p.Z, 0) },
		metric.DistanceSq,
		func(mbr Cube, p Point3D[T]) float64 {
			d := CubeMinDistance(mbr, p.X, p.Y, p.Z)
			return d * d
		},
		func(p Point3D[T], r float64) Cube { return CubeFromPointRadius(p.X, p.Y, p.Z, r) },
	)
	if err != nil {
		return nil, err
	}
	spartlog.Log.Debug().Int("maxEntries", maxEntries).Msg("rtree3d: created")
	return &RTree3D[T]{core: core}, nil
}

// Size returns the number of points currently stored in the tree.
func (t *RTree3D[T]) Size() int { return t.core.Size() }

// Height returns the tree's height (1 if the root is a leaf).
func (t *RTree3D[T]) Height() int { return t.core.Height() }

// Insert adds p to the tree.
func (t *RTree3D[T]) Insert(p Point3D[T]) bool {
	t.core.insert(p)
	return true
}

// InsertBulk inserts every point in points.
func (t *RTree3D[T]) InsertBulk(points []Point3D[T]) int { return t.core.insertBulk(points) }

// Delete removes one point equal to p, returning true iff a point was removed.
func (t *RTree3D[T]) Delete(p Point3D[T]) bool { return t.core.delete(p) }

// RangeSearchBBox returns every point contained in box.
func (t *RTree3D[T]) RangeSearchBBox(box Cube) []Point3D[T] { return t.core.rangeSearchBBox(box) }

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance).
func (t *RTree3D[T]) RangeSearch(center Point3D[T], radius float64, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	return t.core.rangeSearch(center, radius, optionalMetric(metric))
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// measured with metric if given (defaults to Euclidean distance).
func (t *RTree3D[T]) KNNSearch(target Point3D[T], k int, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	return t.core.knnSearch(target, k, optionalMetric(metric))
}
