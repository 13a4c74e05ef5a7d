package spart

import (
	"container/heap"
	"math"
	"sort"

	"github.com/habedi/spart/internal/spartlog"
)

// rstarWorkItem is one pending (re)insertion during a single top-level
// Insert call: either the originally inserted object, or an object
// displaced by forced reinsertion.
type rstarWorkItem[P comparable, B Bounds[B]] struct {
	mbr B
	obj P
}

// rstarCore holds the R*-tree algorithms shared by RStarTree2D and
// RStarTree3D: overlap-aware choose-subtree, margin/overlap-optimized
// split, and forced reinsertion of an overflowing leaf (once per top-level
// insert).
type rstarCore[P comparable, B Bounds[B]] struct {
	root          *rNode[P, B]
	maxEntries    int
	minEntries    int
	reinsertCount int
	size          int

	mbrOf           func(P) B
	distSq          func(a, b P) float64
	minDistSq       func(mbr B, p P) float64
	fromPointRadius func(p P, radius float64) B
}

func newRStarCore[P comparable, B Bounds[B]](
	maxEntries int,
	mbrOf func(P) B,
	distSq func(a, b P) float64,
	minDistSq func(mbr B, p P) float64,
	fromPointRadius func(p P, radius float64) B,
) (*rstarCore[P, B], error) {
	if maxEntries < 2 {
		return nil, &InvalidCapacityError{Capacity: maxEntries}
	}
	minEntries := int(math.Ceil(0.4 * float64(maxEntries)))
	if minEntries < 1 {
		minEntries = 1
	}
	reinsertCount := int(math.Ceil(0.3 * float64(maxEntries)))
	if reinsertCount < 1 {
		reinsertCount = 1
	}
	return &rstarCore[P, B]{
		root:            &rNode[P, B]{leaf: true},
		maxEntries:      maxEntries,
		minEntries:      minEntries,
		reinsertCount:   reinsertCount,
		mbrOf:           mbrOf,
		distSq:          distSq,
		minDistSq:       minDistSq,
		fromPointRadius: fromPointRadius,
	}, nil
}

func (core *rstarCore[P, B]) Size() int   { return core.size }
func (core *rstarCore[P, B]) Height() int { return rHeight[P, B](core.root) }

// chooseSubtreePath descends from the root picking, at each level, the
// child entry per the R*-tree ChooseSubtree algorithm: when the level below
// is the leaf level, minimize overlap enlargement (tie-broken by area
// enlargement, then area); otherwise minimize area enlargement (tie-broken
// by area).
func (core *rstarCore[P, B]) chooseSubtreePath(mbr B) []*rNode[P, B] {
	path := []*rNode[P, B]{core.root}
	node := core.root
	for !node.leaf {
		var idx int
		if len(node.entries) > 0 && node.entries[0].child.leaf {
			idx = chooseSubtreeOverlapMinimizing(node.entries, mbr)
		} else {
			idx = chooseSubtreeAreaMinimizing(node.entries, mbr)
		}
		node = node.entries[idx].child
		path = append(path, node)
	}
	return path
}

func chooseSubtreeAreaMinimizing[P comparable, B Bounds[B]](entries []rEntry[P, B], mbr B) int {
	bestIdx := 0
	bestEnl := math.MaxFloat64
	bestArea := math.MaxFloat64
	for i, e := range entries {
		enl := e.mbr.Enlargement(mbr)
		area := e.mbr.Area()
		if enl < bestEnl || (enl == bestEnl && area < bestArea) {
			bestEnl, bestArea, bestIdx = enl, area, i
		}
	}
	return bestIdx
}

func chooseSubtreeOverlapMinimizing[P comparable, B Bounds[B]](entries []rEntry[P, B], mbr B) int {
	bestIdx := 0
	bestOverlapEnl := math.MaxFloat64
	bestAreaEnl := math.MaxFloat64
	bestArea := math.MaxFloat64
	for i, e := range entries {
		enlarged := e.mbr.Union(mbr)
		before := sumOverlapAgainst(entries, i, e.mbr)
		after := sumOverlapAgainst(entries, i, enlarged)
		overlapEnl := after - before
		areaEnl := enlarged.Area() - e.mbr.Area()
		area := e.mbr.Area()
		if overlapEnl < bestOverlapEnl ||
			(overlapEnl == bestOverlapEnl && areaEnl < bestAreaEnl) ||
			(overlapEnl == bestOverlapEnl && areaEnl == bestAreaEnl && area < bestArea) {
			bestOverlapEnl, bestAreaEnl, bestArea, bestIdx = overlapEnl, areaEnl, area, i
		}
	}
	return bestIdx
}

func sumOverlapAgainst[P comparable, B Bounds[B]](entries []rEntry[P, B], skip int, mbr B) float64 {
	sum := 0.0
	for j, e := range entries {
		if j == skip {
			continue
		}
		sum += mbr.Overlap(e.mbr)
	}
	return sum
}

func (core *rstarCore[P, B]) insertEntryMBR(mbr B, obj P) {
	reinserted := map[int]bool{}
	queue := []rstarWorkItem[P, B]{{mbr: mbr, obj: obj}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		path := core.chooseSubtreePath(item.mbr)
		leaf := path[len(path)-1]
		leaf.entries = append(leaf.entries, rEntry[P, B]{mbr: item.mbr, object: item.obj})
		core.processOverflow(path, reinserted, &queue)
	}
}

func (core *rstarCore[P, B]) insert(obj P) {
	core.insertEntryMBR(core.mbrOf(obj), obj)
	core.size++
}

func (core *rstarCore[P, B]) insertBulk(objs []P) int {
	for _, o := range objs {
		core.insert(o)
	}
	return len(objs)
}

// processOverflow walks path from leaf to root, handling any node that
// exceeds maxEntries. An overflowing non-root leaf is forcibly reinserted at
// most once per top-level insert; a second overflow at that level is handled
// by splitting, following the reinsertion policy of the original R*-tree
// algorithm (Beckmann et al., 1990), which avoids infinite reinsertion
// loops. Overflowing internal nodes and the root are always split; their
// entries are never forcibly reinserted.
func (core *rstarCore[P, B]) processOverflow(path []*rNode[P, B], reinserted map[int]bool, queue *[]rstarWorkItem[P, B]) {
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if len(node.entries) <= core.maxEntries {
			if i > 0 {
				updateParentEntry(path[i-1], node)
			}
			continue
		}

		if i > 0 && node.leaf && !reinserted[i] {
			reinserted[i] = true
			moved := forcedReinsertExtract(core, node)
			updateParentEntry(path[i-1], node)
			for _, e := range moved {
				*queue = append(*queue, rstarWorkItem[P, B]{mbr: e.mbr, obj: e.object})
			}
			spartlog.Log.Debug().Int("level", i).Int("count", len(moved)).Msg("rstartree: forced reinsert")
			continue
		}

		left, right := splitRStarNode(core, node)
		if i == 0 {
			lm, _ := computeGroupMBR(left.entries)
			rm, _ := computeGroupMBR(right.entries)
			core.root = &rNode[P, B]{leaf: false, entries: []rEntry[P, B]{
				{mbr: lm, child: left},
				{mbr: rm, child: right},
			}}
			spartlog.Log.Debug().Msg("rstartree: root split")
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

// forcedReinsertExtract removes the reinsertCount entries farthest (by
// squared distance) from node's mbr center, across every axis, leaving the
// rest in node.entries, and returns the extracted entries for the caller to
// reinsert from the root.
func forcedReinsertExtract[P comparable, B Bounds[B]](core *rstarCore[P, B], node *rNode[P, B]) []rEntry[P, B] {
	mbr, ok := computeGroupMBR(node.entries)
	if !ok {
		return nil
	}
	dim := mbr.Dim()
	centers := make([]float64, dim)
	for a := 0; a < dim; a++ {
		centers[a] = mbr.Center(a)
	}

	type distEntry struct {
		distSq float64
		entry  rEntry[P, B]
	}
	scored := make([]distEntry, len(node.entries))
	for i, e := range node.entries {
		sum := 0.0
		for a := 0; a < dim; a++ {
			d := e.mbr.Center(a) - centers[a]
			sum += d * d
		}
		scored[i] = distEntry{distSq: sum, entry: e}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].distSq > scored[j].distSq })

	n := core.reinsertCount
	if n > len(scored) {
		n = len(scored)
	}
	extracted := make([]rEntry[P, B], n)
	kept := make([]rEntry[P, B], 0, len(scored)-n)
	for i, s := range scored {
		if i < n {
			extracted[i] = s.entry
		} else {
			kept = append(kept, s.entry)
		}
	}
	node.entries = kept
	return extracted
}

// splitRStarNode splits an overflowing node using the two-phase R*-tree
// split: the axis minimizing the total margin summed over every valid split
// index is chosen first, then the split index on that axis minimizing
// overlap (tie-broken by the smaller summed area) is chosen.
func splitRStarNode[P comparable, B Bounds[B]](core *rstarCore[P, B], node *rNode[P, B]) (*rNode[P, B], *rNode[P, B]) {
	entries := append([]rEntry[P, B](nil), node.entries...)
	n := len(entries)
	dim := entries[0].mbr.Dim()

	bestMarginSum := math.MaxFloat64
	var bestOrder []rEntry[P, B]

	for axis := 0; axis < dim; axis++ {
		ordered := append([]rEntry[P, B](nil), entries...)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].mbr.Center(axis) < ordered[j].mbr.Center(axis) })

		marginSum := 0.0
		for k := core.minEntries; k <= n-core.minEntries; k++ {
			m1, _ := computeGroupMBR(ordered[:k])
			m2, _ := computeGroupMBR(ordered[k:])
			marginSum += m1.Margin() + m2.Margin()
		}
		if marginSum < bestMarginSum {
			bestMarginSum = marginSum
			bestOrder = ordered
		}
	}

	bestIdx := core.minEntries
	bestOverlap := math.MaxFloat64
	bestAreaSum := math.MaxFloat64
	for k := core.minEntries; k <= n-core.minEntries; k++ {
		m1, _ := computeGroupMBR(bestOrder[:k])
		m2, _ := computeGroupMBR(bestOrder[k:])
		overlap := m1.Overlap(m2)
		areaSum := m1.Area() + m2.Area()
		if overlap < bestOverlap || (overlap == bestOverlap && areaSum < bestAreaSum) {
			bestOverlap, bestAreaSum, bestIdx = overlap, areaSum, k
		}
	}

	node.entries = bestOrder[:bestIdx:bestIdx]
	sibling := &rNode[P, B]{leaf: node.leaf, entries: bestOrder[bestIdx:]}
	return node, sibling
}

func (core *rstarCore[P, B]) delete(obj P) bool {
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
	spartlog.Log.Debug().Msg("rstartree: deleted")
	return true
}

func (core *rstarCore[P, B]) rangeSearchBBox(box B) []P {
	var results []P
	searchNode(core.root, box, &results)
	return results
}

// rangeSearch filters rangeSearchBBox's candidates by exact distance, using
// metric if non-nil, or core's own (Euclidean) distSq otherwise. Pruning via
// fromPointRadius/rangeSearchBBox stays Euclidean regardless of metric; see
// DistanceMetric's doc comment on the monotonicity this assumes.
func (core *rstarCore[P, B]) rangeSearch(center P, radius float64, metric DistanceMetric[P]) []P {
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

// knnSearch performs best-first search ranked by metric if non-nil, or
// core's own (Euclidean) distSq otherwise; see rtree.go's knnSearch for the
// same pruning-bound caveat.
func (core *rstarCore[P, B]) knnSearch(target P, k int, metric DistanceMetric[P]) []P {
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

// RStarTree2D is an R*-tree over 2D points carrying a comparable payload.
// Queries must not be interleaved with mutations without external
// synchronization.
type RStarTree2D[T comparable] struct {
	core *rstarCore[Point2D[T], Rectangle]
}

// NewRStarTree2D creates an RStarTree2D with the given maximum entries per
// node. maxEntries must be at least 2.
func NewRStarTree2D[T comparable](maxEntries int) (*RStarTree2D[T], error) {
	metric := EuclideanPoint2D[T]{}
	core, err := newRStarCore[Point2D[T], Rectangle](
		maxEntries,
		func(p Point2D[T]) Rectangle { return pointRectangle(p.X, p.Y, mbrEpsilon) },
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
	spartlog.Log.Debug().Int("maxEntries", maxEntries).Msg("rstartree2d: created")
	return &RStarTree2D[T]{core: core}, nil
}

// Size returns the number of points currently stored in the tree.
func (t *RStarTree2D[T]) Size() int { return t.core.Size() }

// Height returns the tree's height (1 if the root is a leaf).
func (t *RStarTree2D[T]) Height() int { return t.core.Height() }

// Insert adds p to the tree.
func (t *RStarTree2D[T]) Insert(p Point2D[T]) bool {
	t.core.insert(p)
	return true
}

// InsertBulk inserts every point in points.
func (t *RStarTree2D[T]) InsertBulk(points []Point2D[T]) int { return t.core.insertBulk(points) }

// Delete removes one point equal to p, returning true iff a point was removed.
func (t *RStarTree2D[T]) Delete(p Point2D[T]) bool { return t.core.delete(p) }

// RangeSearchBBox returns every point contained in box.
func (t *RStarTree2D[T]) RangeSearchBBox(box Rectangle) []Point2D[T] {
	return t.core.rangeSearchBBox(box)
}

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance).
func (t *RStarTree2D[T]) RangeSearch(center Point2D[T], radius float64, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	return t.core.rangeSearch(center, radius, optionalMetric(metric))
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// measured with metric if given (defaults to Euclidean distance).
func (t *RStarTree2D[T]) KNNSearch(target Point2D[T], k int, metric ...DistanceMetric[Point2D[T]]) []Point2D[T] {
	return t.core.knnSearch(target, k, optionalMetric(metric))
}

// RStarTree3D is an R*-tree over 3D points carrying a comparable payload.
// Queries must not be interleaved with mutations without external
// synchronization.
type RStarTree3D[T comparable] struct {
	core *rstarCore[Point3D[T], Cube]
}

// NewRStarTree3D creates an RStarTree3D with the given maximum entries per
// node. maxEntries must be at least 2.
func NewRStarTree3D[T comparable](maxEntries int) (*RStarTree3D[T], error) {
	metric := EuclideanPoint3D[T]{}
	core, err := newRStarCore[Point3D[T], Cube](
		maxEntries,
		func(p Point3D[T]) Cube { return pointCube(p.X, p.Y, p.Z, mbrEpsilon) },
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
	spartlog.Log.Debug().Int("maxEntries", maxEntries).Msg("rstartree3d: created")
	return &RStarTree3D[T]{core: core}, nil
}

// Size returns the number of points currently stored in the tree.
func (t *RStarTree3D[T]) Size() int { return t.core.Size() }

// Height returns the tree's height (1 if the root is a leaf).
func (t *RStarTree3D[T]) Height() int { return t.core.Height() }

// Insert adds p to the tree.
func (t *RStarTree3D[T]) Insert(p Point3D[T]) bool {
	t.core.insert(p)
	return true
}

// InsertBulk inserts every point in points.
func (t *RStarTree3D[T]) InsertBulk(points []Point3D[T]) int { return t.core.insertBulk(points) }

// Delete removes one point equal to p, returning true iff a point was removed.
func (t *RStarTree3D[T]) Delete(p Point3D[T]) bool { return t.core.delete(p) }

// RangeSearchBBox returns every point contained in box.
func (t *RStarTree3D[T]) RangeSearchBBox(box Cube) []Point3D[T] {
	return t.core.rangeSearchBBox(box)
}

// RangeSearch returns every point within radius of center (inclusive),
// measured with metric if given (defaults to Euclidean distance).
func (t *RStarTree3D[T]) RangeSearch(center Point3D[T], radius float64, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	return t.core.rangeSearch(center, radius, optionalMetric(metric))
}

// KNNSearch returns up to k points nearest to target, ascending by distance,
// measured with metric if given (defaults to Euclidean distance).
func (t *RStarTree3D[T]) KNNSearch(target Point3D[T], k int, metric ...DistanceMetric[Point3D[T]]) []Point3D[T] {
	return t.core.knnSearch(target, k, optionalMetric(metric))
}
