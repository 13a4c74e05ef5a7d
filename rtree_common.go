package spart

// rEntry is one entry of an R-tree-family node: either a leaf entry holding
// an object, or an internal entry holding a child node. Both kinds carry the
// entry's bounding volume.
type rEntry[P comparable, B Bounds[B]] struct {
	mbr    B
	child  *rNode[P, B]
	object P
}

func (e *rEntry[P, B]) isLeafEntry() bool { return e.child == nil }

// rNode is one node of an R-tree-family tree.
type rNode[P comparable, B Bounds[B]] struct {
	entries []rEntry[P, B]
	leaf    bool
}

// computeGroupMBR folds Union across every entry's mbr. ok is false if
// entries is empty.
func computeGroupMBR[P comparable, B Bounds[B]](entries []rEntry[P, B]) (mbr B, ok bool) {
	if len(entries) == 0 {
		return mbr, false
	}
	mbr = entries[0].mbr
	for _, e := range entries[1:] {
		mbr = mbr.Union(e.mbr)
	}
	return mbr, true
}

// searchNode recursively collects every leaf object whose mbr intersects
// query, descending only into subtrees whose own mbr intersects query.
func searchNode[P comparable, B Bounds[B]](node *rNode[P, B], query B, results *[]P) {
	if node == nil {
		return
	}
	for _, e := range node.entries {
		if !e.mbr.Intersects(query) {
			continue
		}
		if node.leaf {
			*results = append(*results, e.object)
		} else {
			searchNode(e.child, query, results)
		}
	}
}

// collectLeafObjects returns every object stored in the subtree rooted at node.
func collectLeafObjects[P comparable, B Bounds[B]](node *rNode[P, B]) []P {
	var out []P
	var walk func(n *rNode[P, B])
	walk = func(n *rNode[P, B]) {
		if n == nil {
			return
		}
		for _, e := range n.entries {
			if n.leaf {
				out = append(out, e.object)
			} else {
				walk(e.child)
			}
		}
	}
	walk(node)
	return out
}

// deleteEntry removes one entry equal to object (by == on P) from the
// subtree rooted at node, descending only into children whose mbr
// intersects objectMBR. When a child underflows below minEntries after a
// successful delete, the child is detached and its remaining objects are
// appended to reinsertList for the caller to reinsert from the tree root;
// otherwise the parent entry's mbr is recomputed. Returns whether an object
// was removed.
func deleteEntry[P comparable, B Bounds[B]](node *rNode[P, B], object P, objectMBR B, minEntries int, reinsertList *[]P) bool {
	if node == nil {
		return false
	}
	if node.leaf {
		for i, e := range node.entries {
			if e.object == object {
				node.entries = append(node.entries[:i], node.entries[i+1:]...)
				return true
			}
		}
		return false
	}

	for i := range node.entries {
		e := &node.entries[i]
		if !e.mbr.Intersects(objectMBR) {
			continue
		}
		if !deleteEntry(e.child, object, objectMBR, minEntries, reinsertList) {
			continue
		}
		switch {
		case len(e.child.entries) == 0:
			node.entries = append(node.entries[:i], node.entries[i+1:]...)
		case len(e.child.entries) < minEntries:
			*reinsertList = append(*reinsertList, collectLeafObjects(e.child)...)
			node.entries = append(node.entries[:i], node.entries[i+1:]...)
		default:
			mbr, _ := computeGroupMBR(e.child.entries)
			e.mbr = mbr
		}
		return true
	}
	return false
}

// rKnnCandidate is a frontier item for best-first kNN search: either an
// unexpanded entry (internal or leaf) or a concrete result object, keyed by
// its squared minimum distance to the query point.
type rKnnCandidate[P comparable, B Bounds[B]] struct {
	distSq  float64
	entry   *rEntry[P, B]
	seq     int
}

// rKnnFrontier is a min-heap of rKnnCandidate ordered by ascending distSq,
// with insertion order (seq) as a deterministic tiebreaker.
type rKnnFrontier[P comparable, B Bounds[B]] []rKnnCandidate[P, B]

func (h rKnnFrontier[P, B]) Len() int { return len(h) }
func (h rKnnFrontier[P, B]) Less(i, j int) bool {
	if h[i].distSq != h[j].distSq {
		return h[i].distSq < h[j].distSq
	}
	return h[i].seq < h[j].seq
}
func (h rKnnFrontier[P, B]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *rKnnFrontier[P, B]) Push(x interface{}) {
	*h = append(*h, x.(rKnnCandidate[P, B]))
}
func (h *rKnnFrontier[P, B]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// rKnnResults is a bounded max-heap of the best k results found so far,
// keyed by descending distSq (so the worst is at the top), with insertion
// order as a tiebreaker so that equally-distant points are evicted in a
// deterministic order.
type rKnnResultItem[P comparable] struct {
	distSq float64
	seq    int
	object P
}

type rKnnResults[P comparable] []rKnnResultItem[P]

func (h rKnnResults[P]) Len() int { return len(h) }
func (h rKnnResults[P]) Less(i, j int) bool {
	if h[i].distSq != h[j].distSq {
		return h[i].distSq > h[j].distSq
	}
	return h[i].seq > h[j].seq
}
func (h rKnnResults[P]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *rKnnResults[P]) Push(x interface{}) {
	*h = append(*h, x.(rKnnResultItem[P]))
}
func (h *rKnnResults[P]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
