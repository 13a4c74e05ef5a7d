package spart

import "encoding/json"

// Serialization is deliberately structural rather than a dump of internal
// node layout: each tree's snapshot is its construction parameters plus a
// flat list of its points, and its FromXSnapshot function (FromQuadtreeSnapshot,
// FromKdTreeSnapshot, ...) rebuilds the tree by replaying
// InsertBulk. Two trees built from the same snapshot answer every query
// identically even if their internal node shapes differ, which is all
// round-trip equivalence requires.

// QuadtreeSnapshot is the serializable form of a Quadtree.
type QuadtreeSnapshot[T comparable] struct {
	Boundary Rectangle    `json:"boundary"`
	Capacity int          `json:"capacity"`
	Points   []Point2D[T] `json:"points"`
}

// Snapshot captures q's boundary, capacity, and current points.
func (q *Quadtree[T]) Snapshot() QuadtreeSnapshot[T] {
	return QuadtreeSnapshot[T]{
		Boundary: q.boundary,
		Capacity: q.capacity,
		Points:   q.RangeSearchBBox(q.boundary),
	}
}

// FromQuadtreeSnapshot rebuilds a Quadtree from a snapshot, reinserting its
// points in order.
func FromQuadtreeSnapshot[T comparable](s QuadtreeSnapshot[T]) (*Quadtree[T], error) {
	q, err := NewQuadtree[T](s.Boundary, s.Capacity)
	if err != nil {
		return nil, err
	}
	q.InsertBulk(s.Points)
	return q, nil
}

// MarshalJSON encodes q as its Snapshot.
func (q *Quadtree[T]) MarshalJSON() ([]byte, error) { return json.Marshal(q.Snapshot()) }

// UnmarshalJSON replaces q's contents with the tree decoded from data.
func (q *Quadtree[T]) UnmarshalJSON(data []byte) error {
	var s QuadtreeSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromQuadtreeSnapshot[T](s)
	if err != nil {
		return err
	}
	*q = *rebuilt
	return nil
}

// OctreeSnapshot is the serializable form of an Octree.
type OctreeSnapshot[T comparable] struct {
	Boundary Cube         `json:"boundary"`
	Capacity int          `json:"capacity"`
	Points   []Point3D[T] `json:"points"`
}

// Snapshot captures o's boundary, capacity, and current points.
func (o *Octree[T]) Snapshot() OctreeSnapshot[T] {
	return OctreeSnapshot[T]{
		Boundary: o.boundary,
		Capacity: o.capacity,
		Points:   o.RangeSearchBBox(o.boundary),
	}
}

// FromOctreeSnapshot rebuilds an Octree from a snapshot, reinserting its
// points in order.
func FromOctreeSnapshot[T comparable](s OctreeSnapshot[T]) (*Octree[T], error) {
	o, err := NewOctree[T](s.Boundary, s.Capacity)
	if err != nil {
		return nil, err
	}
	o.InsertBulk(s.Points)
	return o, nil
}

// MarshalJSON encodes o as its Snapshot.
func (o *Octree[T]) MarshalJSON() ([]byte, error) { return json.Marshal(o.Snapshot()) }

// UnmarshalJSON replaces o's contents with the tree decoded from data.
func (o *Octree[T]) UnmarshalJSON(data []byte) error {
	var s OctreeSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromOctreeSnapshot[T](s)
	if err != nil {
		return err
	}
	*o = *rebuilt
	return nil
}

// KdTreeSnapshot is the serializable form of a KdTree.
type KdTreeSnapshot[T comparable] struct {
	Points []KdPoint[T] `json:"points"`
}

// Snapshot captures kt's current points in pre-order.
func (kt *KdTree[T]) Snapshot() KdTreeSnapshot[T] {
	var pts []KdPoint[T]
	kdCollect(kt.root, &pts)
	return KdTreeSnapshot[T]{Points: pts}
}

// FromKdTreeSnapshot rebuilds a KdTree from a snapshot, reinserting its
// points in order. Returns an error if the points do not share a single
// dimensionality.
func FromKdTreeSnapshot[T comparable](s KdTreeSnapshot[T]) (*KdTree[T], error) {
	kt := NewKdTree[T]()
	if _, err := kt.InsertBulk(s.Points); err != nil {
		return nil, err
	}
	return kt, nil
}

// MarshalJSON encodes kt as its Snapshot.
func (kt *KdTree[T]) MarshalJSON() ([]byte, error) { return json.Marshal(kt.Snapshot()) }

// UnmarshalJSON replaces kt's contents with the tree decoded from data.
func (kt *KdTree[T]) UnmarshalJSON(data []byte) error {
	var s KdTreeSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromKdTreeSnapshot[T](s)
	if err != nil {
		return err
	}
	*kt = *rebuilt
	return nil
}

// RTree2DSnapshot is the serializable form of an RTree2D.
type RTree2DSnapshot[T comparable] struct {
	MaxEntries int          `json:"max_entries"`
	Points     []Point2D[T] `json:"points"`
}

// Snapshot captures t's max-entries parameter and current points.
func (t *RTree2D[T]) Snapshot() RTree2DSnapshot[T] {
	return RTree2DSnapshot[T]{MaxEntries: t.core.maxEntries, Points: collectLeafObjects(t.core.root)}
}

// FromRTree2DSnapshot rebuilds an RTree2D from a snapshot, reinserting its
// points in order.
func FromRTree2DSnapshot[T comparable](s RTree2DSnapshot[T]) (*RTree2D[T], error) {
	t, err := NewRTree2D[T](s.MaxEntries)
	if err != nil {
		return nil, err
	}
	t.InsertBulk(s.Points)
	return t, nil
}

// MarshalJSON encodes t as its Snapshot.
func (t *RTree2D[T]) MarshalJSON() ([]byte, error) { return json.Marshal(t.Snapshot()) }

// UnmarshalJSON replaces t's contents with the tree decoded from data.
func (t *RTree2D[T]) UnmarshalJSON(data []byte) error {
	var s RTree2DSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromRTree2DSnapshot[T](s)
	if err != nil {
		return err
	}
	*t = *rebuilt
	return nil
}

// RTree3DSnapshot is the serializable form of an RTree3D.
type RTree3DSnapshot[T comparable] struct {
	MaxEntries int          `json:"max_entries"`
	Points     []Point3D[T] `json:"points"`
}

// Snapshot captures t's max-entries parameter and current points.
func (t *RTree3D[T]) Snapshot() RTree3DSnapshot[T] {
	return RTree3DSnapshot[T]{MaxEntries: t.core.maxEntries, Points: collectLeafObjects(t.core.root)}
}

// FromRTree3DSnapshot rebuilds an RTree3D from a snapshot, reinserting its
// points in order.
func FromRTree3DSnapshot[T comparable](s RTree3DSnapshot[T]) (*RTree3D[T], error) {
	t, err := NewRTree3D[T](s.MaxEntries)
	if err != nil {
		return nil, err
	}
	t.InsertBulk(s.Points)
	return t, nil
}

// MarshalJSON encodes t as its Snapshot.
func (t *RTree3D[T]) MarshalJSON() ([]byte, error) { return json.Marshal(t.Snapshot()) }

// UnmarshalJSON replaces t's contents with the tree decoded from data.
func (t *RTree3D[T]) UnmarshalJSON(data []byte) error {
	var s RTree3DSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromRTree3DSnapshot[T](s)
	if err != nil {
		return err
	}
	*t = *rebuilt
	return nil
}

// RStarTree2DSnapshot is the serializable form of an RStarTree2D.
type RStarTree2DSnapshot[T comparable] struct {
	MaxEntries int          `json:"max_entries"`
	Points     []Point2D[T] `json:"points"`
}

// Snapshot captures t's max-entries parameter and current points.
func (t *RStarTree2D[T]) Snapshot() RStarTree2DSnapshot[T] {
	return RStarTree2DSnapshot[T]{MaxEntries: t.core.maxEntries, Points: collectLeafObjects(t.core.root)}
}

// FromRStarTree2DSnapshot rebuilds an RStarTree2D from a snapshot,
// reinserting its points in order.
func FromRStarTree2DSnapshot[T comparable](s RStarTree2DSnapshot[T]) (*RStarTree2D[T], error) {
	t, err := NewRStarTree2D[T](s.MaxEntries)
	if err != nil {
		return nil, err
	}
	t.InsertBulk(s.Points)
	return t, nil
}

// MarshalJSON encodes t as its Snapshot.
func (t *RStarTree2D[T]) MarshalJSON() ([]byte, error) { return json.Marshal(t.Snapshot()) }

// UnmarshalJSON replaces t's contents with the tree decoded from data.
func (t *RStarTree2D[T]) UnmarshalJSON(data []byte) error {
	var s RStarTree2DSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromRStarTree2DSnapshot[T](s)
	if err != nil {
		return err
	}
	*t = *rebuilt
	return nil
}

// RStarTree3DSnapshot is the serializable form of an RStarTree3D.
type RStarTree3DSnapshot[T comparable] struct {
	MaxEntries int          `json:"max_entries"`
	Points     []Point3D[T] `json:"points"`
}

// Snapshot captures t's max-entries parameter and current points.
func (t *RStarTree3D[T]) Snapshot() RStarTree3DSnapshot[T] {
	return RStarTree3DSnapshot[T]{MaxEntries: t.core.maxEntries, Points: collectLeafObjects(t.core.root)}
}

// FromRStarTree3DSnapshot rebuilds an RStarTree3D from a snapshot,
// reinserting its points in order.
func FromRStarTree3DSnapshot[T comparable](s RStarTree3DSnapshot[T]) (*RStarTree3D[T], error) {
	t, err := NewRStarTree3D[T](s.MaxEntries)
	if err != nil {
		return nil, err
	}
	t.InsertBulk(s.Points)
	return t, nil
}

// MarshalJSON encodes t as its Snapshot.
func (t *RStarTree3D[T]) MarshalJSON() ([]byte, error) { return json.Marshal(t.Snapshot()) }

// UnmarshalJSON replaces t's contents with the tree decoded from data.
func (t *RStarTree3D[T]) UnmarshalJSON(data []byte) error {
	var s RStarTree3DSnapshot[T]
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	rebuilt, err := FromRStarTree3DSnapshot[T](s)
	if err != nil {
		return err
	}
	*t = *rebuilt
	return nil
}
