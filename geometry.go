package spart

import "math"

// mbrEpsilon is the minimum width/height/depth given to a point's bounding
// volume by the R*-tree, so that a point's MBR has a non-zero area and
// margin in its overlap, area and margin calculations instead of a
// degenerate, zero-measure box.
const mbrEpsilon = 1e-10

// Point2D is a point in the plane carrying an optional comparable payload.
// Two Point2D values are equal, via Go's built-in ==, exactly when their
// coordinates and payloads match.
type Point2D[T comparable] struct {
	X, Y    float64
	Data    T
	HasData bool
}

// NewPoint2D builds a Point2D with no payload.
func NewPoint2D[T comparable](x, y float64) Point2D[T] {
	return Point2D[T]{X: x, Y: y}
}

// NewPoint2DWithData builds a Point2D carrying data.
func NewPoint2DWithData[T comparable](x, y float64, data T) Point2D[T] {
	return Point2D[T]{X: x, Y: y, Data: data, HasData: true}
}

// Point3D is a point in space carrying an optional comparable payload.
type Point3D[T comparable] struct {
	X, Y, Z float64
	Data    T
	HasData bool
}

// NewPoint3D builds a Point3D with no payload.
func NewPoint3D[T comparable](x, y, z float64) Point3D[T] {
	return Point3D[T]{X: x, Y: y, Z: z}
}

// NewPoint3DWithData builds a Point3D carrying data.
func NewPoint3DWithData[T comparable](x, y, z float64, data T) Point3D[T] {
	return Point3D[T]{X: x, Y: y, Z: z, Data: data, HasData: true}
}

// Rectangle is an axis-aligned bounding box in the plane. Containment and
// intersection are closed: a point or rectangle touching the boundary is
// considered contained/intersecting.
type Rectangle struct {
	X, Y, Width, Height float64
}

// Cube is an axis-aligned bounding volume in space, closed the same way
// Rectangle is.
type Cube struct {
	X, Y, Z, Width, Height, Depth float64
}

// Bounds is the shared bounding-volume interface implemented by Rectangle and
// Cube, letting the R-tree family operate generically over either dimension.
type Bounds[B any] interface {
	Area() float64
	Union(other B) B
	Enlargement(other B) float64
	Intersects(other B) bool
	Overlap(other B) float64
	Margin() float64
	Center(axis int) float64
	Extent(axis int) float64
	Dim() int
}

// Contains reports whether r contains (x, y), closed on the boundary.
func (r Rectangle) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Contains reports whether c fully contains (x, y, z), closed on the boundary.
func (c Cube) Contains(x, y, z float64) bool {
	return x >= c.X && x <= c.X+c.Width &&
		y >= c.Y && y <= c.Y+c.Height &&
		z >= c.Z && z <= c.Z+c.Depth
}

// Intersects reports whether r and other share at least a boundary point.
func (r Rectangle) Intersects(other Rectangle) bool {
	return !(other.X > r.X+r.Width || other.X+other.Width < r.X ||
		other.Y > r.Y+r.Height || other.Y+other.Height < r.Y)
}

// Intersects reports whether c and other share at least a boundary point.
func (c Cube) Intersects(other Cube) bool {
	return !(other.X > c.X+c.Width || other.X+other.Width < c.X ||
		other.Y > c.Y+c.Height || other.Y+other.Height < c.Y ||
		other.Z > c.Z+c.Depth || other.Z+other.Depth < c.Z)
}

// Area returns the rectangle's area.
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// Area returns the cube's volume.
func (c Cube) Area() float64 {
	return c.Width * c.Height * c.Depth
}

// Union returns the smallest rectangle containing both r and other.
func (r Rectangle) Union(other Rectangle) Rectangle {
	minX := math.Min(r.X, other.X)
	minY := math.Min(r.Y, other.Y)
	maxX := math.Max(r.X+r.Width, other.X+other.Width)
	maxY := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Union returns the smallest cube containing both c and other.
func (c Cube) Union(other Cube) Cube {
	minX := math.Min(c.X, other.X)
	minY := math.Min(c.Y, other.Y)
	minZ := math.Min(c.Z, other.Z)
	maxX := math.Max(c.X+c.Width, other.X+other.Width)
	maxY := math.Max(c.Y+c.Height, other.Y+other.Height)
	maxZ := math.Max(c.Z+c.Depth, other.Z+other.Depth)
	return Cube{X: minX, Y: minY, Z: minZ, Width: maxX - minX, Height: maxY - minY, Depth: maxZ - minZ}
}

// Enlargement returns how much r's area would grow to also contain other.
func (r Rectangle) Enlargement(other Rectangle) float64 {
	return r.Union(other).Area() - r.Area()
}

// Enlargement returns how much c's volume would grow to also contain other.
func (c Cube) Enlargement(other Cube) float64 {
	return c.Union(other).Area() - c.Area()
}

// Overlap returns the area of intersection between r and other (0 if they
// don't overlap).
func (r Rectangle) Overlap(other Rectangle) float64 {
	if !r.Intersects(other) {
		return 0
	}
	minX := math.Max(r.X, other.X)
	minY := math.Max(r.Y, other.Y)
	maxX := math.Min(r.X+r.Width, other.X+other.Width)
	maxY := math.Min(r.Y+r.Height, other.Y+other.Height)
	return math.Max(0, maxX-minX) * math.Max(0, maxY-minY)
}

// Overlap returns the volume of intersection between c and other.
func (c Cube) Overlap(other Cube) float64 {
	if !c.Intersects(other) {
		return 0
	}
	minX := math.Max(c.X, other.X)
	minY := math.Max(c.Y, other.Y)
	minZ := math.Max(c.Z, other.Z)
	maxX := math.Min(c.X+c.Width, other.X+other.Width)
	maxY := math.Min(c.Y+c.Height, other.Y+other.Height)
	maxZ := math.Min(c.Z+c.Depth, other.Z+other.Depth)
	return math.Max(0, maxX-minX) * math.Max(0, maxY-minY) * math.Max(0, maxZ-minZ)
}

// Dim returns 2, the number of axes a Rectangle spans.
func (r Rectangle) Dim() int { return 2 }

// Dim returns 3, the number of axes a Cube spans.
func (c Cube) Dim() int { return 3 }

// Margin returns the sum of the rectangle's edge lengths, used by the
// R*-tree split axis heuristic.
func (r Rectangle) Margin() float64 {
	return 2 * (r.Width + r.Height)
}

// Margin returns the sum of the cube's edge lengths.
func (c Cube) Margin() float64 {
	return 4 * (c.Width + c.Height + c.Depth)
}

// Center returns the midpoint coordinate of the rectangle along axis (0=x, 1=y).
func (r Rectangle) Center(axis int) float64 {
	switch axis {
	case 0:
		return r.X + r.Width/2
	case 1:
		return r.Y + r.Height/2
	default:
		panic("spart: invalid axis for Rectangle.Center")
	}
}

// Center returns the midpoint coordinate of the cube along axis (0=x, 1=y, 2=z).
func (c Cube) Center(axis int) float64 {
	switch axis {
	case 0:
		return c.X + c.Width/2
	case 1:
		return c.Y + c.Height/2
	case 2:
		return c.Z + c.Depth/2
	default:
		panic("spart: invalid axis for Cube.Center")
	}
}

// Extent returns the rectangle's size along axis.
func (r Rectangle) Extent(axis int) float64 {
	switch axis {
	case 0:
		return r.Width
	case 1:
		return r.Height
	default:
		panic("spart: invalid axis for Rectangle.Extent")
	}
}

// Extent returns the cube's size along axis.
func (c Cube) Extent(axis int) float64 {
	switch axis {
	case 0:
		return c.Width
	case 1:
		return c.Height
	case 2:
		return c.Depth
	default:
		panic("spart: invalid axis for Cube.Extent")
	}
}

// DistanceMetric computes a squared distance between two points of type P.
// kNN and range-search pruning in this module assume the metric is
// monotonic with true Euclidean distance; a non-Euclidean metric can make
// pruning incorrectly discard closer candidates.
type DistanceMetric[P any] interface {
	DistanceSq(a, b P) float64
}

// optionalMetric resolves a tree method's variadic metric parameter:
// absent or explicitly nil means "use the tree's own default metric".
func optionalMetric[P any](metric []DistanceMetric[P]) DistanceMetric[P] {
	if len(metric) > 0 {
		return metric[0]
	}
	return nil
}

// EuclideanPoint2D is the default squared-distance metric for Point2D.
type EuclideanPoint2D[T comparable] struct{}

// DistanceSq returns the squared Euclidean distance between a and b.
func (EuclideanPoint2D[T]) DistanceSq(a, b Point2D[T]) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// EuclideanPoint3D is the default squared-distance metric for Point3D.
type EuclideanPoint3D[T comparable] struct{}

// DistanceSq returns the squared Euclidean distance between a and b.
func (EuclideanPoint3D[T]) DistanceSq(a, b Point3D[T]) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return dx*dx + dy*dy + dz*dz
}

// RectangleMinDistance returns the minimum Euclidean distance from (x, y) to
// the rectangle r (0 if the point is inside r).
func RectangleMinDistance(r Rectangle, x, y float64) float64 {
	dx := axisGap(x, r.X, r.X+r.Width)
	dy := axisGap(y, r.Y, r.Y+r.Height)
	return math.Sqrt(dx*dx + dy*dy)
}

// CubeMinDistance returns the minimum Euclidean distance from (x, y, z) to
// the cube c (0 if the point is inside c).
func CubeMinDistance(c Cube, x, y, z float64) float64 {
	dx := axisGap(x, c.X, c.X+c.Width)
	dy := axisGap(y, c.Y, c.Y+c.Height)
	dz := axisGap(z, c.Z, c.Z+c.Depth)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

// RectangleFromPointRadius returns the square bounding box of side 2*radius
// centered on (x, y).
func RectangleFromPointRadius(x, y, radius float64) Rectangle {
	return Rectangle{X: x - radius, Y: y - radius, Width: 2 * radius, Height: 2 * radius}
}

// CubeFromPointRadius returns the cube bounding box of side 2*radius
// centered on (x, y, z).
func CubeFromPointRadius(x, y, z, radius float64) Cube {
	return Cube{X: x - radius, Y: y - radius, Z: z - radius, Width: 2 * radius, Height: 2 * radius, Depth: 2 * radius}
}

func pointRectangle(x, y float64, epsilon float64) Rectangle {
	return Rectangle{X: x, Y: y, Width: epsilon, Height: epsilon}
}

func pointCube(x, y, z float64, epsilon float64) Cube {
	return Cube{X: x, Y: y, Z: z, Width: epsilon, Height: epsilon, Depth: epsilon}
}
