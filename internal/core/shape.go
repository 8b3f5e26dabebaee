package core

import "math"

// Interval is an inclusive range [Start, End] of point indices, used by the
// 2D grid index and the point cloud's read cursor.
type Interval struct {
	Start, End int
}

// BBox is an axis-aligned 2D bounding box in CRS-linear units.
type BBox struct {
	XMin, YMin, XMax, YMax float64
}

// Expand returns bb grown outward by d on every side (spec.md's "buffer"
// concept, glossary).
func (bb BBox) Expand(d float64) BBox {
	return BBox{bb.XMin - d, bb.YMin - d, bb.XMax + d, bb.YMax + d}
}

// Intersects reports whether bb and other overlap (touching counts as
// overlap, matching the original's closed-interval semantics).
func (bb BBox) Intersects(other BBox) bool {
	return bb.XMin <= other.XMax && bb.XMax >= other.XMin &&
		bb.YMin <= other.YMax && bb.YMax >= other.YMin
}

// ClipTo clips bb to fit inside bound.
func (bb BBox) ClipTo(bound BBox) BBox {
	out := bb
	if out.XMin < bound.XMin {
		out.XMin = bound.XMin
	}
	if out.YMin < bound.YMin {
		out.YMin = bound.YMin
	}
	if out.XMax > bound.XMax {
		out.XMax = bound.XMax
	}
	if out.YMax > bound.YMax {
		out.YMax = bound.YMax
	}
	return out
}

// Centroid returns the bbox's center point.
func (bb BBox) Centroid() (x, y float64) {
	return (bb.XMin + bb.XMax) / 2, (bb.YMin + bb.YMax) / 2
}

// Shape is a 2D region query predicate: either a Rectangle or a Circle
// (spec.md §4.1 "Query registration").
type Shape interface {
	Bounds() BBox
	Contains(x, y float64) bool
	Kind() ShapeKind
}

// ShapeKind discriminates a Chunk's shape field (spec.md §3 "Chunk").
type ShapeKind int

const (
	ShapeUnknown ShapeKind = iota
	ShapeRectangle
	ShapeCircle
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeRectangle:
		return "rectangle"
	case ShapeCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// Rectangle is an axis-aligned rectangular query region.
type Rectangle struct {
	BBox BBox
}

func (r Rectangle) Bounds() BBox { return r.BBox }
func (r Rectangle) Contains(x, y float64) bool {
	return x >= r.BBox.XMin && x <= r.BBox.XMax && y >= r.BBox.YMin && y <= r.BBox.YMax
}
func (r Rectangle) Kind() ShapeKind { return ShapeRectangle }

// Circle is a circular query region.
type Circle struct {
	CenterX, CenterY, Radius float64
}

func (c Circle) Bounds() BBox {
	return BBox{c.CenterX - c.Radius, c.CenterY - c.Radius, c.CenterX + c.Radius, c.CenterY + c.Radius}
}
func (c Circle) Contains(x, y float64) bool {
	dx, dy := x-c.CenterX, y-c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}
func (c Circle) Kind() ShapeKind { return ShapeCircle }

// dist2 returns the squared Euclidean distance between two 3D points.
func dist2(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx, dy, dz := x1-x2, y1-y2, z1-z2
	return dx*dx + dy*dy + dz*dz
}

func dist(x1, y1, z1, x2, y2, z2 float64) float64 {
	return math.Sqrt(dist2(x1, y1, z1, x2, y2, z2))
}
