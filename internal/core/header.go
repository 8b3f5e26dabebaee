package core

import (
	"math"
	"time"
)

// Signature discriminates the file-format class a Header was read from
// (spec.md §3 "Header").
type Signature string

const (
	SignatureLAS   Signature = "LASF"
	SignaturePCD   Signature = "PCDF"
	SignatureFrame Signature = "FRAME" // in-memory frame, no backing file
)

// Header carries file-level metadata: bounding box, point count, CRS,
// schema, and format-specific fields.
type Header struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64

	NumberOfPointRecords int64

	Schema *Schema
	CRS    string

	Signature Signature

	// GPSTime is the first point's GPS time, when known; see vpcDatetime.
	GPSTime                  float64
	GPSTimeKnown             bool
	AdjustedStandardGPSTime  bool

	ScaleX, ScaleY, ScaleZ    float64
	OffsetX, OffsetY, OffsetZ float64

	CreationYear int
	CreationDay  int
	CreationDate time.Time

	// SpatialIndex reports whether the on-disk file carries a companion
	// spatial index (a .lax file for LAS/LAZ sources).
	SpatialIndex bool
}

// NewHeader returns a Header with an empty (degenerate, area-zero) bbox and
// the mandatory-prefix schema, ready to accumulate points.
func NewHeader() *Header {
	return &Header{
		Schema:      NewSchema(),
		ScaleX:      0.01,
		ScaleY:      0.01,
		ScaleZ:      0.01,
		MinX:        math.Inf(1), MinY: math.Inf(1), MinZ: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1), MaxZ: math.Inf(-1),
	}
}

// Width returns the bbox extent along X.
func (h *Header) Width() float64 { return h.MaxX - h.MinX }

// Height returns the bbox extent along Y.
func (h *Header) Height() float64 { return h.MaxY - h.MinY }

// Area returns the 2D bbox area, used to derive the grid index resolution
// (spec.md §4.2).
func (h *Header) Area() float64 {
	w, hh := h.Width(), h.Height()
	if w <= 0 || hh <= 0 {
		return 0
	}
	return w * hh
}

// ExpandToInclude grows the header's bbox to cover (x, y, z).
func (h *Header) ExpandToInclude(x, y, z float64) {
	if x < h.MinX {
		h.MinX = x
	}
	if y < h.MinY {
		h.MinY = y
	}
	if z < h.MinZ {
		h.MinZ = z
	}
	if x > h.MaxX {
		h.MaxX = x
	}
	if y > h.MaxY {
		h.MaxY = y
	}
	if z > h.MaxZ {
		h.MaxZ = z
	}
}

// Clone returns a deep copy, used when a per-chunk stage needs its own
// mutable header.
func (h *Header) Clone() *Header {
	out := *h
	out.Schema = h.Schema.Clone()
	return &out
}
