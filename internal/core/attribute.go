// Package core implements the point-cloud data model: attribute schemas,
// point views, headers, spatial indices and the in-memory point cloud
// itself, plus the file collection and chunk planner built on top of them.
package core

import "fmt"

// AttrType is the wire type of a single point attribute.
type AttrType int

const (
	NoType AttrType = iota - 1
	Bit
	Uint8
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float
	Double
)

// byteSize returns the on-disk size of one value of t, or 0 for Bit (which
// shares a byte with up to 7 siblings and is accounted for separately).
func (t AttrType) byteSize() int {
	switch t {
	case Bit:
		return 0
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float:
		return 4
	case Uint64, Int64, Double:
		return 8
	default:
		return 0
	}
}

func (t AttrType) String() string {
	switch t {
	case Bit:
		return "BIT"
	case Uint8:
		return "UINT8"
	case Int8:
		return "INT8"
	case Uint16:
		return "UINT16"
	case Int16:
		return "INT16"
	case Uint32:
		return "UINT32"
	case Int32:
		return "INT32"
	case Uint64:
		return "UINT64"
	case Int64:
		return "INT64"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	default:
		return "NOTYPE"
	}
}

// Attribute is a named, typed field within a point record.
//
// Offset and Size describe the field's position within a point's byte
// buffer. BIT attributes additionally record BitOffset, the index of the
// attribute's bit (0-7) within the shared byte at Offset.
type Attribute struct {
	Name        string
	Type        AttrType
	Offset      int
	Size        int
	BitOffset   int
	ScaleFactor float64
	ValueOffset float64
	Description string
}

// NewAttribute builds an attribute with the canonical defaults
// (scale=1, offset=0) used throughout the core when none is supplied.
func NewAttribute(name string, t AttrType) Attribute {
	return Attribute{Name: name, Type: t, ScaleFactor: 1.0, ValueOffset: 0.0}
}

// sameDefinition reports whether two attributes describe the same field,
// ignoring layout (Offset/BitOffset), per the add_attribute idempotence
// rule in spec.md §4.2.
func (a Attribute) sameDefinition(b Attribute) bool {
	return a.Name == b.Name &&
		a.Type == b.Type &&
		a.ScaleFactor == b.ScaleFactor &&
		a.ValueOffset == b.ValueOffset
}

// Decode converts a stored integer quantum into its logical value using the
// attribute's scale factor and value offset (spec.md §3 "Attribute").
func (a Attribute) Decode(q float64) float64 {
	return a.ValueOffset + a.ScaleFactor*q
}

// Encode converts a logical value back into the stored integer quantum.
func (a Attribute) Encode(v float64) float64 {
	if a.ScaleFactor == 0 {
		return v - a.ValueOffset
	}
	return (v - a.ValueOffset) / a.ScaleFactor
}

var errReservedAttribute = fmt.Errorf("attribute is part of the reserved mandatory prefix")

// ParseAttrType parses a type name as produced by AttrType.String (e.g.
// "UINT16", "FLOAT"), used by stage parameter decoding (add_attribute's
// JSON "type" field, spec.md §6 "Stage-specific keys").
func ParseAttrType(s string) (AttrType, error) {
	switch s {
	case "BIT":
		return Bit, nil
	case "UINT8":
		return Uint8, nil
	case "INT8":
		return Int8, nil
	case "UINT16":
		return Uint16, nil
	case "INT16":
		return Int16, nil
	case "UINT32":
		return Uint32, nil
	case "INT32":
		return Int32, nil
	case "UINT64":
		return Uint64, nil
	case "INT64":
		return Int64, nil
	case "FLOAT":
		return Float, nil
	case "DOUBLE":
		return Double, nil
	default:
		return NoType, fmt.Errorf("unknown attribute type %q", s)
	}
}
