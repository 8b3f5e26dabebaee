package core

import (
	"encoding/binary"
	"math"
)

// deletedBit is the bit position of the soft-delete marker within the
// flags byte at offset 0 (spec.md §3, §9 "single-bit attribute packing").
const deletedBit = 0

// PointView is a non-owning (or owning) handle onto one point's raw bytes,
// interpreted through a Schema. It mirrors the original's lightweight Point
// struct (own_data flag + schema pointer), generalized into a Go value type
// that can wrap either a borrowed slice (a window into a PointCloud's
// buffer) or an owned one (a single detached point).
type PointView struct {
	data   []byte
	schema *Schema
}

// NewPointView allocates a new, zeroed, owned point for schema.
func NewPointView(schema *Schema) PointView {
	return PointView{data: make([]byte, schema.TotalPointSize), schema: schema}
}

// WrapPointView returns a view over an existing (borrowed) byte slice,
// which must be exactly schema.TotalPointSize long.
func WrapPointView(data []byte, schema *Schema) PointView {
	return PointView{data: data, schema: schema}
}

// Bytes returns the point's raw backing buffer.
func (p PointView) Bytes() []byte { return p.data }

// Schema returns the schema this view interprets its bytes through.
func (p PointView) Schema() *Schema { return p.schema }

// Deleted reports whether the point's soft-delete bit is set.
func (p PointView) Deleted() bool {
	return p.data[0]&(1<<deletedBit) != 0
}

// SetDeleted sets or clears the soft-delete bit.
func (p PointView) SetDeleted(v bool) {
	if v {
		p.data[0] |= 1 << deletedBit
	} else {
		p.data[0] &^= 1 << deletedBit
	}
}

// scaledAxis reads the raw INT32 quantum at an attribute and applies its
// scale/offset, used for the fixed X/Y/Z accessors.
func (p PointView) scaledAxis(name string) float64 {
	attr := p.schema.FindAttribute(name)
	q := int32(binary.LittleEndian.Uint32(p.data[attr.Offset : attr.Offset+4]))
	return attr.Decode(float64(q))
}

func (p PointView) setScaledAxis(name string, value float64) {
	attr := p.schema.FindAttribute(name)
	q := int32(math.Round(attr.Encode(value)))
	binary.LittleEndian.PutUint32(p.data[attr.Offset:attr.Offset+4], uint32(q))
}

// X returns the point's logical X coordinate.
func (p PointView) X() float64 { return p.scaledAxis("X") }

// Y returns the point's logical Y coordinate.
func (p PointView) Y() float64 { return p.scaledAxis("Y") }

// Z returns the point's logical Z coordinate.
func (p PointView) Z() float64 { return p.scaledAxis("Z") }

// SetX sets the point's logical X coordinate.
func (p PointView) SetX(v float64) { p.setScaledAxis("X", v) }

// SetY sets the point's logical Y coordinate.
func (p PointView) SetY(v float64) { p.setScaledAxis("Y", v) }

// SetZ sets the point's logical Z coordinate.
func (p PointView) SetZ(v float64) { p.setScaledAxis("Z", v) }

// GetBit returns the boolean value of a BIT attribute.
func (p PointView) GetBit(name string) bool {
	attr := p.schema.FindAttribute(name)
	return p.data[attr.Offset]&(1<<uint(attr.BitOffset)) != 0
}

// SetBit sets a BIT attribute's value.
func (p PointView) SetBit(name string, v bool) {
	attr := p.schema.FindAttribute(name)
	if v {
		p.data[attr.Offset] |= 1 << uint(attr.BitOffset)
	} else {
		p.data[attr.Offset] &^= 1 << uint(attr.BitOffset)
	}
}

// GetRaw reads the raw stored value (pre scale/offset) of a non-BIT
// attribute, integer or floating, as a float64, switching on its wire type.
func (p PointView) GetRaw(name string) float64 {
	attr := p.schema.FindAttribute(name)
	b := p.data[attr.Offset : attr.Offset+attr.Size]
	switch attr.Type {
	case Uint8:
		return float64(b[0])
	case Int8:
		return float64(int8(b[0]))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		return 0
	}
}

// SetRaw writes the raw stored integer quantum (pre scale/offset) for a
// non-BIT attribute.
func (p PointView) SetRaw(name string, v float64) {
	attr := p.schema.FindAttribute(name)
	b := p.data[attr.Offset : attr.Offset+attr.Size]
	switch attr.Type {
	case Uint8:
		b[0] = byte(uint8(v))
	case Int8:
		b[0] = byte(int8(v))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Double:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

// Value returns an attribute's logical (scaled) value.
func (p PointView) Value(name string) float64 {
	attr := p.schema.FindAttribute(name)
	return attr.Decode(p.GetRaw(name))
}

// SetValue writes an attribute's logical (scaled) value.
func (p PointView) SetValue(name string, v float64) {
	attr := p.schema.FindAttribute(name)
	p.SetRaw(name, attr.Encode(v))
}

// CopyFrom copies the full point record from other. Both must share the
// same schema/size (used by Sort and DeleteDeleted compaction).
func (p PointView) CopyFrom(other PointView) {
	copy(p.data, other.data)
}
