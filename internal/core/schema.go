package core

import "fmt"

// Schema is the ordered collection of attributes making up one point
// record, plus the cached total byte size of a record.
//
// The mandatory prefix {flags:UINT8, X:INT32, Y:INT32, Z:INT32} is always
// present as attributes 0-3, at byte offsets 0, 1, 5 and 9 (spec.md §3
// invariant v): flags first so its low
// bit can carry the soft-delete marker, X/Y/Z next at fixed positions for
// fast access.
type Schema struct {
	Attributes     []Attribute
	TotalPointSize int
}

// reserved names that can never be removed via RemoveAttribute (spec.md §7,
// configuration error kind: "removing reserved attributes").
var reservedNames = map[string]bool{"flags": true, "X": true, "Y": true, "Z": true}

// NewSchema builds a schema carrying only the mandatory prefix.
func NewSchema() *Schema {
	s := &Schema{}
	s.appendUnchecked(NewAttribute("flags", Uint8))
	s.appendUnchecked(NewAttribute("X", Int32))
	s.appendUnchecked(NewAttribute("Y", Int32))
	s.appendUnchecked(NewAttribute("Z", Int32))
	return s
}

// FindAttribute returns the attribute named name, or nil.
func (s *Schema) FindAttribute(name string) *Attribute {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return &s.Attributes[i]
		}
	}
	return nil
}

// HasAttribute reports whether name is present in the schema.
func (s *Schema) HasAttribute(name string) bool {
	return s.FindAttribute(name) != nil
}

// IndexOf returns the slice index of the named attribute, or -1.
func (s *Schema) IndexOf(name string) int {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return i
		}
	}
	return -1
}

// appendUnchecked extends the schema with attr without checking for an
// existing definition; used by NewSchema and by AddAttribute once it has
// already validated there's no conflict.
func (s *Schema) appendUnchecked(attr Attribute) {
	if attr.Type == Bit {
		if last := s.lastFlagByte(); last != nil && last.BitOffset < 7 {
			attr.Offset = last.Offset
			attr.BitOffset = last.BitOffset + 1
		} else {
			attr.Offset = s.TotalPointSize
			attr.BitOffset = 0
			s.TotalPointSize++
		}
		attr.Size = 0
	} else {
		attr.Offset = s.TotalPointSize
		attr.Size = attr.Type.byteSize()
		s.TotalPointSize += attr.Size
	}
	s.Attributes = append(s.Attributes, attr)
}

// lastFlagByte returns the most recently appended BIT attribute if the very
// last attribute in the schema is itself a BIT attribute (so a new BIT
// field can still share its byte), else nil.
func (s *Schema) lastFlagByte() *Attribute {
	if len(s.Attributes) == 0 {
		return nil
	}
	last := &s.Attributes[len(s.Attributes)-1]
	if last.Type != Bit {
		return nil
	}
	return last
}

// AddAttribute extends the schema with attr. Re-adding an attribute with an
// identical definition is a no-op; re-adding one with the same name but a
// different definition is an error (spec.md §8 boundary behaviors).
func (s *Schema) AddAttribute(attr Attribute) error {
	if existing := s.FindAttribute(attr.Name); existing != nil {
		if existing.sameDefinition(attr) {
			return nil
		}
		return fmt.Errorf("attribute %q already exists with a different definition", attr.Name)
	}
	s.appendUnchecked(attr)
	return nil
}

// AddAttributes is the batched form of AddAttribute, for callers that want
// add_attribute semantics one at a time without a bulk buffer rewrite;
// PointCloud.AddAttributes performs the single bulk shift.
func (s *Schema) AddAttributes(attrs []Attribute) error {
	for _, a := range attrs {
		if err := s.AddAttribute(a); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAttribute drops name from the schema, shifting subsequent offsets
// down by the removed attribute's size and shrinking TotalPointSize.
// Removing a mandatory-prefix attribute is rejected (spec.md §7).
func (s *Schema) RemoveAttribute(name string) error {
	if reservedNames[name] {
		return fmt.Errorf("remove attribute %q: %w", name, errReservedAttribute)
	}
	idx := s.IndexOf(name)
	if idx < 0 {
		return fmt.Errorf("attribute %q not found", name)
	}
	removed := s.Attributes[idx]

	if removed.Type == Bit {
		// A BIT attribute vacates a bit but the shared byte only shrinks
		// the record when it was the only bit using that byte.
		byteStillUsed := false
		for i, a := range s.Attributes {
			if i != idx && a.Type == Bit && a.Offset == removed.Offset {
				byteStillUsed = true
				break
			}
		}
		s.Attributes = append(s.Attributes[:idx], s.Attributes[idx+1:]...)
		if !byteStillUsed {
			s.shiftOffsetsAfter(removed.Offset, 1)
			s.TotalPointSize--
		}
		return nil
	}

	s.Attributes = append(s.Attributes[:idx], s.Attributes[idx+1:]...)
	s.shiftOffsetsAfter(removed.Offset, removed.Size)
	s.TotalPointSize -= removed.Size
	return nil
}

// shiftOffsetsAfter decrements the offset of every attribute positioned
// after cutAt by size bytes.
func (s *Schema) shiftOffsetsAfter(cutAt, size int) {
	for i := range s.Attributes {
		if s.Attributes[i].Offset > cutAt {
			s.Attributes[i].Offset -= size
		}
	}
}

// AddRGB is shorthand for adding the standard {R,G,B:INT16} triple
// (spec.md §4.2 "add_rgb").
func (s *Schema) AddRGB() error {
	for _, name := range []string{"R", "G", "B"} {
		if err := s.AddAttribute(NewAttribute(name, Int16)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the schema, used when cloning a PointCloud
// or a pipeline stage that owns schema state.
func (s *Schema) Clone() *Schema {
	out := &Schema{TotalPointSize: s.TotalPointSize}
	out.Attributes = append([]Attribute(nil), s.Attributes...)
	return out
}
