package core

import "testing"

func TestNewSchemaMandatoryPrefix(t *testing.T) {
	s := NewSchema()
	if s.TotalPointSize != 13 { // flags(1) + X/Y/Z(4 each)
		t.Fatalf("TotalPointSize = %d, want 13", s.TotalPointSize)
	}
	for i, name := range []string{"flags", "X", "Y", "Z"} {
		if s.Attributes[i].Name != name {
			t.Fatalf("Attributes[%d].Name = %q, want %q", i, s.Attributes[i].Name, name)
		}
	}
}

func TestAddAttributeIdempotentOnSameDefinition(t *testing.T) {
	s := NewSchema()
	attr := NewAttribute("Intensity", Uint16)
	if err := s.AddAttribute(attr); err != nil {
		t.Fatalf("first add: %v", err)
	}
	size := s.TotalPointSize
	if err := s.AddAttribute(attr); err != nil {
		t.Fatalf("re-add identical definition should be a no-op, got: %v", err)
	}
	if s.TotalPointSize != size {
		t.Fatalf("re-add grew the schema: %d -> %d", size, s.TotalPointSize)
	}
}

func TestAddAttributeConflictingDefinitionErrors(t *testing.T) {
	s := NewSchema()
	if err := s.AddAttribute(NewAttribute("Intensity", Uint16)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddAttribute(NewAttribute("Intensity", Uint8)); err == nil {
		t.Fatal("expected an error re-adding Intensity with a different type")
	}
}

func TestRemoveReservedAttributeRejected(t *testing.T) {
	s := NewSchema()
	for _, name := range []string{"flags", "X", "Y", "Z"} {
		if err := s.RemoveAttribute(name); err == nil {
			t.Fatalf("expected RemoveAttribute(%q) to fail", name)
		}
	}
}

func TestBitAttributesShareAByte(t *testing.T) {
	s := NewSchema()
	size := s.TotalPointSize
	if err := s.AddAttribute(NewAttribute("Synthetic", Bit)); err != nil {
		t.Fatalf("add bit 1: %v", err)
	}
	if s.TotalPointSize != size+1 {
		t.Fatalf("first BIT attribute should grow the schema by one byte, got %d -> %d", size, s.TotalPointSize)
	}
	grown := s.TotalPointSize
	for i, name := range []string{"KeyPoint", "Withheld", "Overlap", "ScanDirection", "EdgeOfFlightLine", "Reserved6", "Reserved7"} {
		if err := s.AddAttribute(NewAttribute(name, Bit)); err != nil {
			t.Fatalf("add bit %d (%s): %v", i+2, name, err)
		}
	}
	if s.TotalPointSize != grown {
		t.Fatalf("7 more BIT attributes should still share the first byte, size grew from %d to %d", grown, s.TotalPointSize)
	}
	// an 9th bit attribute can't fit in the shared byte and must start a new one.
	if err := s.AddAttribute(NewAttribute("Overflow", Bit)); err != nil {
		t.Fatalf("add 9th bit: %v", err)
	}
	if s.TotalPointSize != grown+1 {
		t.Fatalf("9th BIT attribute should start a new byte, size %d, want %d", s.TotalPointSize, grown+1)
	}
}

func TestRemoveAttributeShiftsOffsets(t *testing.T) {
	s := NewSchema()
	if err := s.AddAttribute(NewAttribute("Intensity", Uint16)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAttribute(NewAttribute("Classification", Uint8)); err != nil {
		t.Fatal(err)
	}
	classOffsetBefore := s.FindAttribute("Classification").Offset

	if err := s.RemoveAttribute("Intensity"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	classOffsetAfter := s.FindAttribute("Classification").Offset
	if classOffsetAfter != classOffsetBefore-2 {
		t.Fatalf("Classification offset after removing a 2-byte attribute = %d, want %d",
			classOffsetAfter, classOffsetBefore-2)
	}
	if s.HasAttribute("Intensity") {
		t.Fatal("Intensity should be gone")
	}
}

func TestSchemaCloneIsIndependent(t *testing.T) {
	s := NewSchema()
	if err := s.AddAttribute(NewAttribute("Intensity", Uint16)); err != nil {
		t.Fatal(err)
	}
	clone := s.Clone()
	if err := clone.AddAttribute(NewAttribute("Classification", Uint8)); err != nil {
		t.Fatal(err)
	}
	if s.HasAttribute("Classification") {
		t.Fatal("mutating the clone should not affect the original schema")
	}
}

func TestParseAttrTypeRoundTrip(t *testing.T) {
	for _, want := range []AttrType{Bit, Uint8, Int8, Uint16, Int16, Uint32, Int32, Uint64, Int64, Float, Double} {
		got, err := ParseAttrType(want.String())
		if err != nil {
			t.Fatalf("ParseAttrType(%q): %v", want.String(), err)
		}
		if got != want {
			t.Fatalf("ParseAttrType(%q) = %v, want %v", want.String(), got, want)
		}
	}
	if _, err := ParseAttrType("NOT_A_TYPE"); err == nil {
		t.Fatal("expected an error for an unknown type name")
	}
}
