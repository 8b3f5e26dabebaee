package core

import (
	"strings"
	"testing"
)

const samplePCDHeader = `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS x y z intensity classification
SIZE 4 4 4 4 1
TYPE F F F F U
COUNT 1 1 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
0 0 0 100 2
1 1 1 150 2
2 2 2 200 6
`

func TestReadPCDHeaderParsesFields(t *testing.T) {
	h, err := ReadPCDHeader(strings.NewReader(samplePCDHeader))
	if err != nil {
		t.Fatalf("ReadPCDHeader: %v", err)
	}
	if h.Version != "0.7" {
		t.Fatalf("Version = %q, want 0.7", h.Version)
	}
	wantFields := []string{"x", "y", "z", "intensity", "classification"}
	if len(h.Fields) != len(wantFields) {
		t.Fatalf("Fields = %v, want %v", h.Fields, wantFields)
	}
	for i, f := range wantFields {
		if h.Fields[i] != f {
			t.Fatalf("Fields[%d] = %q, want %q", i, h.Fields[i], f)
		}
	}
	if h.Points != 3 {
		t.Fatalf("Points = %d, want 3", h.Points)
	}
	if h.DataFormat != "ascii" {
		t.Fatalf("DataFormat = %q, want ascii", h.DataFormat)
	}
	if h.HeaderBytes == 0 {
		t.Fatal("HeaderBytes should be set once the DATA line is consumed")
	}
}

func TestReadPCDHeaderRejectsMissingDataLine(t *testing.T) {
	truncated := "VERSION 0.7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 1\nHEIGHT 1\nPOINTS 1\n"
	if _, err := ReadPCDHeader(strings.NewReader(truncated)); err == nil {
		t.Fatal("expected an error for a header with no DATA line")
	}
}

func TestReadPCDHeaderRejectsUnsupportedDataFormat(t *testing.T) {
	bad := strings.Replace(samplePCDHeader, "DATA ascii", "DATA weird", 1)
	if _, err := ReadPCDHeader(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for an unsupported DATA format")
	}
}

func TestSchemaFromPCDMapsFieldsAndSkipsAxes(t *testing.T) {
	h, err := ReadPCDHeader(strings.NewReader(samplePCDHeader))
	if err != nil {
		t.Fatal(err)
	}
	schema, err := SchemaFromPCD(h)
	if err != nil {
		t.Fatalf("SchemaFromPCD: %v", err)
	}
	if !schema.HasAttribute("Intensity") {
		t.Fatal("expected an Intensity attribute mapped from the PCD 'intensity' field")
	}
	if !schema.HasAttribute("Classification") {
		t.Fatal("expected a Classification attribute mapped from the PCD 'classification' field")
	}
	if attr := schema.FindAttribute("Intensity"); attr.Type != Float {
		t.Fatalf("Intensity type = %v, want Float", attr.Type)
	}
	if attr := schema.FindAttribute("Classification"); attr.Type != Uint8 {
		t.Fatalf("Classification type = %v, want Uint8", attr.Type)
	}
}

func TestSchemaFromPCDDoesNotDuplicateMandatoryAxes(t *testing.T) {
	h, err := ReadPCDHeader(strings.NewReader(samplePCDHeader))
	if err != nil {
		t.Fatal(err)
	}
	schema, err := SchemaFromPCD(h)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, a := range schema.Attributes {
		if a.Name == "X" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("schema has %d X attributes, want exactly 1 (the mandatory prefix's)", count)
	}
}
