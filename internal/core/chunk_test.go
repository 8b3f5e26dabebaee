package core

import "testing"

func TestChunkBBoxAndBufferedBBox(t *testing.T) {
	c := Chunk{XMin: 0, YMin: 0, XMax: 10, YMax: 10, Buffer: 2}
	bb := c.BBox()
	if bb != (BBox{0, 0, 10, 10}) {
		t.Fatalf("BBox() = %+v, want {0,0,10,10}", bb)
	}
	buffered := c.BufferedBBox()
	if buffered != (BBox{-2, -2, 12, 12}) {
		t.Fatalf("BufferedBBox() = %+v, want {-2,-2,12,12}", buffered)
	}
}

func TestChunkValidRejectsInvertedBBox(t *testing.T) {
	c := Chunk{XMin: 10, YMin: 0, XMax: 0, YMax: 10}
	if c.valid() {
		t.Fatal("a chunk with XMin > XMax should be invalid")
	}
}

func TestChunkValidRejectsOverlappingMainAndNeighbourFiles(t *testing.T) {
	c := Chunk{
		XMin: 0, YMin: 0, XMax: 10, YMax: 10,
		MainFiles:      []string{"a.las"},
		NeighbourFiles: []string{"a.las"},
	}
	if c.valid() {
		t.Fatal("a file listed as both main and neighbour should be invalid")
	}
}

func TestChunkValidAcceptsDisjointMainAndNeighbourFiles(t *testing.T) {
	c := Chunk{
		XMin: 0, YMin: 0, XMax: 10, YMax: 10,
		MainFiles:      []string{"a.las"},
		NeighbourFiles: []string{"b.las"},
	}
	if !c.valid() {
		t.Fatal("disjoint main/neighbour files should be valid")
	}
}
