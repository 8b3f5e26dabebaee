package core

// Chunk is one spatial work unit: a bbox plus shape plus buffer plus the
// files that carry its points (main) and surrounding context (neighbour)
// (spec.md §3 "Chunk").
type Chunk struct {
	ID   int
	Name string

	XMin, YMin, XMax, YMax float64
	Buffer                 float64
	Shape                  ShapeKind
	Process                bool

	MainFiles      []string
	NeighbourFiles []string
}

// BBox returns the chunk's main bounding box.
func (c Chunk) BBox() BBox {
	return BBox{c.XMin, c.YMin, c.XMax, c.YMax}
}

// BufferedBBox returns the chunk's bbox expanded by its buffer distance.
func (c Chunk) BufferedBBox() BBox {
	return c.BBox().Expand(c.Buffer)
}

// valid checks Chunk invariants (i)-(ii) from spec.md §3.
func (c Chunk) valid() bool {
	if c.XMin > c.XMax || c.YMin > c.YMax {
		return false
	}
	seen := make(map[string]bool, len(c.MainFiles))
	for _, f := range c.MainFiles {
		seen[f] = true
	}
	for _, f := range c.NeighbourFiles {
		if seen[f] {
			return false
		}
	}
	return true
}
