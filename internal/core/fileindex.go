package core

import "github.com/dhconnelly/rtreego"

// FileIndex is a 2D bbox→file-id spatial index over input files (C6),
// grounded directly on the teacher's rtreego-backed ChartIndex
// (pkg/s57/index.go) — same "wrap rtreego.Rtree, store a lightweight entry
// slice, Bounds() satisfying rtreego.Spatial, SearchIntersect for queries"
// shape, ported from geographic lon/lat rectangles to CRS-linear x/y ones.
type FileIndex struct {
	tree    *rtreego.Rtree
	entries []fileIndexEntry
}

type fileIndexEntry struct {
	fileID int
	bbox   BBox
}

// Bounds satisfies rtreego.Spatial.
func (e fileIndexEntry) Bounds() rtreego.Rect {
	lengths := []float64{
		nonZero(e.bbox.XMax - e.bbox.XMin),
		nonZero(e.bbox.YMax - e.bbox.YMin),
	}
	rect, _ := rtreego.NewRect(rtreego.Point{e.bbox.XMin, e.bbox.YMin}, lengths)
	return rect
}

// nonZero guards against rtreego.NewRect rejecting a zero-length side
// (a file whose bbox collapses to a point or a line).
func nonZero(v float64) float64 {
	if v <= 0 {
		return 1e-9
	}
	return v
}

// NewFileIndex builds an index over bboxes, where bboxes[i] is the i-th
// file's bounding box.
func NewFileIndex(bboxes []BBox) *FileIndex {
	idx := &FileIndex{tree: rtreego.NewTree(2, 25, 50)}
	idx.entries = make([]fileIndexEntry, len(bboxes))
	for i, bb := range bboxes {
		e := fileIndexEntry{fileID: i, bbox: bb}
		idx.entries[i] = e
		idx.tree.Insert(e)
	}
	return idx
}

// Overlap returns the file ids whose bbox intersects query.
func (idx *FileIndex) Overlap(query BBox) []int {
	lengths := []float64{nonZero(query.XMax - query.XMin), nonZero(query.YMax - query.YMin)}
	rect, _ := rtreego.NewRect(rtreego.Point{query.XMin, query.YMin}, lengths)
	hits := idx.tree.SearchIntersect(rect)
	ids := make([]int, 0, len(hits))
	for _, h := range hits {
		e := h.(fileIndexEntry)
		// rtreego's rectangle intersection already includes the 1e-9
		// padding from nonZero; re-check against the true bbox so a file
		// whose padded rect just grazes query isn't reported as a hit.
		if e.bbox.Intersects(query) {
			ids = append(ids, e.fileID)
		}
	}
	return ids
}
