package core

import "sort"

// GridResolution derives the 2D grid index's cell size from point density,
// per the thresholds in spec.md §4.2.
func GridResolution(numPoints int64, area float64) float64 {
	if area <= 0 || numPoints <= 0 {
		return 1
	}
	density := float64(numPoints) / area
	switch {
	case density <= 1:
		return 10
	case density <= 5:
		return 5
	case density <= 10:
		return 2
	case density <= 50:
		return 1
	case density <= 100:
		return 0.5
	default:
		return 0.25
	}
}

// GridPartition maps 2D cell ids to the sorted, coalesced list of point
// index intervals whose points fall in that cell (spec.md §3 "Point
// cloud" invariant ii, §4.2 "2D grid index resolution", and the original's
// FastGridPartition2D — SPEC_FULL.md §E4).
type GridPartition struct {
	resolution     float64
	minX, minY     float64
	cols, rows     int
	cells          map[int64][]Interval
}

// NewGridPartition builds an empty partition covering bbox at the given
// cell resolution.
func NewGridPartition(bbox BBox, resolution float64) *GridPartition {
	if resolution <= 0 {
		resolution = 1
	}
	cols := int(bbox.Width()/resolution) + 1
	rows := int(bbox.Height()/resolution) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &GridPartition{
		resolution: resolution,
		minX:       bbox.XMin,
		minY:       bbox.YMin,
		cols:       cols,
		rows:       rows,
		cells:      make(map[int64][]Interval),
	}
}

// Width reports bb.XMax-bb.XMin. These BBox methods live in this file
// rather than in shape.go to keep shape.go focused on pure geometry
// predicates.
func (bb BBox) Width() float64  { return bb.XMax - bb.XMin }
func (bb BBox) Height() float64 { return bb.YMax - bb.YMin }

// cellID returns the flattened row-major id of the cell containing (x, y).
func (g *GridPartition) cellID(x, y float64) int64 {
	col := int((x - g.minX) / g.resolution)
	row := int((y - g.minY) / g.resolution)
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	if col >= g.cols {
		col = g.cols - 1
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	return int64(row)*int64(g.cols) + int64(col)
}

// Insert registers point index idx at (x, y), coalescing it into the
// preceding interval when idx is exactly one past the cell's last inserted
// index (spec.md §4.2: "insert coalesces consecutive indices into one
// interval"). Callers must insert indices in ascending order per cell for
// coalescing to take effect; PointCloud always builds indices this way.
func (g *GridPartition) Insert(x, y float64, idx int) {
	id := g.cellID(x, y)
	intervals := g.cells[id]
	if n := len(intervals); n > 0 && intervals[n-1].End == idx-1 {
		intervals[n-1].End = idx
		return
	}
	g.cells[id] = append(intervals, Interval{Start: idx, End: idx})
}

// cellsOverlapping returns the cell ids whose cell-bbox intersects bbox.
func (g *GridPartition) cellsOverlapping(bbox BBox) []int64 {
	c0 := int((bbox.XMin - g.minX) / g.resolution)
	c1 := int((bbox.XMax - g.minX) / g.resolution)
	r0 := int((bbox.YMin - g.minY) / g.resolution)
	r1 := int((bbox.YMax - g.minY) / g.resolution)
	if c0 < 0 {
		c0 = 0
	}
	if r0 < 0 {
		r0 = 0
	}
	if c1 >= g.cols {
		c1 = g.cols - 1
	}
	if r1 >= g.rows {
		r1 = g.rows - 1
	}
	var ids []int64
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if c < 0 || r < 0 {
				continue
			}
			ids = append(ids, int64(r)*int64(g.cols)+int64(c))
		}
	}
	return ids
}

// Query returns the ascending, de-duplicated, merged list of intervals
// whose cells overlap bbox.
func (g *GridPartition) Query(bbox BBox) []Interval {
	var all []Interval
	for _, id := range g.cellsOverlapping(bbox) {
		all = append(all, g.cells[id]...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	merged := all[:1]
	for _, iv := range all[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
