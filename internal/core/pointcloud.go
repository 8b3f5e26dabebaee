package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

const initialCapacityPoints = 100_000

// PointCloud is the owning, in-memory point store (C5): a growable byte
// buffer of N points under one schema, with a 2D grid index, a 3D kd-tree,
// soft-delete semantics and the bulk mutation primitives from spec.md §4.2.
//
// All query methods (Query*, KNN, RKNN, GetPoint) are safe for concurrent
// use provided no mutating method runs at the same time (spec.md §4.2
// "Thread-safety contract"); Mu is exported so callers driving concurrent
// reads from multiple goroutines can take the read lock themselves around a
// batch of calls.
type PointCloud struct {
	Mu sync.RWMutex

	data     []byte
	npoints  int // total slots used, live + soft-deleted
	capacity int // slots currently allocated

	expectedTotal int // hint for capped geometric growth; 0 = unknown

	header *Header

	grid   *GridPartition
	kdtree *KDTree

	cursor readCursor
}

type readCursor struct {
	started   bool
	intervals []Interval
	ivIndex   int
	next      int
	inside    Shape
}

// NewPointCloud constructs an empty point cloud from header (no points
// yet), per spec.md §4.2 "Construction".
func NewPointCloud(header *Header) *PointCloud {
	applyAxisScale(header.Schema, header)
	pc := &PointCloud{header: header, capacity: initialCapacityPoints}
	if header.NumberOfPointRecords > 0 {
		pc.expectedTotal = int(header.NumberOfPointRecords)
	}
	pc.data = make([]byte, pc.capacity*pc.pointSize())
	return pc
}

// applyAxisScale copies the header's per-axis scale/offset onto the
// schema's X/Y/Z attributes, so PointView.X/Y/Z (which decode through the
// attribute's ScaleFactor/ValueOffset) read back the header's declared
// resolution instead of the schema default of 1.0/0.0.
func applyAxisScale(schema *Schema, h *Header) {
	axes := []struct {
		name           string
		scale, offset  float64
	}{
		{"X", h.ScaleX, h.OffsetX},
		{"Y", h.ScaleY, h.OffsetY},
		{"Z", h.ScaleZ, h.OffsetZ},
	}
	for _, a := range axes {
		if attr := schema.FindAttribute(a.name); attr != nil {
			attr.ScaleFactor = a.scale
			attr.ValueOffset = a.offset
		}
	}
}

// Raster is the minimal "each non-nodata cell becomes a point" source
// described in spec.md §4.2; the full raster I/O stack is an external
// GDAL-backed collaborator per §1/§6 — only this in-memory shape is needed
// to satisfy the PointCloud-from-Raster constructor.
type Raster struct {
	Cols, Rows     int
	XMin, YMax     float64
	CellX, CellY   float64
	NoData         float64
	Values         []float64 // row-major, len == Cols*Rows
}

// NewPointCloudFromRaster builds a point cloud with one point per non-nodata
// cell, z set to the cell's value (spec.md §4.2).
func NewPointCloudFromRaster(r *Raster, schema *Schema) *PointCloud {
	h := NewHeader()
	if schema != nil {
		h.Schema = schema
	}
	h.Signature = SignatureFrame
	pc := NewPointCloud(h)
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			v := r.Values[row*r.Cols+col]
			if v == r.NoData {
				continue
			}
			x := r.XMin + (float64(col)+0.5)*r.CellX
			y := r.YMax - (float64(row)+0.5)*r.CellY
			view := pc.AddPoint()
			view.SetX(x)
			view.SetY(y)
			view.SetZ(v)
			h.ExpandToInclude(x, y, v)
		}
	}
	h.NumberOfPointRecords = int64(pc.npoints)
	return pc
}

func (pc *PointCloud) pointSize() int { return pc.header.Schema.TotalPointSize }

// Header returns the point cloud's header.
func (pc *PointCloud) Header() *Header { return pc.header }

// NumPoints returns the total number of point slots (including soft-deleted
// ones); live count is pc.Header().NumberOfPointRecords after UpdateHeader.
func (pc *PointCloud) NumPoints() int { return pc.npoints }

// grow enlarges the buffer to hold at least one more point, per spec.md
// §4.2's geometric-doubling-capped-at-expected-total formula.
func (pc *PointCloud) grow() {
	newCap := pc.capacity * 2
	if pc.expectedTotal > 0 && newCap > pc.expectedTotal {
		newCap = pc.expectedTotal
	}
	if newCap <= pc.capacity {
		newCap = pc.capacity + 1
	}
	newData := make([]byte, newCap*pc.pointSize())
	copy(newData, pc.data[:pc.npoints*pc.pointSize()])
	pc.data = newData
	pc.capacity = newCap
}

// AddPoint appends a new, zeroed point slot and returns a writable view
// into it. Callers set X/Y/Z/attributes through the returned PointView.
// Indices are not added to the spatial indices until RebuildIndices runs
// (callers doing a bulk load call RebuildIndices once at the end).
func (pc *PointCloud) AddPoint() PointView {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()

	size := pc.pointSize()
	if pc.npoints*size == pc.capacity*size {
		pc.grow()
	}
	start := pc.npoints * size
	pc.npoints++
	return WrapPointView(pc.data[start:start+size], pc.header.Schema)
}

// point returns a borrowed view over point i's bytes without any locking or
// bounds checks beyond the slice itself; internal helper for methods that
// already hold Mu.
func (pc *PointCloud) point(i int) PointView {
	size := pc.pointSize()
	return WrapPointView(pc.data[i*size:(i+1)*size], pc.header.Schema)
}

// DeletePoint soft-deletes point i: sets its deleted bit and decrements the
// header's live count, without touching its bytes (spec.md §4.2,
// §8 "Soft-delete monotonicity").
func (pc *PointCloud) DeletePoint(i int) error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	if i < 0 || i >= pc.npoints {
		return fmt.Errorf("delete point %d: out of range [0,%d)", i, pc.npoints)
	}
	p := pc.point(i)
	if !p.Deleted() {
		p.SetDeleted(true)
		pc.header.NumberOfPointRecords--
	}
	return nil
}

// DeleteDeleted compacts the buffer by removing soft-deleted points, unless
// the live/total ratio is above 0.75 (spec.md §4.2: "cheap soft-delete
// stays"). After compaction the spatial indices are rebuilt.
func (pc *PointCloud) DeleteDeleted() error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()

	if pc.npoints == 0 {
		return nil
	}
	live := int(pc.header.NumberOfPointRecords)
	if float64(live)/float64(pc.npoints) > 0.75 {
		return nil
	}

	size := pc.pointSize()
	writer := 0
	for i := 0; i < pc.npoints; i++ {
		p := pc.point(i)
		if p.Deleted() {
			continue
		}
		if writer != i {
			pc.point(writer).CopyFrom(p)
		}
		writer++
	}
	pc.npoints = writer
	pc.capacity = writer
	shrunk := make([]byte, writer*size)
	copy(shrunk, pc.data[:writer*size])
	pc.data = shrunk

	pc.rebuildIndicesLocked()
	return nil
}

// AddAttribute extends the schema by attr, growing the buffer and
// rewriting every point in place, last-to-first, zero-padding the new
// attribute bytes (spec.md §4.2, §3 invariant v).
func (pc *PointCloud) AddAttribute(attr Attribute) error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	return pc.addAttributesLocked([]Attribute{attr})
}

// AddAttributes is the batched form: it computes the total added size once,
// grows once, and shifts each record once (spec.md §4.2 "add_attributes").
func (pc *PointCloud) AddAttributes(attrs []Attribute) error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	return pc.addAttributesLocked(attrs)
}

func (pc *PointCloud) addAttributesLocked(attrs []Attribute) error {
	oldSize := pc.pointSize()
	toAdd := make([]Attribute, 0, len(attrs))
	for _, a := range attrs {
		if existing := pc.header.Schema.FindAttribute(a.Name); existing != nil {
			if existing.sameDefinition(a) {
				continue
			}
			return fmt.Errorf("attribute %q already exists with a different definition", a.Name)
		}
		toAdd = append(toAdd, a)
	}
	if len(toAdd) == 0 {
		return nil
	}
	if err := pc.header.Schema.AddAttributes(toAdd); err != nil {
		return err
	}
	newSize := pc.pointSize()

	newCap := pc.capacity
	newData := make([]byte, newCap*newSize)
	for i := pc.npoints - 1; i >= 0; i-- {
		old := pc.data[i*oldSize : (i+1)*oldSize]
		copy(newData[i*newSize:i*newSize+oldSize], old)
		// bytes [oldSize:newSize) are already zero from make().
	}
	pc.data = newData
	return nil
}

// RemoveAttribute removes name from the schema, closing the gap in every
// point's bytes (spec.md §4.2 "remove_attribute").
func (pc *PointCloud) RemoveAttribute(name string) error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()

	attr := pc.header.Schema.FindAttribute(name)
	if attr == nil {
		return fmt.Errorf("attribute %q not found", name)
	}
	removedOffset, removedSize := attr.Offset, attr.Size
	isBit := attr.Type == Bit

	oldSize := pc.pointSize()
	if err := pc.header.Schema.RemoveAttribute(name); err != nil {
		return err
	}
	newSize := pc.pointSize()
	if newSize == oldSize {
		// a shared BIT byte was vacated but the byte itself stays.
		return nil
	}
	if isBit {
		// a BIT attribute has Size 0; the byte it alone occupied goes away.
		removedSize = oldSize - newSize
	}

	newData := make([]byte, pc.capacity*newSize)
	for i := 0; i < pc.npoints; i++ {
		old := pc.data[i*oldSize : (i+1)*oldSize]
		dst := newData[i*newSize : (i+1)*newSize]
		copy(dst[:removedOffset], old[:removedOffset])
		copy(dst[removedOffset:], old[removedOffset+removedSize:])
	}
	pc.data = newData
	return nil
}

// AddRGB is shorthand for adding the standard {R,G,B:INT16} triple.
func (pc *PointCloud) AddRGB() error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	return pc.addAttributesLocked([]Attribute{
		NewAttribute("R", Int16), NewAttribute("G", Int16), NewAttribute("B", Int16),
	})
}

// Sort applies permutation in-place using cycle-following (one temporary
// record), then rebuilds the spatial indices (spec.md §4.2 "Sort").
// perm[i] is the index that should end up at position i.
func (pc *PointCloud) Sort(perm []int) error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	if len(perm) != pc.npoints {
		return fmt.Errorf("sort: permutation length %d does not match %d points", len(perm), pc.npoints)
	}
	size := pc.pointSize()
	visited := make([]bool, pc.npoints)
	tmp := make([]byte, size)

	for start := 0; start < pc.npoints; start++ {
		if visited[start] {
			continue
		}
		cur := start
		copy(tmp, pc.data[cur*size:(cur+1)*size])
		for {
			src := perm[cur]
			visited[cur] = true
			if src == start {
				copy(pc.data[cur*size:(cur+1)*size], tmp)
				break
			}
			copy(pc.data[cur*size:(cur+1)*size], pc.data[src*size:(src+1)*size])
			cur = src
		}
	}
	pc.rebuildIndicesLocked()
	return nil
}

// UpdateHeader recomputes min/max_{x,y,z} and the live point count from the
// current buffer contents (spec.md §4.2 "Header update").
func (pc *PointCloud) UpdateHeader() error {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()

	h := pc.header
	h.MinX, h.MinY, h.MinZ = posInf(), posInf(), posInf()
	h.MaxX, h.MaxY, h.MaxZ = negInf(), negInf(), negInf()
	var live int64
	for i := 0; i < pc.npoints; i++ {
		p := pc.point(i)
		if p.Deleted() {
			continue
		}
		live++
		h.ExpandToInclude(p.X(), p.Y(), p.Z())
	}
	h.NumberOfPointRecords = live
	return nil
}

// RebuildIndices rebuilds the 2D grid partition and 3D kd-tree from the
// current live points. Must be called after bulk loads, sorts, and
// compaction before spatial queries are trusted.
func (pc *PointCloud) RebuildIndices() {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	pc.rebuildIndicesLocked()
}

func (pc *PointCloud) rebuildIndicesLocked() {
	h := pc.header
	resolution := GridResolution(h.NumberOfPointRecords, h.Area())
	bbox := BBox{h.MinX, h.MinY, h.MaxX, h.MaxY}
	if bbox.XMax < bbox.XMin || bbox.YMax < bbox.YMin {
		bbox = BBox{0, 0, 1, 1}
	}
	grid := NewGridPartition(bbox, resolution)
	pts := make([]kdPoint, 0, pc.npoints)
	for i := 0; i < pc.npoints; i++ {
		p := pc.point(i)
		if p.Deleted() {
			continue
		}
		grid.Insert(p.X(), p.Y(), i)
		pts = append(pts, kdPoint{idx: i, x: p.X(), y: p.Y(), z: p.Z()})
	}
	pc.grid = grid
	pc.kdtree = BuildKDTree(pts)
}

func posInf() float64 { return +1e308 }
func negInf() float64 { return -1e308 }

// --- read cursor --------------------------------------------------------

// SetInside restricts ReadPoint to points inside shape (nil clears the
// filter), per spec.md §4.2 "Reading cursor".
func (pc *PointCloud) SetInside(shape Shape) {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()
	pc.cursor = readCursor{inside: shape}
}

// ReadPoint advances the read cursor and returns the next point, skipping
// soft-deleted points unless includeDeleted is true. Returning ok=false
// ends iteration and resets the cursor for the next pass (spec.md §4.2).
func (pc *PointCloud) ReadPoint(includeDeleted bool) (view PointView, ok bool) {
	pc.Mu.Lock()
	defer pc.Mu.Unlock()

	c := &pc.cursor
	if !c.started {
		c.started = true
		if c.inside != nil {
			pc.ensureIndicesLocked()
			c.intervals = pc.grid.Query(c.inside.Bounds())
		} else {
			if pc.npoints > 0 {
				c.intervals = []Interval{{Start: 0, End: pc.npoints - 1}}
			}
		}
		c.ivIndex = 0
		if len(c.intervals) > 0 {
			c.next = c.intervals[0].Start
		}
	}

	for c.ivIndex < len(c.intervals) {
		iv := c.intervals[c.ivIndex]
		for c.next <= iv.End {
			idx := c.next
			c.next++
			p := pc.point(idx)
			if !includeDeleted && p.Deleted() {
				continue
			}
			if c.inside != nil && !c.inside.Contains(p.X(), p.Y()) {
				continue
			}
			return p, true
		}
		c.ivIndex++
		if c.ivIndex < len(c.intervals) {
			c.next = c.intervals[c.ivIndex].Start
		}
	}

	pc.cursor = readCursor{}
	return PointView{}, false
}

func (pc *PointCloud) ensureIndicesLocked() {
	if pc.grid == nil {
		pc.rebuildIndicesLocked()
	}
}

// --- spatial queries ------------------------------------------------------

// Filter is a read-only predicate applied to candidate points during
// spatial queries, in addition to the implicit non-deleted check.
type Filter func(PointView) bool

// Query returns every non-deleted point inside shape that also passes
// filter (spec.md §4.2 "query(shape, out, filter)").
func (pc *PointCloud) Query(shape Shape, filter Filter) []PointView {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	if pc.grid == nil {
		pc.Mu.RUnlock()
		pc.RebuildIndices()
		pc.Mu.RLock()
	}
	intervals := pc.grid.Query(shape.Bounds())
	return pc.collect(intervals, func(p PointView) bool {
		return shape.Contains(p.X(), p.Y()) && (filter == nil || filter(p))
	})
}

// QueryIntervals is Query's caller-supplied-intervals variant (no shape
// test).
func (pc *PointCloud) QueryIntervals(intervals []Interval, filter Filter) []PointView {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	return pc.collect(intervals, filter)
}

func (pc *PointCloud) collect(intervals []Interval, accept func(PointView) bool) []PointView {
	var candidates []PointView
	for _, iv := range intervals {
		for i := iv.Start; i <= iv.End && i < pc.npoints; i++ {
			p := pc.point(i)
			if !p.Deleted() {
				candidates = append(candidates, p)
			}
		}
	}
	if accept == nil {
		return candidates
	}
	return lo.Filter(candidates, func(p PointView, _ int) bool { return accept(p) })
}

// acceptedFn builds a KDTree-compatible predicate from a Filter, applying
// the implicit non-deleted check.
func (pc *PointCloud) acceptedFn(filter Filter) func(idx int) bool {
	return func(idx int) bool {
		p := pc.point(idx)
		if p.Deleted() {
			return false
		}
		return filter == nil || filter(p)
	}
}

// KNN returns the k nearest live points to (x,y,z) passing filter, doubling
// the search radius (k) up to the total point count when fewer than k pass
// (spec.md §4.2 "knn").
func (pc *PointCloud) KNN(x, y, z float64, k int, filter Filter) []PointView {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	if pc.kdtree == nil {
		pc.Mu.RUnlock()
		pc.RebuildIndices()
		pc.Mu.RLock()
	}
	search := k
	accept := pc.acceptedFn(filter)
	var found []neighbor
	for {
		found = pc.kdtree.KNN(x, y, z, search, accept)
		if len(found) >= k || search >= pc.npoints {
			break
		}
		search *= 2
		if search > pc.npoints {
			search = pc.npoints
		}
	}
	if len(found) > k {
		found = found[:k]
	}
	out := make([]PointView, len(found))
	for i, n := range found {
		out[i] = pc.point(n.idx)
	}
	return out
}

// RKNN is knn bounded to radius r: gather candidates within r, sort by
// distance, keep the first k (spec.md §4.2 "rknn").
func (pc *PointCloud) RKNN(x, y, z float64, k int, r float64, filter Filter) []PointView {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	if pc.kdtree == nil {
		pc.Mu.RUnlock()
		pc.RebuildIndices()
		pc.Mu.RLock()
	}
	found := pc.kdtree.RadiusSearch(x, y, z, r, pc.acceptedFn(filter))
	sort.Slice(found, func(i, j int) bool { return found[i].dist < found[j].dist })
	if len(found) > k {
		found = found[:k]
	}
	out := make([]PointView, len(found))
	for i, n := range found {
		out[i] = pc.point(n.idx)
	}
	return out
}

// QuerySphere is a pure radius search, unsorted (spec.md §4.2
// "query_sphere").
func (pc *PointCloud) QuerySphere(x, y, z, r float64, filter Filter) []PointView {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	if pc.kdtree == nil {
		pc.Mu.RUnlock()
		pc.RebuildIndices()
		pc.Mu.RLock()
	}
	found := pc.kdtree.RadiusSearch(x, y, z, r, pc.acceptedFn(filter))
	out := make([]PointView, len(found))
	for i, n := range found {
		out[i] = pc.point(n.idx)
	}
	return out
}

// GetPoint is a random-access read of point pos, subject to filter.
func (pc *PointCloud) GetPoint(pos int, filter Filter) (PointView, bool) {
	pc.Mu.RLock()
	defer pc.Mu.RUnlock()
	if pos < 0 || pos >= pc.npoints {
		return PointView{}, false
	}
	p := pc.point(pos)
	if p.Deleted() {
		return PointView{}, false
	}
	if filter != nil && !filter(p) {
		return PointView{}, false
	}
	return p, true
}
