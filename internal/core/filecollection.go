package core

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// HeaderOpener reads a native point-cloud file's header without reading
// points. It is the external collaborator boundary for the LAS/LAZ/PCD
// codecs (spec.md §1/§6 Non-goals): core never parses point-cloud bytes
// itself, it only asks a caller-supplied opener for the header.
type HeaderOpener interface {
	OpenHeader(path string) (*Header, error)
}

// QueryKind selects how a registered Query narrows the chunk plan.
type QueryKind int

const (
	QueryRectangle QueryKind = iota
	QueryCircle
)

// Query is one caller-registered chunk-plan override (spec.md §4.1 "Query
// registration").
type Query struct {
	Kind   QueryKind
	Rect   BBox
	CenterX, CenterY, Radius float64
}

func (q Query) bounds() BBox {
	if q.Kind == QueryCircle {
		return BBox{q.CenterX - q.Radius, q.CenterY - q.Radius, q.CenterX + q.Radius, q.CenterY + q.Radius}
	}
	return q.Rect
}

func (q Query) shapeKind() ShapeKind {
	if q.Kind == QueryCircle {
		return ShapeCircle
	}
	return ShapeRectangle
}

func (q Query) contains(x, y float64) bool {
	if q.Kind == QueryCircle {
		return Circle{q.CenterX, q.CenterY, q.Radius}.Contains(x, y)
	}
	return Rectangle{q.Rect}.Contains(x, y)
}

// fileEntry is one ingested input file plus its parsed header and
// noprocess flag.
type fileEntry struct {
	path      string
	header    *Header
	noprocess bool
}

// FileCollection is C7: the union bbox, parallel file/header/noprocess
// vectors, the 2D file-bbox index, buffer distance, chunk-size override,
// registered queries, and the single retained CRS (spec.md §3 "File
// collection"). Grounded on the teacher's Catalog (pkg/s57/catalog.go),
// which owns the same shape — a path list, a parallel region/header list,
// and an rtreego-backed index built over it — generalized from S-57
// ENC cells to arbitrary point-cloud files.
type FileCollection struct {
	files     []fileEntry
	union     BBox
	index     *FileIndex
	signature Signature
	crs       string

	buffer    float64
	chunkSize float64
	queries   []Query

	warnings []Warning
}

// NewFileCollection classifies and ingests paths (spec.md §4.1
// "Inputs"/"Construction"), using opener to read each native file's
// header. A single .vpc manifest among paths is handled via its own
// ingestion path and may not be mixed with anything else.
func NewFileCollection(paths []string, opener HeaderOpener) (*FileCollection, error) {
	if len(paths) == 0 {
		return nil, newInputShapeErrorf("empty input")
	}

	expanded, vpcPath, err := classifyInputs(paths)
	if err != nil {
		return nil, err
	}

	fc := &FileCollection{union: degenerateBBox()}

	if vpcPath != "" {
		if len(paths) != 1 {
			return nil, newInputShapeErrorf("a VPC manifest must be the only input")
		}
		entries, err := ReadVPC(vpcPath)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, newInputShapeErrorf("vpc %s: no features", vpcPath)
		}
		for _, e := range entries {
			h := NewHeader()
			h.MinX, h.MinY, h.MaxX, h.MaxY = e.BBox.XMin, e.BBox.YMin, e.BBox.XMax, e.BBox.YMax
			h.MinZ, h.MaxZ = e.MinZ, e.MaxZ
			h.NumberOfPointRecords = e.Count
			h.CRS = e.CRS
			h.SpatialIndex = e.Indexed
			h.Signature = SignatureLAS
			if e.Count == 0 {
				fc.warnings = append(fc.warnings, Warning{Reason: fmt.Sprintf("%s: zero points, skipped", e.Path)})
				continue
			}
			fc.ingest(e.Path, h, false)
		}
	} else {
		if opener == nil {
			return nil, newConfigurationErrorf("file collection: no header opener supplied")
		}
		for _, p := range expanded {
			h, err := opener.OpenHeader(p)
			if err != nil {
				return nil, fmt.Errorf("open header %s: %w", p, err)
			}
			if h.NumberOfPointRecords == 0 {
				fc.warnings = append(fc.warnings, Warning{Reason: fmt.Sprintf("%s: zero points, skipped", p)})
				continue
			}
			fc.ingest(p, h, false)
		}
	}

	if len(fc.files) == 0 {
		return nil, newInputShapeErrorf("no non-empty input files")
	}
	if err := fc.checkUniformity(); err != nil {
		return nil, err
	}
	fc.rebuildIndex()
	return fc, nil
}

func degenerateBBox() BBox {
	return BBox{posInf(), posInf(), negInf(), negInf()}
}

func (fc *FileCollection) ingest(path string, h *Header, noprocess bool) {
	fc.files = append(fc.files, fileEntry{path: path, header: h, noprocess: noprocess})
	if h.MinX < fc.union.XMin {
		fc.union.XMin = h.MinX
	}
	if h.MinY < fc.union.YMin {
		fc.union.YMin = h.MinY
	}
	if h.MaxX > fc.union.XMax {
		fc.union.XMax = h.MaxX
	}
	if h.MaxY > fc.union.YMax {
		fc.union.YMax = h.MaxY
	}
}

func (fc *FileCollection) checkUniformity() error {
	first := fc.files[0].header
	fc.signature = first.Signature
	fc.crs = first.CRS
	mixedCRS := false
	for _, f := range fc.files[1:] {
		if f.header.Signature != fc.signature {
			return newInputShapeErrorf("impossible to mix different file formats")
		}
		if f.header.CRS != fc.crs {
			mixedCRS = true
		}
	}
	if mixedCRS {
		fc.warnings = append(fc.warnings, Warning{Reason: "input files have mixed CRS; retaining the first file's CRS"})
	}
	return nil
}

func (fc *FileCollection) rebuildIndex() {
	bboxes := make([]BBox, len(fc.files))
	for i, f := range fc.files {
		bboxes[i] = BBox{f.header.MinX, f.header.MinY, f.header.MaxX, f.header.MaxY}
	}
	fc.index = NewFileIndex(bboxes)
}

// classifyInputs expands paths per spec.md §4.1 "Inputs": directories
// (expanded non-recursively), .vpc manifests (must be sole input, returned
// separately), .lax/.LAX companions (skipped silently), regular point-cloud
// files (kept), missing paths and anything else (hard errors).
func classifyInputs(paths []string) (files []string, vpcPath string, err error) {
	var vpcCount int
	for _, p := range paths {
		info, statErr := os.Stat(p)
		if statErr != nil {
			return nil, "", newInputShapeErrorf("input path not found: %s", p)
		}
		if info.IsDir() {
			entries, readErr := os.ReadDir(p)
			if readErr != nil {
				return nil, "", newInputShapeErrorf("cannot read directory %s: %v", p, readErr)
			}
			if len(entries) == 0 {
				return nil, "", newInputShapeErrorf("empty directory: %s", p)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				full := filepath.Join(p, e.Name())
				kind := classifyExt(full)
				switch kind {
				case kindSkip:
					continue
				case kindVPC:
					vpcCount++
					vpcPath = full
				case kindOther:
					return nil, "", newInputShapeErrorf("unsupported input: %s", full)
				default:
					files = append(files, full)
				}
			}
			continue
		}

		switch classifyExt(p) {
		case kindSkip:
			continue
		case kindVPC:
			vpcCount++
			vpcPath = p
		case kindOther:
			return nil, "", newInputShapeErrorf("unsupported input: %s", p)
		default:
			files = append(files, p)
		}
	}
	if vpcCount > 0 && (len(files) > 0 || vpcCount > 1) {
		return nil, "", newInputShapeErrorf("a VPC manifest must be the only input")
	}
	return files, vpcPath, nil
}

type inputKind int

const (
	kindData inputKind = iota
	kindVPC
	kindSkip
	kindOther
)

func classifyExt(path string) inputKind {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".las", ".laz", ".pcd":
		return kindData
	case ".vpc":
		return kindVPC
	case ".lax":
		return kindSkip
	default:
		return kindOther
	}
}

// Warnings returns the warnings accumulated so far (construction, chunk
// enumeration).
func (fc *FileCollection) Warnings() []Warning { return fc.warnings }

// UnionBBox returns the collection's running union bbox.
func (fc *FileCollection) UnionBBox() BBox { return fc.union }

// CRS returns the retained CRS (spec.md §3 invariant ii).
func (fc *FileCollection) CRS() string { return fc.crs }

// NumFiles returns the number of ingested (non-skipped, non-empty) files.
func (fc *FileCollection) NumFiles() int { return len(fc.files) }

// FilePath returns the i-th file's path.
func (fc *FileCollection) FilePath(i int) string { return fc.files[i].path }

// FileHeader returns the i-th file's header.
func (fc *FileCollection) FileHeader(i int) *Header { return fc.files[i].header }

// SetBuffer sets the buffer distance used when enumerating chunks.
func (fc *FileCollection) SetBuffer(d float64) { fc.buffer = d }

// SetChunkSize sets a uniform chunk-size override. It is incompatible with
// registered queries (spec.md §4.1 invariant iii); the conflict is
// reported by EnumerateChunks, not here, since either call may come first.
func (fc *FileCollection) SetChunkSize(s float64) { fc.chunkSize = s }

// AddQuery registers a rectangle or circle query overriding the default
// chunk plan.
func (fc *FileCollection) AddQuery(q Query) { fc.queries = append(fc.queries, q) }

// AnyFileUnindexed reports whether at least one ingested file lacks a
// spatial index, used by the engine's on-the-fly-lax prepend decision
// (spec.md §4.1 "Spatial-index availability").
func (fc *FileCollection) AnyFileUnindexed() bool {
	for _, f := range fc.files {
		if !f.header.SpatialIndex {
			return true
		}
	}
	return false
}

// NeedsLaxIndexer reports whether the engine should prepend an
// on-the-fly-lax stage before running this collection's chunks, per
// spec.md §4.1: "multi_files ∧ buffer > 0 ∧ any_file_unindexed, or
// queries_present ∧ any_file_unindexed".
func (fc *FileCollection) NeedsLaxIndexer() bool {
	if !fc.AnyFileUnindexed() {
		return false
	}
	multiFiles := len(fc.files) > 1
	return (multiFiles && fc.buffer > 0) || len(fc.queries) > 0
}

// EnumerateChunks builds the chunk plan (spec.md §4.1 "Chunk enumeration").
func (fc *FileCollection) EnumerateChunks() ([]Chunk, error) {
	if len(fc.queries) > 0 && fc.chunkSize > 0 {
		return nil, newConfigurationErrorf("chunk_size is incompatible with registered queries")
	}

	if len(fc.queries) == 0 && fc.chunkSize <= 0 {
		return fc.chunksPerFile(), nil
	}

	queries := fc.queries
	if len(queries) == 0 {
		queries = fc.gridQueries(fc.chunkSize)
	}
	return fc.chunksFromQueries(queries), nil
}

// chunksPerFile implements the no-queries, no-chunk-size plan: one chunk
// per file, in input order.
func (fc *FileCollection) chunksPerFile() []Chunk {
	chunks := make([]Chunk, 0, len(fc.files))
	for i, f := range fc.files {
		bb := BBox{f.header.MinX, f.header.MinY, f.header.MaxX, f.header.MaxY}.ClipTo(fc.union)
		c := Chunk{
			ID:      i,
			Name:    stem(f.path),
			XMin:    bb.XMin, YMin: bb.YMin, XMax: bb.XMax, YMax: bb.YMax,
			Buffer:  fc.buffer,
			Shape:   ShapeRectangle,
			Process: !f.noprocess,
			MainFiles: []string{f.path},
		}
		c.NeighbourFiles = fc.neighboursOf(c, i)
		chunks = append(chunks, c)
	}
	return chunks
}

// gridQueries builds a uniform grid of rectangular queries over the union
// bbox with cell size s, keeping only cells overlapping some file bbox
// (spec.md §4.1 "With chunk size s").
func (fc *FileCollection) gridQueries(s float64) []Query {
	var queries []Query
	cols := int(math.Ceil((fc.union.XMax - fc.union.XMin) / s))
	rows := int(math.Ceil((fc.union.YMax - fc.union.YMin) / s))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			cell := BBox{
				XMin: fc.union.XMin + float64(col)*s,
				YMin: fc.union.YMin + float64(row)*s,
				XMax: fc.union.XMin + float64(col+1)*s,
				YMax: fc.union.YMin + float64(row+1)*s,
			}
			if len(fc.index.Overlap(cell)) == 0 {
				continue
			}
			queries = append(queries, Query{Kind: QueryRectangle, Rect: cell})
		}
	}
	return queries
}

// chunksFromQueries implements the "with queries" plan.
func (fc *FileCollection) chunksFromQueries(queries []Query) []Chunk {
	chunks := make([]Chunk, 0, len(queries))
	for i, q := range queries {
		bufferedBounds := q.bounds().Expand(fc.buffer)
		hits := fc.index.Overlap(bufferedBounds)

		bb := q.bounds().ClipTo(fc.union)
		c := Chunk{
			ID:     i,
			XMin:   bb.XMin, YMin: bb.YMin, XMax: bb.XMax, YMax: bb.YMax,
			Buffer: fc.buffer,
			Shape:  q.shapeKind(),
			Process: true,
		}

		switch len(hits) {
		case 0:
			fc.warnings = append(fc.warnings, Warning{Reason: fmt.Sprintf("query %d: no files overlap, emitting empty chunk", i)})
		case 1:
			c.MainFiles = []string{fc.files[hits[0]].path}
			c.Name = fmt.Sprintf("%s_%d", stem(fc.files[hits[0]].path), i)
		default:
			c.MainFiles = make([]string, len(hits))
			for j, h := range hits {
				c.MainFiles[j] = fc.files[h].path
			}
			c.Name = fmt.Sprintf("%s_%d", fc.centroidFileStem(q, hits), i)
		}

		if fc.buffer > 0 {
			mainSet := make(map[string]bool, len(c.MainFiles))
			for _, f := range c.MainFiles {
				mainSet[f] = true
			}
			for _, h := range hits {
				p := fc.files[h].path
				if !mainSet[p] {
					c.NeighbourFiles = append(c.NeighbourFiles, p)
				}
			}
		}

		chunks = append(chunks, c)
	}
	return chunks
}

// centroidFileStem names a multi-hit chunk after the file containing the
// query's centroid, falling back to the first hit.
func (fc *FileCollection) centroidFileStem(q Query, hits []int) string {
	cx, cy := q.bounds().Centroid()
	for _, h := range hits {
		hdr := fc.files[h].header
		bb := BBox{hdr.MinX, hdr.MinY, hdr.MaxX, hdr.MaxY}
		if (Rectangle{bb}).Contains(cx, cy) {
			return stem(fc.files[h].path)
		}
	}
	return stem(fc.files[hits[0]].path)
}

// neighboursOf returns the paths of files (other than the one at
// mainIndex) whose bbox overlaps c's buffered bbox.
func (fc *FileCollection) neighboursOf(c Chunk, mainIndex int) []string {
	if c.Buffer <= 0 {
		return nil
	}
	hits := fc.index.Overlap(c.BufferedBBox())
	var out []string
	for _, h := range hits {
		if h == mainIndex {
			continue
		}
		out = append(out, fc.files[h].path)
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
