// Package stages holds the representative leaf stages exercising the
// engine's Stage contract: reader/writer adapters over external
// collaborators, and a handful of in-core stages (filter, add-attribute,
// add-rgb, break-if, write-vpc, on-the-fly-lax, rasterize). Point-cloud
// codecs (LAS/LAZ/PCD byte decoding) and the GIS raster/vector libraries
// are out of scope (spec.md §1 Non-goals); this package depends on them
// only through the PointSource interface below.
package stages

import (
	"sync"

	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// PointSource is the external collaborator a concrete codec (LAS/LAZ/PCD)
// implements: given a file path, open its header and yield points one at
// a time, or materialize them all into a PointCloud. core/engine never
// decode point-cloud bytes themselves (spec.md §1).
type PointSource interface {
	OpenHeader(path string) (*core.Header, error)
	ReadPoints(path string, h *core.Header, into *core.PointCloud) error
	NextPointFrom(path string, h *core.Header) (func() (core.PointView, bool, error), error)
}

// ReaderStage adapts a PointSource into engine.Reader. It owns the
// per-chunk main+neighbour file list and streams through them in order
// (spec.md §4.3 "reader"). Every point of every listed file is passed on;
// points are not clipped to the chunk's bbox or buffered bbox.
type ReaderStage struct {
	engine.BaseStage
	source PointSource

	chunk  core.Chunk
	header *core.Header

	streamNext func() (core.PointView, bool, error)
	streamFile int

	mu sync.Mutex
}

// NewReaderStage builds a reader stage over source.
func NewReaderStage(source PointSource) *ReaderStage {
	return &ReaderStage{source: source}
}

func (r *ReaderStage) SetChunk(c core.Chunk) error {
	r.chunk = c
	r.streamNext = nil
	r.streamFile = 0
	return nil
}

// ProcessHeader opens the chunk's first main file's header (or a
// degenerate header if the chunk has no files — spec.md §8 "a query
// outside all files ... downstream stages receive an empty point
// cloud") and copies it into h.
func (r *ReaderStage) ProcessHeader(h *core.Header) error {
	if len(r.chunk.MainFiles) == 0 {
		*h = *core.NewHeader()
		r.header = h
		return nil
	}
	hdr, err := r.source.OpenHeader(r.chunk.MainFiles[0])
	if err != nil {
		return err
	}
	*h = *hdr
	r.header = h
	return nil
}

// NextPoint implements engine.Reader's streaming entry point, walking
// main files in order and then falling through to neighbour files.
func (r *ReaderStage) NextPoint() (core.PointView, bool, error) {
	files := append(append([]string(nil), r.chunk.MainFiles...), r.chunk.NeighbourFiles...)
	for {
		if r.streamNext == nil {
			if r.streamFile >= len(files) {
				return core.PointView{}, false, nil
			}
			path := files[r.streamFile]
			h, err := r.source.OpenHeader(path)
			if err != nil {
				return core.PointView{}, false, err
			}
			next, err := r.source.NextPointFrom(path, h)
			if err != nil {
				return core.PointView{}, false, err
			}
			r.streamNext = next
		}
		pt, ok, err := r.streamNext()
		if err != nil {
			return core.PointView{}, false, err
		}
		if !ok {
			r.streamNext = nil
			r.streamFile++
			continue
		}
		return pt, true, nil
	}
}

// MaterializePointCloud reads every main+neighbour file into one
// PointCloud built over the reader's header.
func (r *ReaderStage) MaterializePointCloud() (*core.PointCloud, error) {
	pc := core.NewPointCloud(r.header)
	for _, path := range r.chunk.MainFiles {
		if err := r.source.ReadPoints(path, r.header, pc); err != nil {
			return nil, err
		}
	}
	for _, path := range r.chunk.NeighbourFiles {
		if err := r.source.ReadPoints(path, r.header, pc); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func (r *ReaderStage) Clone() engine.Stage {
	clone := NewReaderStage(r.source)
	clone.SetUID(r.UID())
	return clone
}

func (r *ReaderStage) NeedPoints() bool { return true }
