// Package engine implements the pipeline engine and stage contract (C9,
// C10) laid out in spec.md §4.3: a parsed DAG of stages, driven per chunk
// in either streaming or materialized mode, with a merge/sort protocol for
// deterministic aggregated output across parallel workers.
package engine

import "github.com/beetlebugorg/lasr/internal/core"

// Stage is the polymorphic capability set every pipeline stage implements
// a subset of (spec.md §4.3). Unused methods default to a no-op via
// BaseStage; callers type-assert to the narrower interfaces below
// (HeaderProcessor, PointProcessor, ...) to discover which hooks a
// concrete stage actually wants invoked, mirroring the teacher's
// interface-embedding-over-inheritance style for its Feature/Geometry/
// Validator hierarchy (internal/parser/feature.go).
type Stage interface {
	UID() string
	SetUID(uid string)
	SetNcpu(n int)
	SetVerbose(v bool)
	SetExtent(bbox core.BBox)
	SetCRS(crs string) error
	GetCRS() string
	SetParameters(params map[string]any) error
	SetFilter(filter core.Filter)
	SetOutputFile(path string) error
	SetChunk(c core.Chunk) error
	SetInputFileName(path string)

	BreakPipeline() bool
	Write() error
	Clear(last bool)

	IsStreamable() bool
	IsParallelizable() bool
	IsParallelized() bool
	NeedBuffer() float64
	NeedPoints() bool

	Connect(p *Pipeline, uid string) error
	Clone() Stage
	Merge(other Stage) error
	Sort(order []int) error
	ToExternal() any
}

// HeaderProcessor is implemented by stages that react to the per-chunk
// header (reader, writer init, info).
type HeaderProcessor interface {
	ProcessHeader(h *core.Header) error
}

// PointProcessor is implemented by streaming point sinks. Returning
// keep=false with a nil error signals "point consumed, drop it" (the
// "replaced by null" rule in spec.md §4.3), ending delivery to further
// stages for that point without aborting the stream.
type PointProcessor interface {
	ProcessPoint(p core.PointView) (keep bool, err error)
}

// PointCloudProcessor is implemented by stages that operate on a
// materialized whole-chunk point cloud.
type PointCloudProcessor interface {
	ProcessPointCloud(pc *core.PointCloud) error
}

// CollectionProcessor is implemented by collection-level stages (e.g.
// write_vpc) that take the whole FileCollection rather than one chunk.
// Pipeline.RunChunk and RunAll do not call ProcessCollection.
type CollectionProcessor interface {
	ProcessCollection(fc *core.FileCollection) error
}

// ConnectedProcessor is implemented by stages that read another stage's
// output rather than a point/cloud/header directly (e.g. "rasterize
// triangulation"); process() with no argument per spec.md §4.3.
type ConnectedProcessor interface {
	Process() error
}

// BaseStage supplies every Stage method as a no-op/zero-value default, so
// a concrete stage only overrides what it actually implements — the same
// "embed a base, override selectively" shape as the teacher's
// `BaseValidator` (internal/parser/validation.go).
type BaseStage struct {
	uid    string
	ncpu   int
	verbose bool
	extent core.BBox
	crs    string
	filter core.Filter
	output string
}

func (b *BaseStage) UID() string                          { return b.uid }
func (b *BaseStage) SetUID(uid string)                    { b.uid = uid }
func (b *BaseStage) SetNcpu(n int)                        { b.ncpu = n }
func (b *BaseStage) SetVerbose(v bool)                    { b.verbose = v }
func (b *BaseStage) SetExtent(bbox core.BBox)             { b.extent = bbox }
func (b *BaseStage) SetCRS(crs string) error               { b.crs = crs; return nil }
func (b *BaseStage) GetCRS() string                        { return b.crs }
func (b *BaseStage) SetParameters(params map[string]any) error { return nil }
func (b *BaseStage) SetFilter(filter core.Filter)           { b.filter = filter }
func (b *BaseStage) SetOutputFile(path string) error        { b.output = path; return nil }
func (b *BaseStage) SetChunk(c core.Chunk) error             { return nil }
func (b *BaseStage) SetInputFileName(path string)            {}

func (b *BaseStage) BreakPipeline() bool { return false }
func (b *BaseStage) Write() error        { return nil }
func (b *BaseStage) Clear(last bool)     {}

func (b *BaseStage) IsStreamable() bool      { return true }
func (b *BaseStage) IsParallelizable() bool  { return true }
func (b *BaseStage) IsParallelized() bool    { return false }
func (b *BaseStage) NeedBuffer() float64     { return 0 }
func (b *BaseStage) NeedPoints() bool        { return false }

func (b *BaseStage) Connect(p *Pipeline, uid string) error { return nil }
func (b *BaseStage) Merge(other Stage) error                { return nil }
func (b *BaseStage) Sort(order []int) error                 { return nil }
func (b *BaseStage) ToExternal() any                         { return nil }

// OutputFile returns the output path set via SetOutputFile, or "" if none.
func (b *BaseStage) OutputFile() string { return b.output }

// Merged reports whether the stage's output path spans all chunks
// ("merged mode", spec.md §4.3: a path without '*' is merged).
func (b *BaseStage) Merged() bool {
	return b.output != "" && !containsStar(b.output)
}

func containsStar(s string) bool {
	for _, r := range s {
		if r == '*' {
			return true
		}
	}
	return false
}

// Filter returns the compiled filter predicate set via SetFilter, or nil.
func (b *BaseStage) Filter() core.Filter { return b.filter }

// Extent returns the bbox set via SetExtent.
func (b *BaseStage) Extent() core.BBox { return b.extent }

// Ncpu returns the worker count set via SetNcpu.
func (b *BaseStage) Ncpu() int { return b.ncpu }

// Verbose returns whether verbose logging was requested.
func (b *BaseStage) Verbose() bool { return b.verbose }
