// Package lasr provides a clean public API for running tiled, pipelined
// LiDAR point-cloud processing jobs.
package lasr

import (
	"io"

	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
	"github.com/beetlebugorg/lasr/internal/stages"
)

// Engine runs a pipeline described by a JSON descriptor array over a set
// of input files.
//
// Create an Engine with NewEngine and use Run to execute a pipeline.
type Engine interface {
	// Run parses descriptors (a JSON array: a leading catalog descriptor
	// followed by stage descriptors, see Options for input wiring) and
	// executes the resulting pipeline over inputs, returning a Result
	// describing produced outputs and any non-fatal warnings.
	//
	// The file collection is built once from inputs and opts, then the
	// pipeline runs every chunk the collection's planner enumerates.
	Run(inputs []string, descriptors []byte, opts Options) (*Result, error)
}

// NewEngine creates a new Engine backed by source (the codec that reads
// file headers and points) and sink (the codec that writes them). Leaf
// stage construction is registered against the built-in factory covering
// reader/writer/filter/add_attribute/add_rgb/break_if/write_vpc/rasterize.
//
// Example:
//
//	eng := lasr.NewEngine(myCodec, myCodec)
//	result, err := eng.Run([]string{"tile.laz"}, descriptors, lasr.Options{})
func NewEngine(source stages.PointSource, sink stages.PointSink) Engine {
	return &engineWrapper{source: source, sink: sink}
}

// engineWrapper wraps the internal file-collection/pipeline machinery and
// converts its types to the public Result/Options shapes — the same
// "internal package does the work, pkg/lasr does the conversion" split as
// the teacher's pkg/s57 parserWrapper.
type engineWrapper struct {
	source stages.PointSource
	sink   stages.PointSink
}

// Options configures one Engine.Run call.
type Options struct {
	Buffer    float64
	ChunkSize float64
	Queries   []core.Query

	NcpuConcurrentFiles int
	Verbose             bool
	Progress            io.Writer
}

// Result is what a completed Run returns: per-stage external outputs
// (e.g. a writer's list of produced files), warnings accumulated during
// construction and chunk enumeration, and any per-chunk errors that did
// not abort the whole run.
type Result struct {
	StageOutputs map[string]any
	Warnings     []string
	ChunkErrors  map[int]string
}

func (e *engineWrapper) Run(inputs []string, descriptors []byte, opts Options) (*Result, error) {
	fc, err := core.NewFileCollection(inputs, e.source)
	if err != nil {
		return nil, err
	}
	fc.SetBuffer(opts.Buffer)
	fc.SetChunkSize(opts.ChunkSize)
	for _, q := range opts.Queries {
		fc.AddQuery(q)
	}

	pp, err := engine.ParseDescriptors(descriptors)
	if err != nil {
		return nil, err
	}

	pipeline, err := engine.Parse(pp, e.factory(), fc.UnionBBox(), fc.CRS(), runtimeNcpu(opts), opts.Verbose)
	if err != nil {
		return nil, err
	}

	chunks, err := fc.EnumerateChunks()
	if err != nil {
		return nil, err
	}

	if opts.Progress != nil {
		progress := engine.NewProgress(opts.Progress, true)
		progress.SetPrefix("lasr")
		pipeline.SetProgress(progress)
		defer progress.Done()
	}

	ncpu := opts.NcpuConcurrentFiles
	if ncpu <= 0 {
		ncpu = 1
	}
	runResult, runErr := pipeline.RunAll(chunks, ncpu)

	result := &Result{
		StageOutputs: map[string]any{},
		ChunkErrors:  map[int]string{},
	}
	if runResult != nil {
		result.StageOutputs = runResult.StageOutputs
		for id, chunkErr := range runResult.ChunkErrors {
			result.ChunkErrors[id] = chunkErr.Error()
		}
	}
	for _, w := range fc.Warnings() {
		result.Warnings = append(result.Warnings, w.String())
	}
	return result, runErr
}

func runtimeNcpu(opts Options) int {
	if opts.NcpuConcurrentFiles > 0 {
		return opts.NcpuConcurrentFiles
	}
	return 1
}

// factory returns the built-in StageFactory covering the leaf stages this
// package ships (internal/stages); callers needing custom algonames embed
// this Engine's work differently — there's no registry-extension surface
// yet (§9 Open Questions doesn't ask for one, and inventing one the spec
// never mentions would be scope creep).
func (e *engineWrapper) factory() engine.StageFactory {
	return func(algoname string) (engine.Stage, error) {
		switch algoname {
		case "reader":
			return stages.NewReaderStage(e.source), nil
		case "writer":
			return stages.NewWriterStage(e.sink), nil
		case "filter":
			return stages.NewFilterStage(), nil
		case "add_attribute":
			return stages.NewAddAttributeStage(core.Attribute{}), nil
		case "add_rgb":
			return stages.NewAddRGBStage(), nil
		case "break_if":
			return stages.NewBreakIfStage(), nil
		case "write_vpc":
			return stages.NewWriteVPCStage(), nil
		case "rasterize":
			return stages.NewRasterizeStage(1.0), nil
		case "info":
			return stages.NewInfoStage(nil), nil
		default:
			return nil, core.NewConfigurationErrorf("unknown stage %q", algoname)
		}
	}
}
