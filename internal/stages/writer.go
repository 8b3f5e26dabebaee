package stages

import (
	"strings"

	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// PointSink is the external collaborator a concrete writer codec
// implements: open a destination for a header, accept points one at a
// time, and close/finalize. Mirrors PointSource on the write side.
type PointSink interface {
	Create(path string, h *core.Header) (SinkHandle, error)
}

// SinkHandle is one open output file.
type SinkHandle interface {
	WritePoint(p core.PointView) error
	Close() error
}

// WriterStage is a streaming point sink (spec.md §4.3 "process(Point)")
// that also reacts to the header to open its destination. Its output path
// may contain '*', substituted with the current main file's stem
// (set_input_file_name, spec.md §4.3), or be a fixed path shared across
// all chunks ("merged mode").
type WriterStage struct {
	engine.BaseStage
	sink     PointSink
	template string
	stem     string
	handle   SinkHandle
	produced []string
}

// NewWriterStage builds a writer stage over sink.
func NewWriterStage(sink PointSink) *WriterStage {
	return &WriterStage{sink: sink}
}

func (w *WriterStage) SetOutputFile(path string) error {
	w.template = path
	return nil
}

func (w *WriterStage) SetInputFileName(path string) {
	base := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		base = path[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	w.stem = base
}

// SetChunk derives the per-chunk output stem from the chunk's own name
// (already a file stem or stem-derived name, see FileCollection's chunk
// naming — spec.md §4.1), since the pipeline driver calls set_chunk on
// every stage each chunk but never calls set_input_file_name itself.
func (w *WriterStage) SetChunk(c core.Chunk) error {
	w.stem = c.Name
	return nil
}

func (w *WriterStage) resolvedPath() string {
	if strings.Contains(w.template, "*") {
		return strings.ReplaceAll(w.template, "*", w.stem)
	}
	return w.template
}

func (w *WriterStage) ProcessHeader(h *core.Header) error {
	if w.template == "" {
		return core.NewConfigurationErrorf("writer: no output path set")
	}
	path := w.resolvedPath()
	if w.handle != nil && !w.merged() {
		if err := w.handle.Close(); err != nil {
			return err
		}
		w.handle = nil
	}
	if w.handle == nil {
		handle, err := w.sink.Create(path, h)
		if err != nil {
			return core.NewResourceErrorf("writer: create %s: %v", path, err)
		}
		w.handle = handle
		w.produced = append(w.produced, path)
	}
	return nil
}

func (w *WriterStage) merged() bool { return !strings.Contains(w.template, "*") }

// IsParallelizable is false for a merged (non-wildcard) output path: every
// worker clone would otherwise race to sink.Create the same path
// concurrently, violating the single-writer-per-output-path guarantee
// (spec.md §5). A wildcard template gives each chunk its own path and
// stays parallelizable (the BaseStage default).
func (w *WriterStage) IsParallelizable() bool { return strings.Contains(w.template, "*") }

func (w *WriterStage) ProcessPoint(p core.PointView) (bool, error) {
	if w.handle == nil {
		return true, core.NewResourceErrorf("writer: no open destination")
	}
	if err := w.handle.WritePoint(p); err != nil {
		return true, err
	}
	return true, nil
}

func (w *WriterStage) Write() error {
	if w.handle != nil && !w.merged() {
		err := w.handle.Close()
		w.handle = nil
		return err
	}
	return nil
}

func (w *WriterStage) Clear(last bool) {
	if last && w.handle != nil {
		w.handle.Close()
		w.handle = nil
	}
}

func (w *WriterStage) NeedPoints() bool { return true }

func (w *WriterStage) ToExternal() any { return w.produced }

// Merge concatenates another worker's produced-file list, per spec.md
// §4.3 "writer stages concatenate their per-chunk file lists".
func (w *WriterStage) Merge(other engine.Stage) error {
	ow, ok := other.(*WriterStage)
	if !ok {
		return core.NewConfigurationErrorf("writer: merge target is not a WriterStage")
	}
	w.produced = append(w.produced, ow.produced...)
	return nil
}

// Sort reorders the produced-file list to input chunk order.
func (w *WriterStage) Sort(order []int) error {
	if len(order) != len(w.produced) {
		return nil
	}
	sorted := make([]string, len(w.produced))
	for i, rank := range order {
		sorted[rank] = w.produced[i]
	}
	w.produced = sorted
	return nil
}

func (w *WriterStage) Clone() engine.Stage {
	clone := NewWriterStage(w.sink)
	clone.SetUID(w.UID())
	clone.template = w.template
	return clone
}
