package stages

import (
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

type memHandle struct {
	path   string
	points []core.PointView
	closed bool
}

func (h *memHandle) WritePoint(p core.PointView) error {
	h.points = append(h.points, p)
	return nil
}
func (h *memHandle) Close() error { h.closed = true; return nil }

type memSink struct {
	created []*memHandle
}

func (s *memSink) Create(path string, h *core.Header) (SinkHandle, error) {
	handle := &memHandle{path: path}
	s.created = append(s.created, handle)
	return handle, nil
}

func TestWriterStageSetChunkDerivesStemForWildcardOutput(t *testing.T) {
	sink := &memSink{}
	w := NewWriterStage(sink)
	if err := w.SetOutputFile("kept_*.las"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetChunk(core.Chunk{Name: "tile_a"}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessHeader(core.NewHeader()); err != nil {
		t.Fatalf("ProcessHeader: %v", err)
	}
	if len(sink.created) != 1 || sink.created[0].path != "kept_tile_a.las" {
		t.Fatalf("created = %v, want a single handle at kept_tile_a.las", sink.created)
	}
}

func TestWriterStageMergedModeKeepsOneHandleAcrossChunks(t *testing.T) {
	sink := &memSink{}
	w := NewWriterStage(sink)
	if err := w.SetOutputFile("merged.las"); err != nil {
		t.Fatal(err)
	}

	if err := w.SetChunk(core.Chunk{Name: "tile_a"}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessHeader(core.NewHeader()); err != nil {
		t.Fatal(err)
	}
	if err := w.SetChunk(core.Chunk{Name: "tile_b"}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessHeader(core.NewHeader()); err != nil {
		t.Fatal(err)
	}
	if len(sink.created) != 1 {
		t.Fatalf("merged (no '*') output should open exactly one handle across chunks, got %d", len(sink.created))
	}
}

func TestWriterStageNonMergedClosesHandleBetweenChunksOnWrite(t *testing.T) {
	sink := &memSink{}
	w := NewWriterStage(sink)
	if err := w.SetOutputFile("out_*.las"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetChunk(core.Chunk{Name: "tile_a"}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessHeader(core.NewHeader()); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !sink.created[0].closed {
		t.Fatal("a non-merged (wildcard) output should be closed at end of chunk via Write()")
	}
}

func TestWriterStageProcessPointRequiresOpenHandle(t *testing.T) {
	w := NewWriterStage(&memSink{})
	if _, err := w.ProcessPoint(pointWithZ(1)); err == nil {
		t.Fatal("expected an error writing a point before any header has opened a destination")
	}
}

func TestWriterStageProcessPointWritesToHandle(t *testing.T) {
	sink := &memSink{}
	w := NewWriterStage(sink)
	if err := w.SetOutputFile("out_*.las"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetChunk(core.Chunk{Name: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessHeader(core.NewHeader()); err != nil {
		t.Fatal(err)
	}
	if _, err := w.ProcessPoint(pointWithZ(5)); err != nil {
		t.Fatalf("ProcessPoint: %v", err)
	}
	if len(sink.created[0].points) != 1 {
		t.Fatalf("handle recorded %d points, want 1", len(sink.created[0].points))
	}
}

func TestWriterStageMergeConcatenatesProducedFiles(t *testing.T) {
	w1 := NewWriterStage(&memSink{})
	w1.produced = []string{"a.las"}
	w2 := NewWriterStage(&memSink{})
	w2.produced = []string{"b.las"}

	if err := w1.Merge(w2); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(w1.produced) != 2 || w1.produced[0] != "a.las" || w1.produced[1] != "b.las" {
		t.Fatalf("produced = %v, want [a.las b.las]", w1.produced)
	}
}

func TestWriterStageSortReordersProducedToInputChunkOrder(t *testing.T) {
	w := NewWriterStage(&memSink{})
	w.produced = []string{"from-chunk-2.las", "from-chunk-0.las", "from-chunk-1.las"}
	// order[i] says: the file currently at position i belongs at rank order[i].
	if err := w.Sort([]int{2, 0, 1}); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	want := []string{"from-chunk-0.las", "from-chunk-1.las", "from-chunk-2.las"}
	for i, w2 := range want {
		if w.produced[i] != w2 {
			t.Fatalf("produced = %v, want %v", w.produced, want)
		}
	}
}

func TestWriterStageIsParallelizableOnlyForWildcardOutput(t *testing.T) {
	merged := NewWriterStage(&memSink{})
	if err := merged.SetOutputFile("merged.las"); err != nil {
		t.Fatal(err)
	}
	if merged.IsParallelizable() {
		t.Fatal("a merged (no '*') output path must not be parallelizable: concurrent workers would race to Create the same path")
	}

	perChunk := NewWriterStage(&memSink{})
	if err := perChunk.SetOutputFile("out_*.las"); err != nil {
		t.Fatal(err)
	}
	if !perChunk.IsParallelizable() {
		t.Fatal("a wildcard output path gives each chunk its own file and should remain parallelizable")
	}
}

func TestWriterStageCloneCarriesTemplateAndUID(t *testing.T) {
	w := NewWriterStage(&memSink{})
	w.SetUID("writer-1")
	if err := w.SetOutputFile("out_*.las"); err != nil {
		t.Fatal(err)
	}
	clone := w.Clone().(*WriterStage)
	if clone.UID() != "writer-1" || clone.template != "out_*.las" {
		t.Fatalf("clone = %+v, missing carried state", clone)
	}
}
