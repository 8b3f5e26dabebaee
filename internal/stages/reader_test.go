package stages

import (
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

// memSource is a minimal in-memory PointSource stand-in for a real
// LAS/LAZ/PCD codec, keyed by path.
type memSource struct {
	headers map[string]*core.Header
	points  map[string][]core.PointView
}

func (s memSource) OpenHeader(path string) (*core.Header, error) {
	return s.headers[path], nil
}

func (s memSource) ReadPoints(path string, h *core.Header, into *core.PointCloud) error {
	for _, p := range s.points[path] {
		dst := into.AddPoint()
		dst.CopyFrom(p)
	}
	return nil
}

func (s memSource) NextPointFrom(path string, h *core.Header) (func() (core.PointView, bool, error), error) {
	pts := s.points[path]
	i := 0
	return func() (core.PointView, bool, error) {
		if i >= len(pts) {
			return core.PointView{}, false, nil
		}
		p := pts[i]
		i++
		return p, true, nil
	}, nil
}

func makePoints(n int) []core.PointView {
	schema := core.NewSchema()
	out := make([]core.PointView, n)
	for i := 0; i < n; i++ {
		p := core.NewPointView(schema)
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
		out[i] = p
	}
	return out
}

func TestReaderStageProcessHeaderOpensMainFile(t *testing.T) {
	h := core.NewHeader()
	h.NumberOfPointRecords = 3
	src := memSource{headers: map[string]*core.Header{"a.las": h}}
	r := NewReaderStage(src)
	if err := r.SetChunk(core.Chunk{MainFiles: []string{"a.las"}}); err != nil {
		t.Fatal(err)
	}
	out := core.NewHeader()
	if err := r.ProcessHeader(out); err != nil {
		t.Fatalf("ProcessHeader: %v", err)
	}
	if out.NumberOfPointRecords != 3 {
		t.Fatalf("NumberOfPointRecords = %d, want 3", out.NumberOfPointRecords)
	}
}

func TestReaderStageProcessHeaderEmptyChunkIsDegenerate(t *testing.T) {
	r := NewReaderStage(memSource{})
	if err := r.SetChunk(core.Chunk{}); err != nil {
		t.Fatal(err)
	}
	out := core.NewHeader()
	if err := r.ProcessHeader(out); err != nil {
		t.Fatalf("ProcessHeader: %v", err)
	}
	if out.NumberOfPointRecords != 0 {
		t.Fatalf("an empty chunk should yield a degenerate header with 0 points, got %d", out.NumberOfPointRecords)
	}
}

func TestReaderStageNextPointWalksMainThenNeighbourFiles(t *testing.T) {
	src := memSource{
		headers: map[string]*core.Header{"main.las": core.NewHeader(), "nbr.las": core.NewHeader()},
		points: map[string][]core.PointView{
			"main.las": makePoints(2),
			"nbr.las":  makePoints(3),
		},
	}
	r := NewReaderStage(src)
	if err := r.SetChunk(core.Chunk{MainFiles: []string{"main.las"}, NeighbourFiles: []string{"nbr.las"}}); err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		_, ok, err := r.NextPoint()
		if err != nil {
			t.Fatalf("NextPoint: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 5 {
		t.Fatalf("streamed %d points, want 5 (2 main + 3 neighbour)", count)
	}
}

func TestReaderStageMaterializePointCloudCombinesMainAndNeighbour(t *testing.T) {
	src := memSource{
		points: map[string][]core.PointView{
			"main.las": makePoints(2),
			"nbr.las":  makePoints(1),
		},
	}
	r := NewReaderStage(src)
	if err := r.SetChunk(core.Chunk{MainFiles: []string{"main.las"}, NeighbourFiles: []string{"nbr.las"}}); err != nil {
		t.Fatal(err)
	}
	out := core.NewHeader()
	if err := r.ProcessHeader(out); err != nil {
		t.Fatal(err)
	}
	pc, err := r.MaterializePointCloud()
	if err != nil {
		t.Fatalf("MaterializePointCloud: %v", err)
	}
	if pc.NumPoints() != 3 {
		t.Fatalf("NumPoints() = %d, want 3", pc.NumPoints())
	}
}

func TestReaderStageSetChunkResetsStreamCursor(t *testing.T) {
	src := memSource{
		points: map[string][]core.PointView{"a.las": makePoints(1), "b.las": makePoints(1)},
	}
	r := NewReaderStage(src)
	if err := r.SetChunk(core.Chunk{MainFiles: []string{"a.las"}}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := r.NextPoint(); err != nil || !ok {
		t.Fatalf("expected one point from a.las, ok=%v err=%v", ok, err)
	}
	if _, ok, err := r.NextPoint(); err != nil || ok {
		t.Fatalf("a.las should be exhausted, ok=%v err=%v", ok, err)
	}
	// a new chunk must restart the cursor at its own first file.
	if err := r.SetChunk(core.Chunk{MainFiles: []string{"b.las"}}); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := r.NextPoint(); err != nil || !ok {
		t.Fatalf("expected one point from b.las after SetChunk, ok=%v err=%v", ok, err)
	}
}

func TestReaderStageNeedPoints(t *testing.T) {
	r := NewReaderStage(memSource{})
	if !r.NeedPoints() {
		t.Fatal("ReaderStage.NeedPoints() should always be true")
	}
}
