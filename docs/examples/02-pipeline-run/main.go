// Example 02 runs a two-stage pipeline (filter, then write) over a tiny
// synthetic dataset, using in-memory PointSource/PointSink stand-ins
// instead of a real LAS/LAZ/PCD codec — demonstrating the engine/stages
// wiring pkg/lasr drives without needing an external format dependency.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/stages"
	"github.com/beetlebugorg/lasr/pkg/lasr"
)

// memTile holds one synthetic "file" worth of points in memory.
type memTile struct {
	header *core.Header
	points []core.PointView
}

type memSource struct{ tiles map[string]*memTile }

func (s *memSource) OpenHeader(path string) (*core.Header, error) {
	t, ok := s.tiles[path]
	if !ok {
		return nil, fmt.Errorf("unknown tile %q", path)
	}
	return t.header, nil
}

func (s *memSource) ReadPoints(path string, h *core.Header, into *core.PointCloud) error {
	t := s.tiles[path]
	for _, src := range t.points {
		dst := into.AddPoint()
		dst.CopyFrom(src)
	}
	return nil
}

func (s *memSource) NextPointFrom(path string, h *core.Header) (func() (core.PointView, bool, error), error) {
	t := s.tiles[path]
	i := 0
	return func() (core.PointView, bool, error) {
		if i >= len(t.points) {
			return core.PointView{}, false, nil
		}
		p := t.points[i]
		i++
		return p, true, nil
	}, nil
}

type memSink struct{ written map[string][]core.PointView }

type memHandle struct {
	sink *memSink
	path string
}

func (s *memSink) Create(path string, h *core.Header) (stages.SinkHandle, error) {
	return &memHandle{sink: s, path: path}, nil
}

func (h *memHandle) WritePoint(p core.PointView) error {
	h.sink.written[h.path] = append(h.sink.written[h.path], p)
	return nil
}

func (h *memHandle) Close() error { return nil }

func buildTile() *memTile {
	schema := core.NewSchema()
	header := core.NewHeader()
	header.Schema = schema
	header.MinX, header.MinY, header.MinZ = 0, 0, 0
	header.MaxX, header.MaxY, header.MaxZ = 10, 10, 5

	pc := core.NewPointCloud(header)
	coords := [][3]float64{{1, 1, 2}, {5, 5, 3}, {9, 9, 1}}
	for _, c := range coords {
		p := pc.AddPoint()
		p.SetX(c[0])
		p.SetY(c[1])
		p.SetZ(c[2])
	}

	points := make([]core.PointView, 0, pc.NumPoints())
	for i := 0; i < pc.NumPoints(); i++ {
		p, ok := pc.GetPoint(i, nil)
		if ok {
			points = append(points, p)
		}
	}
	header.NumberOfPointRecords = int64(len(points))
	return &memTile{header: header, points: points}
}

func main() {
	// FileCollection resolves inputs against the filesystem (directory
	// expansion, extension classification) even though the point bytes
	// themselves come from memSource; a zero-length placeholder with a
	// recognized extension is enough to satisfy that path.
	dir, err := os.MkdirTemp("", "lasr-example-02")
	if err != nil {
		log.Fatalf("mkdtemp: %v", err)
	}
	defer os.RemoveAll(dir)
	tilePath := filepath.Join(dir, "tile.pcd")
	if err := os.WriteFile(tilePath, nil, 0o644); err != nil {
		log.Fatalf("placeholder file: %v", err)
	}

	tile := buildTile()
	source := &memSource{tiles: map[string]*memTile{tilePath: tile}}
	sink := &memSink{written: map[string][]core.PointView{}}

	descriptors := []byte(`[
		{},
		{"algoname": "reader"},
		{"algoname": "filter", "filter": ["z <= 1.5"]},
		{"algoname": "writer", "output": "kept_*.las"}
	]`)

	eng := lasr.NewEngine(source, sink)
	result, err := eng.Run([]string{tilePath}, descriptors, lasr.Options{})
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	fmt.Printf("stage outputs: %v\n", result.StageOutputs)
	fmt.Printf("kept points written: %d\n", len(sink.written["kept_tile.las"]))
}
