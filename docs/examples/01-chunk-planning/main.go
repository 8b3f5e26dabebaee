// Example 01 builds a FileCollection over a set of PCD inputs directly
// and inspects the chunk plan it produces, with and without a query
// rectangle — the same planner cmd/lasr-info wraps, shown here at the
// library level. It writes a handful of minimal placeholder .pcd files
// (header only, plus a .bbox sidecar) to a temp directory so the example
// runs standalone without real LiDAR data.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/lasr/internal/core"
)

type tileSpec struct {
	name                   string
	xmin, ymin, xmax, ymax float64
	points                 int
}

func writeTile(dir string, t tileSpec) (string, error) {
	path := filepath.Join(dir, t.name+".pcd")
	header := fmt.Sprintf(
		"# .PCD v0.7\nVERSION 0.7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n"+
			"WIDTH %d\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS %d\nDATA ascii\n",
		t.points, t.points)
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		return "", err
	}
	bbox := fmt.Sprintf("%g %g 0 %g %g 10\n", t.xmin, t.ymin, t.xmax, t.ymax)
	if err := os.WriteFile(path+".bbox", []byte(bbox), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func main() {
	dir, err := os.MkdirTemp("", "lasr-example-01")
	if err != nil {
		log.Fatalf("mkdtemp: %v", err)
	}
	defer os.RemoveAll(dir)

	specs := []tileSpec{
		{"tile_0_0", 0, 0, 100, 100, 500},
		{"tile_0_1", 100, 0, 200, 100, 500},
		{"tile_1_0", 0, 100, 100, 200, 500},
	}
	var inputs []string
	for _, s := range specs {
		path, err := writeTile(dir, s)
		if err != nil {
			log.Fatalf("write tile %s: %v", s.name, err)
		}
		inputs = append(inputs, path)
	}

	fc, err := core.NewFileCollection(inputs, core.PCDHeaderOpener{})
	if err != nil {
		log.Fatalf("collection: %v", err)
	}
	fc.SetBuffer(1.0)

	chunks, err := fc.EnumerateChunks()
	if err != nil {
		log.Fatalf("enumerate: %v", err)
	}
	fmt.Println("one chunk per file:")
	for _, c := range chunks {
		fmt.Printf("  %s: main=%d file(s), neighbours=%d file(s)\n",
			c.Name, len(c.MainFiles), len(c.NeighbourFiles))
	}

	union := fc.UnionBBox()
	fc.AddQuery(core.Query{
		Kind: core.QueryRectangle,
		Rect: core.BBox{
			XMin: union.XMin, YMin: union.YMin,
			XMax: (union.XMin + union.XMax) / 2, YMax: (union.YMin + union.YMax) / 2,
		},
	})
	queried, err := fc.EnumerateChunks()
	if err != nil {
		log.Fatalf("enumerate with query: %v", err)
	}
	fmt.Println("query-rectangle chunks:")
	for _, c := range queried {
		fmt.Printf("  %s: main=%d file(s)\n", c.Name, len(c.MainFiles))
	}
}
