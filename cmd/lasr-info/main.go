// Command lasr-info inspects a set of point-cloud inputs and prints the
// chunk plan a pipeline run would use, without running any pipeline.
// It's a thin diagnostic built directly on internal/core, the same role
// s57dump plays for the teacher's chart packages: no flags library, just
// the standard flag package, per this repo's Non-goals around CLI
// frameworks.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/beetlebugorg/lasr/internal/core"
)

func main() {
	buffer := flag.Float64("buffer", 0, "neighbour buffer distance in CRS-linear units")
	chunkSize := flag.Float64("chunk-size", 0, "grid chunk edge length; 0 means one chunk per file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.pcd [file2.pcd ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Args(), *buffer, *chunkSize); err != nil {
		fmt.Fprintln(os.Stderr, "lasr-info:", err)
		os.Exit(1)
	}
}

func run(inputs []string, buffer, chunkSize float64) error {
	fc, err := core.NewFileCollection(inputs, core.PCDHeaderOpener{})
	if err != nil {
		return err
	}
	fc.SetBuffer(buffer)
	fc.SetChunkSize(chunkSize)

	for _, w := range fc.Warnings() {
		fmt.Fprintln(os.Stderr, "warning:", w.String())
	}

	union := fc.UnionBBox()
	fmt.Printf("files: %d\n", fc.NumFiles())
	fmt.Printf("crs: %q\n", fc.CRS())
	fmt.Printf("union bbox: [%g, %g] - [%g, %g]\n", union.XMin, union.YMin, union.XMax, union.YMax)

	chunks, err := fc.EnumerateChunks()
	if err != nil {
		return err
	}

	fmt.Printf("chunks: %d\n", len(chunks))
	for _, c := range chunks {
		fmt.Printf("  [%d] %-20s main=%v neighbours=%v bbox=[%g,%g]-[%g,%g] buffer=%g\n",
			c.ID, c.Name, c.MainFiles, c.NeighbourFiles, c.XMin, c.YMin, c.XMax, c.YMax, c.Buffer)
	}
	return nil
}
