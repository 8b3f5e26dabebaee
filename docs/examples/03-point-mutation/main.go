// Example 03 exercises core.PointCloud's mutation primitives directly:
// adding points, soft-deleting by a filter, compacting, and adding a
// derived attribute — the building blocks stages such as filter and
// add_attribute wrap.
package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/lasr/internal/core"
)

func main() {
	header := core.NewHeader()
	header.MinX, header.MinY, header.MinZ = 0, 0, 0
	header.MaxX, header.MaxY, header.MaxZ = 100, 100, 50

	pc := core.NewPointCloud(header)
	for i := 0; i < 10; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	fmt.Printf("points after load: %d\n", pc.NumPoints())

	filter, err := core.CompileFilter([]string{"z < 5"})
	if err != nil {
		log.Fatalf("compile filter: %v", err)
	}
	for i := 0; i < pc.NumPoints(); i++ {
		p, ok := pc.GetPoint(i, nil)
		if !ok {
			continue
		}
		if filter(p) {
			if err := pc.DeletePoint(i); err != nil {
				log.Fatalf("delete point %d: %v", i, err)
			}
		}
	}
	fmt.Printf("points after soft-delete (z<5): %d live of %d slots\n",
		countLive(pc), pc.NumPoints())

	if err := pc.DeleteDeleted(); err != nil {
		log.Fatalf("compact: %v", err)
	}
	fmt.Printf("points after compaction: %d\n", pc.NumPoints())

	attr := core.NewAttribute("height_above_ground", core.Float)
	if err := pc.AddAttribute(attr); err != nil {
		log.Fatalf("add attribute: %v", err)
	}
	for i := 0; i < pc.NumPoints(); i++ {
		p, ok := pc.GetPoint(i, nil)
		if !ok {
			continue
		}
		p.SetValue("height_above_ground", p.Z()*0.5)
	}
	first, _ := pc.GetPoint(0, nil)
	fmt.Printf("first point height_above_ground: %g\n", first.Value("height_above_ground"))
}

func countLive(pc *core.PointCloud) int {
	n := 0
	for i := 0; i < pc.NumPoints(); i++ {
		if _, ok := pc.GetPoint(i, nil); ok {
			n++
		}
	}
	return n
}
