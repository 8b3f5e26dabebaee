package stages

import (
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

func pointWithZ(z float64) core.PointView {
	schema := core.NewSchema()
	p := core.NewPointView(schema)
	p.SetZ(z)
	return p
}

func TestFilterStageProcessPointDropsMatches(t *testing.T) {
	f := NewFilterStage()
	filter, err := core.CompileFilter([]string{"z > 5"})
	if err != nil {
		t.Fatal(err)
	}
	f.SetFilter(filter)

	keep, err := f.ProcessPoint(pointWithZ(10))
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Fatal("a point matching the filter should be dropped (keep=false)")
	}

	keep, err = f.ProcessPoint(pointWithZ(1))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Fatal("a point not matching the filter should be kept")
	}
}

func TestFilterStageProcessPointNoFilterKeepsEverything(t *testing.T) {
	f := NewFilterStage()
	keep, err := f.ProcessPoint(pointWithZ(100))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Fatal("a stage with no filter set should keep every point")
	}
}

func TestFilterStageProcessPointCloudSoftDeletesMatches(t *testing.T) {
	h := core.NewHeader()
	h.MinX, h.MinY, h.MinZ = 0, 0, 0
	h.MaxX, h.MaxY, h.MaxZ = 10, 10, 10
	pc := core.NewPointCloud(h)
	for i := 0; i < 5; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	h.NumberOfPointRecords = 5

	f := NewFilterStage()
	filter, err := core.CompileFilter([]string{"z >= 3"})
	if err != nil {
		t.Fatal(err)
	}
	f.SetFilter(filter)
	if err := f.ProcessPointCloud(pc); err != nil {
		t.Fatalf("ProcessPointCloud: %v", err)
	}

	live := 0
	for i := 0; i < pc.NumPoints(); i++ {
		if _, ok := pc.GetPoint(i, nil); ok {
			live++
		}
	}
	if live != 3 {
		t.Fatalf("live points after filtering z>=3 out of 0..4 = %d, want 3", live)
	}
}

func TestFilterStageCloneCarriesFilterAndUID(t *testing.T) {
	f := NewFilterStage()
	f.SetUID("filter-1")
	filter, err := core.CompileFilter([]string{"z > 0"})
	if err != nil {
		t.Fatal(err)
	}
	f.SetFilter(filter)

	clone := f.Clone().(*FilterStage)
	if clone.UID() != "filter-1" {
		t.Fatalf("clone UID = %q, want filter-1", clone.UID())
	}
	if clone.Filter() == nil {
		t.Fatal("clone should carry the same compiled filter")
	}
}
