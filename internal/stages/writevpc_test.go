package stages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

func TestWriteVPCStageRequiresOutputPath(t *testing.T) {
	dir := t.TempDir()
	a := touchFile(t, dir, "a.las")
	ha := core.NewHeader()
	ha.MinX, ha.MinY, ha.MaxX, ha.MaxY = 0, 0, 10, 10
	ha.NumberOfPointRecords = 10
	fc, err := core.NewFileCollection([]string{a}, constOpener{headers: map[string]*core.Header{a: ha}})
	if err != nil {
		t.Fatal(err)
	}

	w := NewWriteVPCStage()
	if err := w.ProcessCollection(fc); err == nil {
		t.Fatal("expected an error when no output path has been set")
	}
}

func TestWriteVPCStageWritesManifest(t *testing.T) {
	dir := t.TempDir()
	a := touchFile(t, dir, "a.las")
	ha := core.NewHeader()
	ha.MinX, ha.MinY, ha.MaxX, ha.MaxY = 0, 0, 10, 10
	ha.NumberOfPointRecords = 10
	fc, err := core.NewFileCollection([]string{a}, constOpener{headers: map[string]*core.Header{a: ha}})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "catalog.vpc")
	w := NewWriteVPCStage()
	if err := w.SetOutputFile(out); err != nil {
		t.Fatal(err)
	}
	if err := w.ProcessCollection(fc); err != nil {
		t.Fatalf("ProcessCollection: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("manifest was not written: %v", err)
	}
	if w.ToExternal() != out {
		t.Fatalf("ToExternal() = %v, want %q", w.ToExternal(), out)
	}

	entries, err := core.ReadVPC(out)
	if err != nil {
		t.Fatalf("ReadVPC(out): %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestWriteVPCStageSetParametersTogglesOptions(t *testing.T) {
	w := NewWriteVPCStage()
	if err := w.SetParameters(map[string]any{"absolute": true, "use_gps_time": true}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if !w.absolute || !w.useGPS {
		t.Fatalf("expected both absolute and useGPS to be true, got absolute=%v useGPS=%v", w.absolute, w.useGPS)
	}
}

func TestWriteVPCStageCloneCarriesState(t *testing.T) {
	w := NewWriteVPCStage()
	w.SetUID("vpc-1")
	if err := w.SetOutputFile("out.vpc"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetParameters(map[string]any{"absolute": true}); err != nil {
		t.Fatal(err)
	}
	clone := w.Clone().(*WriteVPCStage)
	if clone.UID() != "vpc-1" || clone.path != "out.vpc" || !clone.absolute {
		t.Fatalf("clone = %+v, missing carried state", clone)
	}
}
