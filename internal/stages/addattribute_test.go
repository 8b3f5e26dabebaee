package stages

import (
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

func newTestPointCloud(t *testing.T, n int) *core.PointCloud {
	t.Helper()
	h := core.NewHeader()
	h.MinX, h.MinY, h.MinZ = 0, 0, 0
	h.MaxX, h.MaxY, h.MaxZ = 100, 100, 50
	pc := core.NewPointCloud(h)
	for i := 0; i < n; i++ {
		p := pc.AddPoint()
		p.SetX(float64(i))
		p.SetY(float64(i))
		p.SetZ(float64(i))
	}
	h.NumberOfPointRecords = int64(n)
	return pc
}

func TestAddAttributeStageSetParametersBuildsAttribute(t *testing.T) {
	a := NewAddAttributeStage(core.Attribute{})
	err := a.SetParameters(map[string]any{"name": "height_above_ground", "type": "FLOAT"})
	if err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if a.attr.Name != "height_above_ground" || a.attr.Type != core.Float {
		t.Fatalf("attr = %+v, want name=height_above_ground type=Float", a.attr)
	}
}

func TestAddAttributeStageSetParametersRejectsMissingFields(t *testing.T) {
	a := NewAddAttributeStage(core.Attribute{})
	if err := a.SetParameters(map[string]any{"name": "height_above_ground"}); err == nil {
		t.Fatal("expected an error when type is missing")
	}
	if err := a.SetParameters(map[string]any{"type": "FLOAT"}); err == nil {
		t.Fatal("expected an error when name is missing")
	}
}

func TestAddAttributeStageIsMaterializedOnly(t *testing.T) {
	a := NewAddAttributeStage(core.Attribute{})
	if a.IsStreamable() {
		t.Fatal("add_attribute rewrites the whole buffer and must not be streamable")
	}
}

func TestAddAttributeStageProcessPointCloudAddsAttribute(t *testing.T) {
	pc := newTestPointCloud(t, 3)
	a := NewAddAttributeStage(core.NewAttribute("Intensity", core.Uint16))
	if err := a.ProcessPointCloud(pc); err != nil {
		t.Fatalf("ProcessPointCloud: %v", err)
	}
	p, ok := pc.GetPoint(0, nil)
	if !ok {
		t.Fatal("point 0 should still be present")
	}
	p.SetValue("Intensity", 7)
	if p.Value("Intensity") != 7 {
		t.Fatalf("Intensity = %v, want 7", p.Value("Intensity"))
	}
}

func TestAddRGBStageAddsRGBTriple(t *testing.T) {
	pc := newTestPointCloud(t, 2)
	a := NewAddRGBStage()
	if a.IsStreamable() {
		t.Fatal("add_rgb rewrites the whole buffer and must not be streamable")
	}
	if err := a.ProcessPointCloud(pc); err != nil {
		t.Fatalf("ProcessPointCloud: %v", err)
	}
	p, ok := pc.GetPoint(0, nil)
	if !ok {
		t.Fatal("point 0 should still be present")
	}
	for _, name := range []string{"R", "G", "B"} {
		if !p.Schema().HasAttribute(name) {
			t.Fatalf("expected attribute %q after AddRGB", name)
		}
	}
}

func TestAddAttributeStageCloneCarriesAttributeAndUID(t *testing.T) {
	a := NewAddAttributeStage(core.NewAttribute("Intensity", core.Uint16))
	a.SetUID("aa-1")
	clone := a.Clone().(*AddAttributeStage)
	if clone.UID() != "aa-1" {
		t.Fatalf("clone UID = %q, want aa-1", clone.UID())
	}
	if clone.attr.Name != "Intensity" {
		t.Fatalf("clone attr = %+v, want Intensity", clone.attr)
	}
}
