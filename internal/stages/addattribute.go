package stages

import (
	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// AddAttributeStage extends the point cloud's schema with one user
// attribute (spec.md §4.2 "add_attribute"), materialized-mode only since
// it rewrites the whole buffer.
type AddAttributeStage struct {
	engine.BaseStage
	attr core.Attribute
}

// NewAddAttributeStage builds a stage that adds attr on ProcessPointCloud.
func NewAddAttributeStage(attr core.Attribute) *AddAttributeStage {
	return &AddAttributeStage{attr: attr}
}

func (a *AddAttributeStage) SetParameters(params map[string]any) error {
	name, _ := params["name"].(string)
	typ, _ := params["type"].(string)
	if name == "" || typ == "" {
		return core.NewConfigurationErrorf("add_attribute: requires name and type parameters")
	}
	t, err := core.ParseAttrType(typ)
	if err != nil {
		return core.NewConfigurationErrorf("add_attribute: %v", err)
	}
	a.attr = core.NewAttribute(name, t)
	return nil
}

func (a *AddAttributeStage) IsStreamable() bool { return false }

func (a *AddAttributeStage) ProcessPointCloud(pc *core.PointCloud) error {
	return pc.AddAttribute(a.attr)
}

func (a *AddAttributeStage) Clone() engine.Stage {
	clone := NewAddAttributeStage(a.attr)
	clone.SetUID(a.UID())
	return clone
}

// AddRGBStage adds the standard {R,G,B:INT16} triple (spec.md §4.2
// "add_rgb").
type AddRGBStage struct {
	engine.BaseStage
}

func NewAddRGBStage() *AddRGBStage { return &AddRGBStage{} }

func (a *AddRGBStage) IsStreamable() bool { return false }

func (a *AddRGBStage) ProcessPointCloud(pc *core.PointCloud) error {
	return pc.AddRGB()
}

func (a *AddRGBStage) Clone() engine.Stage {
	clone := NewAddRGBStage()
	clone.SetUID(a.UID())
	return clone
}
