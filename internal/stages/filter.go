package stages

import (
	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// FilterStage drops points that match its filter expression (spec.md
// §4.3 "Filter expressions": "true means reject"). It implements
// PointProcessor for the streaming path and PointCloudProcessor for the
// materialized path, deleting in place via PointCloud.DeletePoint so
// downstream stages see the soft-delete, not a shrunk buffer.
type FilterStage struct {
	engine.BaseStage
}

// NewFilterStage builds a filter stage. Its predicate is supplied later
// via SetFilter, matching every other stage's parse-time filter wiring.
func NewFilterStage() *FilterStage { return &FilterStage{} }

func (f *FilterStage) ProcessPoint(p core.PointView) (bool, error) {
	if filter := f.Filter(); filter != nil && filter(p) {
		return false, nil
	}
	return true, nil
}

func (f *FilterStage) ProcessPointCloud(pc *core.PointCloud) error {
	filter := f.Filter()
	if filter == nil {
		return nil
	}
	n := pc.NumPoints()
	for i := 0; i < n; i++ {
		p, ok := pc.GetPoint(i, nil)
		if !ok {
			continue
		}
		if filter(p) {
			if err := pc.DeletePoint(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FilterStage) Clone() engine.Stage {
	clone := NewFilterStage()
	clone.SetUID(f.UID())
	clone.SetFilter(f.Filter())
	return clone
}
