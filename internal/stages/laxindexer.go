package stages

import (
	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// LaxIndexerStage is the "on-the-fly write-lax" stage spec.md §4.1
// prepends automatically when `multi_files ∧ buffer > 0 ∧
// any_file_unindexed` or `queries_present ∧ any_file_unindexed`: it builds
// an in-memory FileIndex over whatever files the run touches so later
// overlap queries aren't quadratic, without requiring every input file to
// already carry a .lax companion on disk. Supplemented from
// original_source's on-the-fly spatial-index prepend (see SPEC_FULL.md
// E4), since spec.md names the trigger condition but leaves the stage
// itself external. FileCollection.NeedsLaxIndexer evaluates that condition;
// nothing in the engine inserts this stage or calls its ProcessCollection.
type LaxIndexerStage struct {
	engine.BaseStage
	index *core.FileIndex
}

func NewLaxIndexerStage() *LaxIndexerStage { return &LaxIndexerStage{} }

func (l *LaxIndexerStage) ProcessCollection(fc *core.FileCollection) error {
	bboxes := make([]core.BBox, fc.NumFiles())
	for i := 0; i < fc.NumFiles(); i++ {
		h := fc.FileHeader(i)
		bboxes[i] = core.BBox{XMin: h.MinX, YMin: h.MinY, XMax: h.MaxX, YMax: h.MaxY}
	}
	l.index = core.NewFileIndex(bboxes)
	return nil
}

// Index returns the index built by ProcessCollection, or nil before it
// has run. The chunk planner uses FileCollection's own index, not this one.
func (l *LaxIndexerStage) Index() *core.FileIndex { return l.index }

func (l *LaxIndexerStage) Clone() engine.Stage {
	clone := NewLaxIndexerStage()
	clone.SetUID(l.UID())
	return clone
}
