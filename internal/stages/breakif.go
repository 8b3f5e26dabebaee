package stages

import (
	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// BreakIfStage short-circuits the rest of the pipeline for the current
// chunk whenever its filter expression accepts a point (spec.md §4.3
// "break_pipeline() → bool ... queried after each stage executes").
// Re-using the filter machinery here instead of inventing a second
// predicate language keeps the concept (an attribute-valued condition
// over a point) grounded in the one predicate format the spec defines.
type BreakIfStage struct {
	engine.BaseStage
	triggered bool
}

func NewBreakIfStage() *BreakIfStage { return &BreakIfStage{} }

func (b *BreakIfStage) ProcessPoint(p core.PointView) (bool, error) {
	if filter := b.Filter(); filter != nil && filter(p) {
		b.triggered = true
	}
	return true, nil
}

func (b *BreakIfStage) BreakPipeline() bool { return b.triggered }

func (b *BreakIfStage) Clear(last bool) { b.triggered = false }

func (b *BreakIfStage) Clone() engine.Stage {
	clone := NewBreakIfStage()
	clone.SetUID(b.UID())
	clone.SetFilter(b.Filter())
	return clone
}
