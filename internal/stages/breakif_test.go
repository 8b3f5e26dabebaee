package stages

import (
	"testing"

	"github.com/beetlebugorg/lasr/internal/core"
)

func TestBreakIfStageTriggersOnMatch(t *testing.T) {
	b := NewBreakIfStage()
	filter, err := core.CompileFilter([]string{"z > 5"})
	if err != nil {
		t.Fatal(err)
	}
	b.SetFilter(filter)

	if b.BreakPipeline() {
		t.Fatal("should not be triggered before any point is processed")
	}
	if _, err := b.ProcessPoint(pointWithZ(1)); err != nil {
		t.Fatal(err)
	}
	if b.BreakPipeline() {
		t.Fatal("a non-matching point should not trigger a break")
	}
	if _, err := b.ProcessPoint(pointWithZ(10)); err != nil {
		t.Fatal(err)
	}
	if !b.BreakPipeline() {
		t.Fatal("a matching point should trigger BreakPipeline()")
	}
}

func TestBreakIfStageProcessPointAlwaysKeeps(t *testing.T) {
	b := NewBreakIfStage()
	filter, err := core.CompileFilter([]string{"z > 0"})
	if err != nil {
		t.Fatal(err)
	}
	b.SetFilter(filter)
	keep, err := b.ProcessPoint(pointWithZ(10))
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Fatal("BreakIfStage should never itself drop a point, it just flags a break")
	}
}

func TestBreakIfStageClearResetsTrigger(t *testing.T) {
	b := NewBreakIfStage()
	filter, err := core.CompileFilter([]string{"z > 0"})
	if err != nil {
		t.Fatal(err)
	}
	b.SetFilter(filter)
	if _, err := b.ProcessPoint(pointWithZ(1)); err != nil {
		t.Fatal(err)
	}
	if !b.BreakPipeline() {
		t.Fatal("expected triggered=true before Clear")
	}
	b.Clear(false)
	if b.BreakPipeline() {
		t.Fatal("Clear should reset the triggered flag for the next chunk")
	}
}
