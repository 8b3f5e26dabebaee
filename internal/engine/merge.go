package engine

import (
	"fmt"
	"sort"

	"github.com/beetlebugorg/lasr/internal/core"
)

// workerRun is one outer-level worker's completed chunk run, collected by
// RunAll before the merge/sort pass (spec.md §4.3 "Multi-chunk
// parallelism").
type workerRun struct {
	chunkIdx int
	chunk    core.Chunk
	pipeline *Pipeline
	err      error
}

// nilOrNested returns a Progress for a spawned worker: nil stays nil, a
// real one is downgraded so its display calls are suppressed (only the
// outer thread 0 prints, spec.md §4.4/§5).
func nilOrNested(pr *Progress) *Progress {
	if pr == nil {
		return nil
	}
	return pr.NestedWorker()
}

// mergeWorkerRuns implements spec.md §4.3's merge/sort protocol: for each
// stage position, merge every worker's stage instance (in input chunk
// order), then call sort(order) so output order matches input order
// regardless of completion order.
func (p *Pipeline) mergeWorkerRuns(runs []workerRun) error {
	order := make([]int, len(runs))
	idx := make([]int, len(runs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return runs[idx[a]].chunk.ID < runs[idx[b]].chunk.ID })
	for rank, i := range idx {
		order[i] = rank
	}

	for pos, s := range p.stages {
		for _, i := range idx {
			worker := runs[i].pipeline.stages[pos]
			if err := s.Merge(worker); err != nil {
				return fmt.Errorf("stage %s: merge: %w", s.UID(), err)
			}
		}
		if err := s.Sort(order); err != nil {
			return fmt.Errorf("stage %s: sort: %w", s.UID(), err)
		}
	}
	return nil
}
