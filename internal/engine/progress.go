package engine

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Progress is C11: a thread-aware counter with an injectable io.Writer
// sink (spec.md §4.4). The teacher carries no logging library anywhere —
// only io.Writer-based diagnostics (see pkg/s57's progress callbacks) — so
// Progress follows that ambient convention rather than reaching for a
// structured logger the corpus never uses for this concern.
type Progress struct {
	out    io.Writer
	prefix string
	total  int64
	count  int64
	interrupted int32

	enabled  bool
	outerThread bool // only the outer thread 0 prints in a nested region
}

// NewProgress returns a Progress writing to out when enabled is true.
func NewProgress(out io.Writer, enabled bool) *Progress {
	return &Progress{out: out, enabled: enabled, outerThread: true}
}

// SetTotal sets the expected total count for percentage display.
func (p *Progress) SetTotal(n int64) { atomic.StoreInt64(&p.total, n) }

// SetPrefix sets the label shown before the counter.
func (p *Progress) SetPrefix(s string) { p.prefix = s }

// Update advances the counter by k and redraws if enabled.
func (p *Progress) Update(k int64) {
	n := atomic.AddInt64(&p.count, k)
	p.show(n)
}

// Inc advances the counter by one.
func (p *Progress) Inc() { p.Update(1) }

// show renders the current progress line, a no-op unless enabled and this
// is the outer thread (spec.md §4.4 "only the outer thread 0 prints").
func (p *Progress) show(n int64) {
	if !p.enabled || !p.outerThread || p.out == nil {
		return
	}
	total := atomic.LoadInt64(&p.total)
	if total > 0 {
		fmt.Fprintf(p.out, "\r%s %d/%d (%.1f%%)", p.prefix, n, total, 100*float64(n)/float64(total))
	} else {
		fmt.Fprintf(p.out, "\r%s %d", p.prefix, n)
	}
}

// Done finalizes the progress display with a trailing newline.
func (p *Progress) Done() {
	if p.enabled && p.outerThread && p.out != nil {
		fmt.Fprintln(p.out)
	}
}

// NestedWorker returns a Progress sharing this Progress's sink but marked
// as an inner thread, so its show() calls are suppressed (spec.md §4.4,
// §5 "inner progress printing is restricted to the outer thread 0").
func (p *Progress) NestedWorker() *Progress {
	return &Progress{out: p.out, enabled: p.enabled, outerThread: false, prefix: p.prefix}
}

// Interrupt requests cooperative cancellation.
func (p *Progress) Interrupt() { atomic.StoreInt32(&p.interrupted, 1) }

// Interrupted reports whether cancellation has been requested (spec.md
// §4.4/§5: stages must poll this in inner hot loops).
func (p *Progress) Interrupted() bool { return atomic.LoadInt32(&p.interrupted) != 0 }
