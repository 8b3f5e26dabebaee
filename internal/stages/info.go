package stages

import (
	"fmt"
	"io"

	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// InfoStage prints a one-line summary of the chunk's header to an
// injected io.Writer — a headers-only stage (spec.md §4.3 "info" is named
// as the example of a stage that "runs once per chunk without pulling
// points"). No logging library: plain io.Writer, matching the teacher's
// diagnostic-writer convention carried through §4.4's Progress.
type InfoStage struct {
	engine.BaseStage
	out io.Writer
}

// NewInfoStage builds an info stage writing to out.
func NewInfoStage(out io.Writer) *InfoStage {
	return &InfoStage{out: out}
}

func (s *InfoStage) ProcessHeader(h *core.Header) error {
	if s.out == nil {
		return nil
	}
	_, err := fmt.Fprintf(s.out, "chunk %s: %d points, bbox=[%.2f %.2f %.2f %.2f], crs=%s\n",
		s.UID(), h.NumberOfPointRecords, h.MinX, h.MinY, h.MaxX, h.MaxY, h.CRS)
	return err
}

func (s *InfoStage) Clone() engine.Stage {
	clone := NewInfoStage(s.out)
	clone.SetUID(s.UID())
	return clone
}
