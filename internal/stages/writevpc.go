package stages

import (
	"github.com/beetlebugorg/lasr/internal/core"
	"github.com/beetlebugorg/lasr/internal/engine"
)

// WriteVPCStage is a collection-level stage (spec.md §4.3 "process
// (FileCollection) → ok|error ... e.g., write manifest"): ProcessCollection
// emits a VPC manifest for the collection's files. Pipeline.RunChunk and
// RunAll do not call ProcessCollection.
type WriteVPCStage struct {
	engine.BaseStage
	path     string
	absolute bool
	useGPS   bool
}

func NewWriteVPCStage() *WriteVPCStage { return &WriteVPCStage{} }

func (w *WriteVPCStage) SetParameters(params map[string]any) error {
	if v, ok := params["absolute"].(bool); ok {
		w.absolute = v
	}
	if v, ok := params["use_gps_time"].(bool); ok {
		w.useGPS = v
	}
	return nil
}

func (w *WriteVPCStage) SetOutputFile(path string) error {
	w.path = path
	return nil
}

func (w *WriteVPCStage) ProcessCollection(fc *core.FileCollection) error {
	if w.path == "" {
		return core.NewConfigurationErrorf("write_vpc: no output path set")
	}
	files := make([]string, fc.NumFiles())
	headers := make([]*core.Header, fc.NumFiles())
	for i := 0; i < fc.NumFiles(); i++ {
		files[i] = fc.FilePath(i)
		headers[i] = fc.FileHeader(i)
	}
	return core.WriteVPC(w.path, files, headers, core.WriteVPCOptions{Absolute: w.absolute, UseGPSTime: w.useGPS})
}

func (w *WriteVPCStage) ToExternal() any { return w.path }

func (w *WriteVPCStage) Clone() engine.Stage {
	clone := &WriteVPCStage{path: w.path, absolute: w.absolute, useGPS: w.useGPS}
	clone.SetUID(w.UID())
	return clone
}
