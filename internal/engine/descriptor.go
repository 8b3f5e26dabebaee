package engine

import (
	"encoding/json"
	"fmt"

	"github.com/beetlebugorg/lasr/internal/core"
)

// CatalogDescriptor is the first descriptor in every pipeline JSON array
// (spec.md §4.3 "Parsing"): a "build catalog" placeholder naming the input
// files, processing flags, and chunking parameters.
type CatalogDescriptor struct {
	Algoname   string   `json:"algoname"`
	Files      []string `json:"files"`
	Noprocess  []bool   `json:"noprocess,omitempty"`
	Buffer     float64  `json:"buffer"`
	ChunkSize  float64  `json:"chunk_size"`
}

// StageDescriptor is one non-catalog pipeline descriptor.
type StageDescriptor struct {
	Algoname   string          `json:"algoname"`
	UID        string          `json:"uid"`
	Connect    string          `json:"connect,omitempty"`
	Connect1   string          `json:"connect1,omitempty"`
	Connect2   string          `json:"connect2,omitempty"`
	Filter     []string        `json:"filter,omitempty"`
	Output     string          `json:"output,omitempty"`
	CRS        string          `json:"crs,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

// ParsedPipeline is the output of parsing a descriptor array: the catalog
// descriptor plus the ordered stage descriptors, not yet instantiated into
// Stage objects (that's Pipeline.Parse's job, since it needs a
// StageFactory to turn an algoname into a concrete Stage).
type ParsedPipeline struct {
	Catalog CatalogDescriptor
	Stages  []StageDescriptor
}

// ParseDescriptors decodes a pipeline's JSON descriptor array (spec.md
// §4.3 "Parsing": "a JSON array in the reference implementation"), peeling
// off the mandatory leading catalog descriptor.
func ParseDescriptors(raw []byte) (*ParsedPipeline, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, core.NewConfigurationErrorf("malformed pipeline descriptor array: %v", err)
	}
	if len(entries) == 0 {
		return nil, core.NewConfigurationErrorf("empty pipeline descriptor array")
	}

	var catalog CatalogDescriptor
	if err := json.Unmarshal(entries[0], &catalog); err != nil {
		return nil, core.NewConfigurationErrorf("malformed catalog descriptor: %v", err)
	}
	if catalog.Algoname != "" && catalog.Algoname != "catalog" {
		return nil, core.NewConfigurationErrorf("first descriptor must be the catalog placeholder, got algoname %q", catalog.Algoname)
	}

	pp := &ParsedPipeline{Catalog: catalog}
	sawReader := false
	for i, raw := range entries[1:] {
		var sd StageDescriptor
		if err := json.Unmarshal(raw, &sd); err != nil {
			return nil, core.NewConfigurationErrorf("malformed stage descriptor %d: %v", i+1, err)
		}
		if sd.Algoname == "" {
			return nil, core.NewConfigurationErrorf("stage descriptor %d: missing algoname", i+1)
		}
		if sd.Algoname == "reader" {
			if sawReader {
				return nil, core.NewConfigurationErrorf("reader stage may appear exactly once")
			}
			sawReader = true
		}
		pp.Stages = append(pp.Stages, sd)
	}
	return pp, nil
}

// ConnectTargets returns the uid(s) this descriptor connects to, in
// connect/connect1/connect2 field order.
func (sd StageDescriptor) ConnectTargets() []string {
	var out []string
	for _, c := range []string{sd.Connect, sd.Connect1, sd.Connect2} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// decodeParameters unmarshals a stage descriptor's raw parameters into a
// generic map, the shape SetParameters(params) expects.
func decodeParameters(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode stage parameters: %w", err)
	}
	return m, nil
}
