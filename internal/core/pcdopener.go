package core

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PCDHeaderOpener implements HeaderOpener over bare .pcd files: it reads
// just enough of the file (the ASCII header block, plus an optional
// sidecar .bbox file) to populate a Header without decoding point data.
// Real LAS/LAZ support is an external collaborator (§1 Non-goals); PCD is
// the one format whose header this repo can parse without a codec
// dependency it doesn't have, so it's the concrete opener cmd/lasr-info
// and the docs/examples programs exercise.
type PCDHeaderOpener struct{}

func (PCDHeaderOpener) OpenHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pcdHeader, err := ReadPCDHeader(f)
	if err != nil {
		return nil, err
	}
	schema, err := SchemaFromPCD(pcdHeader)
	if err != nil {
		return nil, err
	}

	h := NewHeader()
	h.Schema = schema
	h.Signature = SignaturePCD
	h.NumberOfPointRecords = int64(pcdHeader.Points)

	if bb, minZ, maxZ, ok := readBBoxSidecar(path); ok {
		h.MinX, h.MinY, h.MinZ = bb.XMin, bb.YMin, minZ
		h.MaxX, h.MaxY, h.MaxZ = bb.XMax, bb.YMax, maxZ
	}
	// No sidecar: NewHeader already carries the degenerate (+inf/-inf) bbox,
	// which FileCollection's union-bbox fold skips, rather than a misleading
	// zero-area box; the
	// header-only contract (spec.md §4.1) can't compute the real extent
	// without scanning point data.

	return h, nil
}

func readBBoxSidecar(path string) (bb BBox, minZ, maxZ float64, ok bool) {
	sidecar := path + ".bbox"
	f, err := os.Open(sidecar)
	if err != nil {
		return BBox{}, 0, 0, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return BBox{}, 0, 0, false
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 6 {
		return BBox{}, 0, 0, false
	}
	vals := make([]float64, 6)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return BBox{}, 0, 0, false
		}
		vals[i] = v
	}
	return BBox{vals[0], vals[1], vals[3], vals[4]}, vals[2], vals[5], true
}

// WriteBBoxSidecar writes a .bbox file alongside path (spec.md §6: "a
// sidecar .bbox file ... is read if present, otherwise computed on first
// open and written back").
func WriteBBoxSidecar(path string, h *Header) error {
	sidecar := path + ".bbox"
	line := fmt.Sprintf("%g %g %g %g %g %g\n", h.MinX, h.MinY, h.MinZ, h.MaxX, h.MaxY, h.MaxZ)
	return os.WriteFile(sidecar, []byte(line), 0o644)
}
