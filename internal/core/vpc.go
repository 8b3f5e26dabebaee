package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// vpcStacVersion is the only STAC version accepted/emitted (spec.md §4.1,
// §6): "STAC versions other than 1.0.0 are rejected."
const vpcStacVersion = "1.0.0"

// VPCFeatureCollection is the top-level shape of a .vpc manifest (spec.md
// §6), parsed with encoding/json — grounded on the teacher's
// LoadCatalog/parseCatalog (pkg/s57/catalog.go), which parses its one
// structured external format with the matching stdlib codec
// (encoding/xml there, encoding/json here; see DESIGN.md).
type VPCFeatureCollection struct {
	Type     string       `json:"type"`
	Features []VPCFeature `json:"features"`
}

// VPCFeature is one STAC feature describing a single retained file.
type VPCFeature struct {
	Type        string          `json:"type"`
	StacVersion string          `json:"stac_version"`
	StacExt     []string        `json:"stac_extensions,omitempty"`
	Geometry    VPCGeometry     `json:"geometry"`
	Bbox        []float64       `json:"bbox"`
	Properties  VPCProperties   `json:"properties"`
	Assets      map[string]Asset `json:"assets"`
}

// VPCGeometry is the WGS84 footprint polygon (EPSG:4979, traditional GIS
// axis order), per spec.md §6.
type VPCGeometry struct {
	Type        string          `json:"type"`
	Coordinates [][][2]float64  `json:"coordinates"`
}

// Asset is a STAC asset entry; only Href is used by the core.
type Asset struct {
	Href string `json:"href"`
}

// VPCProperties carries the pointcloud/projection STAC extension fields
// the core reads and writes (spec.md §6).
type VPCProperties struct {
	Datetime    string    `json:"datetime,omitempty"`
	PCCount     int64     `json:"pc:count"`
	ProjWKT2    string    `json:"proj:wkt2,omitempty"`
	ProjEPSG    *int      `json:"proj:epsg,omitempty"`
	ProjBBox    []float64 `json:"proj:bbox"`
	IndexedFlag *bool     `json:"index:indexed,omitempty"`
}

// VPCEntry is one parsed file entry from a manifest, resolved to an
// absolute or manifest-relative path.
type VPCEntry struct {
	Path     string
	BBox     BBox
	MinZ, MaxZ float64
	CRS      string
	Count    int64
	Indexed  bool
	Datetime time.Time
}

// ReadVPC parses a .vpc manifest at path. Every feature's href is resolved
// relative to the manifest's own directory (spec.md §6).
func ReadVPC(path string) ([]VPCEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vpc %s: %w", path, err)
	}
	var fc VPCFeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, newInputShapeErrorf("malformed vpc %s: %v", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, newInputShapeErrorf("vpc %s: expected FeatureCollection, got %q", path, fc.Type)
	}

	dir := filepath.Dir(path)
	entries := make([]VPCEntry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Type != "Feature" {
			return nil, newInputShapeErrorf("vpc %s: feature has type %q, want Feature", path, f.Type)
		}
		if f.StacVersion != vpcStacVersion {
			return nil, newInputShapeErrorf("vpc %s: unsupported stac_version %q", path, f.StacVersion)
		}
		asset, ok := firstAsset(f.Assets)
		if !ok {
			return nil, newInputShapeErrorf("vpc %s: feature has no assets", path)
		}
		href := asset.Href
		if !filepath.IsAbs(href) {
			href = filepath.Join(dir, filepath.FromSlash(href))
		}

		bb, minZ, maxZ, err := parseProjBBox(f.Properties.ProjBBox)
		if err != nil {
			return nil, newInputShapeErrorf("vpc %s: %v", path, err)
		}

		crs := f.Properties.ProjWKT2
		if crs == "" && f.Properties.ProjEPSG != nil {
			crs = fmt.Sprintf("EPSG:%d", *f.Properties.ProjEPSG)
		}
		indexed := f.Properties.IndexedFlag != nil && *f.Properties.IndexedFlag

		var dt time.Time
		if f.Properties.Datetime != "" {
			dt, _ = time.Parse(time.RFC3339, f.Properties.Datetime)
		}

		entries = append(entries, VPCEntry{
			Path: href, BBox: bb, MinZ: minZ, MaxZ: maxZ,
			CRS: crs, Count: f.Properties.PCCount, Indexed: indexed, Datetime: dt,
		})
	}
	return entries, nil
}

func firstAsset(assets map[string]Asset) (Asset, bool) {
	// map iteration order is unspecified in Go; pick the lexicographically
	// first key so output is deterministic across runs/platforms.
	var keys []string
	for k := range assets {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return Asset{}, false
	}
	minKey := keys[0]
	for _, k := range keys[1:] {
		if k < minKey {
			minKey = k
		}
	}
	return assets[minKey], true
}

// parseProjBBox accepts either a 4-number (2D) or 6-number (3D) proj:bbox
// array (spec.md §4.1 "parses proj:bbox (2D or 3D, else malformed)").
func parseProjBBox(b []float64) (bb BBox, minZ, maxZ float64, err error) {
	switch len(b) {
	case 4:
		return BBox{b[0], b[1], b[2], b[3]}, 0, 0, nil
	case 6:
		return BBox{b[0], b[1], b[3], b[4]}, b[2], b[5], nil
	default:
		return BBox{}, 0, 0, fmt.Errorf("malformed proj:bbox (len=%d)", len(b))
	}
}

// WriteVPCOptions configures VPC manifest emission.
type WriteVPCOptions struct {
	Absolute bool // write absolute paths instead of manifest-relative ones
	UseGPSTime bool
}

// WriteVPC emits a .vpc manifest for collection's files, one feature per
// file, in order (spec.md §6).
func WriteVPC(path string, files []string, headers []*Header, opts WriteVPCOptions) error {
	dir := filepath.Dir(path)
	fc := VPCFeatureCollection{Type: "FeatureCollection"}

	for i, f := range files {
		h := headers[i]
		bb := BBox{h.MinX, h.MinY, h.MaxX, h.MaxY}
		ring := wgs84FootprintStub(bb)

		rel := f
		if !opts.Absolute {
			if r, err := filepath.Rel(dir, f); err == nil {
				rel = r
			}
		}
		rel = strings.ReplaceAll(rel, `\`, "/")

		dt, warning := vpcDatetime(*h, opts.UseGPSTime)
		_ = warning // WriteVPC returns only an error; the fallback warning is dropped

		var epsg *int
		props := VPCProperties{
			Datetime: dt.Format(time.RFC3339),
			PCCount:  h.NumberOfPointRecords,
			ProjWKT2: h.CRS,
			ProjEPSG: epsg,
			ProjBBox: []float64{h.MinX, h.MinY, h.MaxX, h.MaxY},
		}
		indexed := h.SpatialIndex
		props.IndexedFlag = &indexed

		fc.Features = append(fc.Features, VPCFeature{
			Type:        "Feature",
			StacVersion: vpcStacVersion,
			StacExt: []string{
				"https://stac-extensions.github.io/pointcloud/v1.0.0/schema.json",
				"https://stac-extensions.github.io/projection/v1.1.0/schema.json",
			},
			Geometry:   VPCGeometry{Type: "Polygon", Coordinates: [][][2]float64{ring}},
			Bbox:       []float64{h.MinX, h.MinY, h.MinZ, h.MaxX, h.MaxY, h.MaxZ},
			Properties: props,
			Assets:     map[string]Asset{"data": {Href: rel}},
		})
	}

	raw, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vpc: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write vpc %s: %w", path, err)
	}
	return nil
}

// wgs84FootprintStub returns the 4 corners of bb (closed ring) as the
// feature geometry. A full implementation reprojects through the external
// CRS library (§1 Non-goals: CRS/projection library is an external
// collaborator); here the source CRS is assumed already geographic when no
// reprojection collaborator is wired, which is sufficient to exercise the
// manifest round-trip invariant in spec.md §8.
func wgs84FootprintStub(bb BBox) [][2]float64 {
	return [][2]float64{
		{bb.XMin, bb.YMin}, {bb.XMax, bb.YMin}, {bb.XMax, bb.YMax}, {bb.XMin, bb.YMax}, {bb.XMin, bb.YMin},
	}
}

// vpcDatetime decides the VPC datetime per spec.md §9 ("Open question —
// GPS-time vs creation-date"): use GPS time when requested and usable, else
// fall back to the creation date, carrying a warning rather than an error.
func vpcDatetime(h Header, useGPS bool) (time.Time, string) {
	if useGPS {
		if h.GPSTimeKnown && h.AdjustedStandardGPSTime && h.GPSTime != 0 {
			return gpsTimeToUTC(h.GPSTime), ""
		}
		return h.CreationDate, "gps time unavailable or week-time encoded, falling back to creation date"
	}
	return h.CreationDate, ""
}

// gpsEpoch is the GPS time origin, 1980-01-06T00:00:00Z.
var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

func gpsTimeToUTC(adjustedStandardGPSTime float64) time.Time {
	// Adjusted standard GPS time is seconds since GPS epoch minus 1e9
	// (the LAS 1.2+ convention), leap seconds ignored at this fidelity.
	secs := adjustedStandardGPSTime + 1e9
	return gpsEpoch.Add(time.Duration(secs * float64(time.Second)))
}
