package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PCDHeader is the parsed ASCII header block of a .pcd file (spec.md §6),
// read line by line with bufio.Reader the way the teacher reads its one
// line-oriented external format (pkg/s57/region.go's catalog line scanner);
// PCD has no XML/JSON structure to reach for encoding/xml or encoding/json.
type PCDHeader struct {
	Version    string
	Fields     []string
	Size       []int
	Type       []byte
	Count      []int
	Width      int
	Height     int
	Viewpoint  []float64
	Points     int
	DataFormat string // "ascii", "binary", "binary_compressed"

	// HeaderBytes is the length of the header block in bytes, so the
	// caller can seek straight to the point data that follows it.
	HeaderBytes int64
}

// ReadPCDHeader parses the header lines at the front of r, stopping once
// the DATA line is consumed.
func ReadPCDHeader(r io.Reader) (*PCDHeader, error) {
	h := &PCDHeader{}
	br := bufio.NewReader(r)
	var consumed int64

	for {
		line, err := br.ReadString('\n')
		consumed += int64(len(line))
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			fields := strings.Fields(trimmed)
			if len(fields) < 2 {
				return nil, newInputShapeErrorf("pcd: malformed header line %q", trimmed)
			}
			key, rest := strings.ToUpper(fields[0]), fields[1:]
			switch key {
			case "VERSION":
				h.Version = rest[0]
			case "FIELDS":
				h.Fields = rest
			case "SIZE":
				h.Size = make([]int, len(rest))
				for i, s := range rest {
					h.Size[i], _ = strconv.Atoi(s)
				}
			case "TYPE":
				h.Type = make([]byte, len(rest))
				for i, s := range rest {
					if len(s) == 1 {
						h.Type[i] = s[0]
					}
				}
			case "COUNT":
				h.Count = make([]int, len(rest))
				for i, s := range rest {
					h.Count[i], _ = strconv.Atoi(s)
				}
			case "WIDTH":
				h.Width, _ = strconv.Atoi(rest[0])
			case "HEIGHT":
				h.Height, _ = strconv.Atoi(rest[0])
			case "VIEWPOINT":
				h.Viewpoint = make([]float64, len(rest))
				for i, s := range rest {
					h.Viewpoint[i], _ = strconv.ParseFloat(s, 64)
				}
			case "POINTS":
				h.Points, _ = strconv.Atoi(rest[0])
			case "DATA":
				h.DataFormat = rest[0]
				h.HeaderBytes = consumed
				if len(h.Count) == 0 {
					h.Count = make([]int, len(h.Fields))
					for i := range h.Count {
						h.Count[i] = 1
					}
				}
				return h, validatePCDHeader(h)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, newInputShapeErrorf("pcd: header ended without a DATA line")
			}
			return nil, fmt.Errorf("pcd: reading header: %w", err)
		}
	}
}

func validatePCDHeader(h *PCDHeader) error {
	if len(h.Fields) == 0 {
		return newInputShapeErrorf("pcd: missing FIELDS")
	}
	if len(h.Size) != len(h.Fields) || len(h.Type) != len(h.Fields) {
		return newInputShapeErrorf("pcd: SIZE/TYPE length mismatch with FIELDS")
	}
	switch h.DataFormat {
	case "ascii", "binary", "binary_compressed":
	default:
		return newInputShapeErrorf("pcd: unsupported DATA format %q", h.DataFormat)
	}
	return nil
}

// SchemaFromPCD maps PCD fields/types/sizes onto an attribute Schema,
// routing x/y/z to the mandatory axis triple and everything else through
// MapAttribute so aliases like "intensity"/"classification" land on the
// same canonical attributes a LAS reader would produce.
func SchemaFromPCD(h *PCDHeader) (*Schema, error) {
	s := NewSchema()
	for i, name := range h.Fields {
		canon := MapAttribute(name)
		if canon == "X" || canon == "Y" || canon == "Z" {
			continue // covered by the mandatory prefix
		}
		t, err := pcdAttrType(h.Type[i], h.Size[i])
		if err != nil {
			return nil, fmt.Errorf("pcd: field %q: %w", name, err)
		}
		if err := s.AddAttribute(NewAttribute(canon, t)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func pcdAttrType(t byte, size int) (AttrType, error) {
	switch {
	case t == 'F' && size == 4:
		return Float, nil
	case t == 'F' && size == 8:
		return Double, nil
	case t == 'U' && size == 1:
		return Uint8, nil
	case t == 'I' && size == 1:
		return Int8, nil
	case t == 'U' && size == 2:
		return Uint16, nil
	case t == 'I' && size == 2:
		return Int16, nil
	case t == 'U' && size == 4:
		return Uint32, nil
	case t == 'I' && size == 4:
		return Int32, nil
	case t == 'U' && size == 8:
		return Uint64, nil
	case t == 'I' && size == 8:
		return Int64, nil
	default:
		return NoType, fmt.Errorf("unsupported PCD type %c%d", t, size)
	}
}
