package core

// AttributeAliases maps the short tokens accepted in filter expressions and
// native-flag equivalents to the canonical attribute name carried by a
// Schema. Grounded on the alias table in the original lasR implementation
// (LASRcore/PointSchema.h, attribute_map) — see SPEC_FULL.md §E4.
var AttributeAliases = map[string][]string{
	"X":               {"X", "x"},
	"Y":               {"Y", "y"},
	"Z":               {"Z", "z"},
	"Intensity":       {"Intensity", "intensity", "i"},
	"ReturnNumber":    {"return", "Return", "ReturnNumber", "return_number", "r"},
	"NumberOfReturns": {"NumberOfReturns", "NumberReturns", "numberofreturns", "n"},
	"Classification":  {"Classification", "classification", "class", "c"},
	"gpstime":         {"gpstime", "gps_time", "GPStime", "t", "time", "gps"},
	"UserData":        {"UserData", "userdata", "user_data", "ud", "u"},
	"PointSourceID":   {"PointSourceID", "point_source", "point_source_id", "pointsourceid", "psid", "p"},
	"ScanAngle":       {"angle", "Angle", "ScanAngle", "ScanAngleRank", "scan_angle", "a"},
	"R":               {"R", "Red", "red"},
	"G":               {"G", "Green", "green"},
	"B":               {"B", "Blue", "blue"},
	"NIR":             {"N", "NIR", "nir"},
}

// MapAttribute normalizes a filter/CLI attribute token to its canonical
// schema name. Unknown tokens are returned unchanged, matching the
// original's fallback behavior.
func MapAttribute(attribute string) string {
	for canonical, aliases := range AttributeAliases {
		for _, alias := range aliases {
			if alias == attribute {
				return canonical
			}
		}
	}
	return attribute
}
