package sim

import "strings"

// BuildName joins name segments with "." the way every agent, port and
// connection in the fabric is named, e.g. BuildName("Tile0", "L1", "ReqIn").
func BuildName(segments ...string) string {
	return strings.Join(segments, ".")
}

// ParseName splits a dotted component name back into its segments.
func ParseName(name string) []string {
	return strings.Split(name, ".")
}
