// Package normalize converts the two upstream schema generations into
// the canonical in-memory model. Dispatch happens purely on an explicit
// generation tag supplied by the caller, never by sniffing the payload
// shape. Every field the upstream may omit has an explicit default;
// container defaults are freshly allocated per record so normalized
// records never alias each other.
package normalize

import (
	"fmt"
	"strings"
)

// System canonicalizes an operating system name. The catalog uses the
// non-standard spelling "mac" in some payloads, everything else only
// needs lowercasing.
func System(name string) string {
	name = strings.ToLower(name)
	if name == "mac" {
		return "osx"
	}
	return name
}

// Search reduces a title to the characters used for search matching.
func Search(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// CompressSystems packs a system list into its first letters ("wlo").
func CompressSystems(systems []string) string {
	var b strings.Builder
	for _, system := range systems {
		if system != "" {
			b.WriteByte(system[0])
		}
	}
	return b.String()
}

var decompressMap = map[byte]string{
	'w': "windows",
	'l': "linux",
	'o': "osx",
}

// DecompressSystems is the inverse of CompressSystems.
func DecompressSystems(compressed string) ([]string, error) {
	systems := make([]string, 0, len(compressed))
	for i := 0; i < len(compressed); i++ {
		system, ok := decompressMap[compressed[i]]
		if !ok {
			return nil, fmt.Errorf("unknown system letter %q", compressed[i])
		}
		systems = append(systems, system)
	}
	return systems, nil
}

// Bitness collapses an os bitness list into one of "32", "64", "any" or
// "other". Possible inputs are ["32"], ["64"] and ["!32", "!64"]; the
// last one marks depots carrying only support files.
func Bitness(bitness []string) string {
	switch {
	case len(bitness) == 0:
		return "any"
	case len(bitness) == 1 && bitness[0] == "32":
		return "32"
	case len(bitness) == 1 && bitness[0] == "64":
		return "64"
	default:
		return "other"
	}
}

// defaultStrings returns value unless the field was omitted, in which
// case a fresh copy of the default is allocated.
func defaultStrings(value []string, defaults ...string) []string {
	if value == nil {
		return append([]string{}, defaults...)
	}
	return value
}
