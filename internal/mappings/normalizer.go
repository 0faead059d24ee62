package mappings

import "strings"

// Normalize resolves free text against the canonical keys of table.
// The input is trimmed and compared case-insensitively for an exact match;
// there is no prefix or fuzzy matching. It returns the canonical key and
// true, or "" and false when nothing matches.
func Normalize[V any](input string, table Table[V]) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(input))
	for _, e := range table.entries {
		if want == strings.ToLower(e.Key) {
			return e.Key, true
		}
	}
	return "", false
}

// Lookup normalizes input and returns the canonical key with its value.
func Lookup[V any](input string, table Table[V]) (string, V, bool) {
	key, ok := Normalize(input, table)
	if !ok {
		var zero V
		return "", zero, false
	}
	v, _ := table.Value(key)
	return key, v, true
}
