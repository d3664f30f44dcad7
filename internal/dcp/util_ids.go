package dcp

import (
	"sort"
	"strconv"
	"strings"
)

// lowerID normalizes a tool-call-id for case-insensitive comparison
// (spec §3 invariant: "Tool-call-id comparisons are always case-insensitive").
func lowerID(id string) string {
	return strings.ToLower(id)
}

// sortedKeys returns the map's keys sorted lexically, used as a
// deterministic fallback in ParamKey and for the compress boundary search
// over tool inputs. (The dedup signature gets its key order from
// encoding/json instead.)
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseIndex parses a model-supplied numeric index string. Returns false
// if it is not a valid non-negative integer.
func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
