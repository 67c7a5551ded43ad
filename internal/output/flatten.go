package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Flatten turns an arbitrarily nested record into a single-level map.
// Nested map keys are joined with dots, lists of scalars become
// comma-joined strings, and lists containing maps or lists are
// JSON-encoded.
func Flatten(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	flattenInto(out, "", record)
	return out
}

func flattenInto(out map[string]any, parent string, m map[string]any) {
	for k, v := range m {
		key := k
		if parent != "" {
			key = parent + "." + k
		}

		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val)
		case []any:
			out[key] = flattenList(val)
		default:
			out[key] = v
		}
	}
}

func flattenList(list []any) string {
	scalar := true
	for _, v := range list {
		switch v.(type) {
		case map[string]any, []any:
			scalar = false
		}
	}

	if scalar {
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = scalarString(v)
		}
		return strings.Join(parts, ", ")
	}

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Sprintf("%v", list)
	}
	return string(data)
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integers without a
		// trailing ".0".
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// preferredColumns fixes the leading order for the common identity
// fields; any other column follows, sorted.
var preferredColumns = []string{"id", "email", "firstName", "lastName", "username", "language", "unit"}

// Columns computes the column order for a set of flattened rows:
// preferred identity columns first (those present, in their fixed
// order), remaining columns sorted.
func Columns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(seen))
	for _, k := range preferredColumns {
		if _, ok := seen[k]; ok {
			ordered = append(ordered, k)
			delete(seen, k)
		}
	}

	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}
