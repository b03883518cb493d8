package domain

// CloneValue deep-copies the JSON-shaped values found in system blocks and
// patches: maps, slices and scalars.
func CloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, entry := range typed {
			out[i] = CloneValue(entry)
		}
		return out
	default:
		return v
	}
}

func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = CloneValue(value)
	}

	return out
}

// MergeMap deep-merges patch into dst. Nested maps merge, everything else is
// replaced.
func MergeMap(dst, patch map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}

	for key, value := range patch {
		incoming, ok := value.(map[string]any)
		if !ok {
			dst[key] = CloneValue(value)
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok {
			dst[key] = CloneMap(incoming)
			continue
		}
		dst[key] = MergeMap(existing, incoming)
	}

	return dst
}

// NumberAt walks path through nested maps and returns a numeric leaf.
func NumberAt(m map[string]any, path ...string) (float64, bool) {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return 0, false
		}
		current, ok = node[key]
		if !ok {
			return 0, false
		}
	}

	switch n := current.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
