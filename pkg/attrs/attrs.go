// Package attrs reads values back out of slog-style key/value attribute lists.
package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string
// or fmt.Stringer.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// Details converts the remaining attributes into a string map, skipping the
// listed keys. Non-string values are dropped.
func Details(attrs []any, skip ...string) map[string]string {
	skipped := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipped[k] = struct{}{}
	}
	out := map[string]string{}
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if _, drop := skipped[k]; drop {
			continue
		}
		if v := ExtractString(attrs[i:i+2], k); v != "" {
			out[k] = v
		}
	}
	return out
}
