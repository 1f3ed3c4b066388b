// Package strings provides string list utilities.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is like DedupeAndTrim but also lowercases each element.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

// SplitList splits a comma separated setting ("a, b,,a") into its distinct
// non-empty entries. Returns nil for an empty input.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(s, ","))
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
