package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw against a closed set of values, ignoring case and padding.
func parse[T ~string](set []T, raw, kind string) (T, error) {
	candidate := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(set, candidate) {
		return candidate, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

func member[T ~string](set []T, value T) bool {
	return slices.Contains(set, value)
}
