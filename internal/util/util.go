// Package util contains small generic helpers shared by the parselet engine
// and the cache stores.
package util

import (
	"sort"
)

// SortBy returns a copy of items sorted with the given less function. The
// sort is stable.
func SortBy[E any](items []E, less func(l, r E) bool) []E {
	sorted := make([]E, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	return sorted
}
