// Package fsutil removes filesystem-order non-determinism from directory
// and map enumeration.
package fsutil

import (
	"fmt"
	"os"
	"sort"
)

// StableListing returns the entry names of a directory sorted
// lexicographically. The result depends only on the set of names, never on
// the order the filesystem happens to enumerate them in.
func StableListing(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SortedKeys returns a map's string keys in lexicographic order, for
// deterministic iteration.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
