package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key derives a deterministic cache key from a function identity and its
// inputs. The layout is "<kind>_<fn>_<digest>": kind and function name
// stay readable so pattern invalidation can target e.g. all memoized
// search entries, while the argument digest keeps keys fixed-length.
//
// Positional args are stringified in order; named args and ambient
// request parameters are folded in sorted by name, so two logically
// identical calls always hash identically. Nothing volatile (timestamps,
// addresses) enters the key, which keeps it stable across process
// restarts — required for the filesystem and Redis backends to be useful
// across deploys.
func Key(kind, fn string, args []any, named map[string]any, ambient map[string]string) string {
	parts := []string{kind, fn}

	for _, arg := range args {
		parts = append(parts, fmt.Sprintf("%v", arg))
	}

	for _, name := range sortedKeys(named) {
		parts = append(parts, fmt.Sprintf("%s:%v", name, named[name]))
	}

	ambientNames := make([]string, 0, len(ambient))
	for name := range ambient {
		ambientNames = append(ambientNames, name)
	}
	sort.Strings(ambientNames)
	for _, name := range ambientNames {
		parts = append(parts, fmt.Sprintf("%s:%s", name, ambient[name]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "_")))
	return kind + "_" + fn + "_" + hex.EncodeToString(sum[:])
}

func sortedKeys(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
