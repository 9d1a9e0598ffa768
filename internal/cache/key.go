package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// DeriveKey builds a cache key from a namespace prefix and request
// parameters. Parameter names are sorted, so the result does not depend on
// the order they were supplied in:
//
//	DeriveKey("stores", map[string]any{"lat": 1, "category": "food"})
//	// "stores_category=food&lat=1"
//
// An empty parameter set yields prefix + "_".
func DeriveKey(prefix string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + fmt.Sprint(params[name])
	}
	return prefix + "_" + strings.Join(pairs, "&")
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// FileName returns the record file name for key. Keys may contain any
// characters; the name is always a fixed-length hex string.
func FileName(key string) string {
	return HashKey(key) + recordExt
}
