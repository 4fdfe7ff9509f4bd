// Package benchutil provides helpers for cache benchmarks and stress tests.
package benchutil

import (
	"os"
	"testing"

	"github.com/eunmann/columnlet-cache/pkg/cachekey"
)

// SkipIfNoLongBench skips the benchmark if COLUMNLET_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("COLUMNLET_LONG_BENCH") == "" {
		b.Skip("set COLUMNLET_LONG_BENCH=1 to run scaling benchmark")
	}
}

// GenerateKeys enumerates every (block, rowGroup, column) combination of a
// synthetic layout, the shape a metadata service would hand a worker.
func GenerateKeys(blocks, rowGroups, columns int) []cachekey.Key {
	keys := make([]cachekey.Key, 0, blocks*rowGroups*columns)
	for b := 0; b < blocks; b++ {
		for rg := 0; rg < rowGroups; rg++ {
			for c := 0; c < columns; c++ {
				keys = append(keys, cachekey.Key{
					BlockID:    uint64(b + 1),
					RowGroupID: uint16(rg),
					ColumnID:   uint16(c),
				})
			}
		}
	}
	return keys
}

// KeysToLengths generates synthetic columnlet lengths for a slice of keys.
// Returns lengths with a pattern that varies based on position.
func KeysToLengths(keys []cachekey.Key) []uint32 {
	lengths := make([]uint32, len(keys))
	for i := range keys {
		lengths[i] = uint32((i%1000 + 1) * 16)
	}
	return lengths
}
