// Package manifest reads and writes the columnlet manifest consumed by the
// offline cache build.
//
// A manifest is a Parquet file with one row per columnlet to admit into the
// cache: the cache key fields plus the source slice the bytes come from.
package manifest

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Record describes one columnlet to cache.
type Record struct {
	BlockID      uint64 `parquet:"block_id"`
	RowGroupID   uint16 `parquet:"row_group_id"`
	ColumnID     uint16 `parquet:"column_id"`
	Source       string `parquet:"source"`
	SourceOffset uint64 `parquet:"source_offset"`
	Length       uint32 `parquet:"length"`
}

// ReadFile loads a complete manifest. Manifests are small relative to the
// data they describe (one row per columnlet), so no streaming is needed on
// the read side.
func ReadFile(path string) ([]Record, error) {
	records, err := parquet.ReadFile[Record](path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return records, nil
}

// WriteFile writes a manifest. Used by tooling and tests.
func WriteFile(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}

	w := parquet.NewGenericWriter[Record](f)
	if _, err := w.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("write manifest rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close manifest writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest %s: %w", path, err)
	}
	return nil
}
