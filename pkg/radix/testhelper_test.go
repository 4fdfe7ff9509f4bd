package radix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eunmann/columnlet-cache/pkg/cachekey"
	"github.com/eunmann/columnlet-cache/pkg/mmap"
)

// mapImage writes an index region image to a temp file and maps it.
func mapImage(t testing.TB, image []byte) *mmap.Region {
	t.Helper()
	path := filepath.Join(t.TempDir(), "columnlet.index")
	if err := os.WriteFile(path, image, 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	region, err := mmap.Open(path, int64(len(image)))
	if err != nil {
		t.Fatalf("map image: %v", err)
	}
	t.Cleanup(func() { region.Unmap() })
	return region
}

// openIndex maps an image and attaches an Index to it.
func openIndex(t testing.TB, image []byte) *Index {
	t.Helper()
	idx, err := New(mapImage(t, image))
	if err != nil {
		t.Fatalf("attach index: %v", err)
	}
	return idx
}

// buildImage serializes the given key -> entry mapping.
func buildImage(t *testing.T, entries map[cachekey.Key]Entry) []byte {
	t.Helper()
	s := NewSerializer()
	for k, e := range entries {
		s.Put(k.Bytes(), e)
	}
	image, err := s.Bytes()
	if err != nil {
		t.Fatalf("serialize image: %v", err)
	}
	return image
}

func mustSearch(t *testing.T, idx *Index, k cachekey.Key) (Entry, bool) {
	t.Helper()
	e, ok, err := idx.Search(k.Bytes())
	if err != nil {
		t.Fatalf("search (%d,%d,%d): %v", k.BlockID, k.RowGroupID, k.ColumnID, err)
	}
	return e, ok
}
