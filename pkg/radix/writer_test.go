package radix

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/eunmann/columnlet-cache/pkg/cachekey"
	"github.com/eunmann/columnlet-cache/pkg/fileutil"
	"github.com/eunmann/columnlet-cache/pkg/mmap"
)

func randomKeys(n int, seed int64) []cachekey.Key {
	rng := rand.New(rand.NewSource(seed))
	seen := make(map[cachekey.Key]bool, n)
	keys := make([]cachekey.Key, 0, n)
	for len(keys) < n {
		k := cachekey.Key{
			BlockID:    rng.Uint64() % 1000,
			RowGroupID: uint16(rng.Intn(64)),
			ColumnID:   uint16(rng.Intn(32)),
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

func TestSerializerRoundTrip(t *testing.T) {
	keys := randomKeys(500, 42)
	s := NewSerializer()
	for i, k := range keys {
		s.Put(k.Bytes(), Entry{Offset: uint64(i) * 64, Length: uint32(i + 1)})
	}
	if s.Count() != len(keys) {
		t.Fatalf("count = %d, want %d", s.Count(), len(keys))
	}

	image, err := s.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	idx := openIndex(t, image)

	for i, k := range keys {
		e, ok := mustSearch(t, idx, k)
		if !ok {
			t.Fatalf("key %d missed", i)
		}
		if e.Offset != uint64(i)*64 || e.Length != uint32(i+1) {
			t.Fatalf("key %d entry = %+v", i, e)
		}
	}

	// Absent keys miss.
	inserted := make(map[cachekey.Key]bool, len(keys))
	for _, k := range keys {
		inserted[k] = true
	}
	for _, k := range randomKeys(100, 43) {
		if inserted[k] {
			continue
		}
		if _, ok := mustSearch(t, idx, k); ok {
			t.Fatalf("absent key %+v hit", k)
		}
	}
}

func TestSerializerOverwrite(t *testing.T) {
	k := cachekey.Key{BlockID: 9, RowGroupID: 9, ColumnID: 9}
	s := NewSerializer()
	s.Put(k.Bytes(), Entry{Offset: 1, Length: 1})
	s.Put(k.Bytes(), Entry{Offset: 2, Length: 2})
	if s.Count() != 1 {
		t.Fatalf("count = %d after overwrite", s.Count())
	}

	image, err := s.Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	e, ok := mustSearch(t, openIndex(t, image), k)
	if !ok || e.Offset != 2 || e.Length != 2 {
		t.Fatalf("overwritten entry = %+v %v", e, ok)
	}
}

// TestSerializerDeterministic checks that the image does not depend on
// insertion order, so rebuilds are byte comparable.
func TestSerializerDeterministic(t *testing.T) {
	keys := randomKeys(200, 7)

	forward := NewSerializer()
	for i, k := range keys {
		forward.Put(k.Bytes(), Entry{Offset: uint64(i), Length: 1})
	}
	backward := NewSerializer()
	for i := len(keys) - 1; i >= 0; i-- {
		backward.Put(keys[i].Bytes(), Entry{Offset: uint64(i), Length: 1})
	}

	a, err := forward.Bytes()
	if err != nil {
		t.Fatalf("serialize forward: %v", err)
	}
	b, err := backward.Bytes()
	if err != nil {
		t.Fatalf("serialize backward: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("image depends on insertion order")
	}
}

func TestWriteFilePublishesValidRegion(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "columnlet.index")

	s := NewSerializer()
	s.Generation = 7
	k := cachekey.Key{BlockID: 1, RowGroupID: 2, ColumnID: 3}
	s.Put(k.Bytes(), Entry{Offset: 0, Length: 5})

	if err := s.WriteFile(filepath.Join(dir, "tmp"), outPath); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !fileutil.IndexRegionValid(outPath) {
		t.Fatal("published region fails validation")
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	region, err := mmap.Open(outPath, info.Size())
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	defer region.Unmap()

	idx, err := New(region)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if idx.Generation() != 7 {
		t.Errorf("generation = %d", idx.Generation())
	}
	if e, ok := mustSearch(t, idx, k); !ok || e.Length != 5 {
		t.Errorf("lookup after publish = %+v %v", e, ok)
	}
}

func TestDataWriterAppends(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "columnlet.cache")

	w, err := NewDataWriter(filepath.Join(dir, "tmp"), outPath)
	if err != nil {
		t.Fatalf("new data writer: %v", err)
	}

	e1, err := w.Append([]byte("AAAA"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	e2, err := w.Append([]byte("BBBB"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e1 != (Entry{Offset: 0, Length: 4}) || e2 != (Entry{Offset: 4, Length: 4}) {
		t.Fatalf("entries = %+v %+v", e1, e2)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(content) != "AAAABBBB" {
		t.Fatalf("data region = %q", content)
	}
}
