package manifest

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.parquet")
	want := []Record{
		{BlockID: 1, RowGroupID: 0, ColumnID: 0, Source: "/data/a.pxl", SourceOffset: 0, Length: 4},
		{BlockID: 1, RowGroupID: 0, ColumnID: 1, Source: "/data/a.pxl", SourceOffset: 4, Length: 4},
		{BlockID: 2, RowGroupID: 3, ColumnID: 7, Source: "bucket/b.pxl", SourceOffset: 128, Length: 4096},
	}
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("record count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.parquet")); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
