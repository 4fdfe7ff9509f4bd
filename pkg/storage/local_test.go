package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalReadRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.pxl")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLocal()
	got, err := l.ReadRange(context.Background(), path, 3, 4)
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if !bytes.Equal(got, []byte("3456")) {
		t.Fatalf("range = %q", got)
	}
}

func TestLocalReadRangePastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "block.pxl")
	if err := os.WriteFile(path, []byte("0123"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewLocal().ReadRange(context.Background(), path, 2, 8); err == nil {
		t.Fatal("expected error reading past end")
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{"bucket/key", "bucket", "key", false},
		{"s3://bucket/a/b/c", "bucket", "a/b/c", false},
		{"bucketonly", "", "", true},
		{"/key", "", "", true},
		{"bucket/", "", "", true},
	}
	for _, c := range cases {
		bucket, key, err := splitPath(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("splitPath(%q): expected error", c.in)
			}
			continue
		}
		if err != nil || bucket != c.bucket || key != c.key {
			t.Errorf("splitPath(%q) = %q, %q, %v", c.in, bucket, key, err)
		}
	}
}
