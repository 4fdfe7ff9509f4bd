package storage

import (
	"context"
	"fmt"
	"os"
)

// Local reads ranges from the local filesystem.
type Local struct{}

// NewLocal creates a local filesystem backend.
func NewLocal() *Local {
	return &Local{}
}

// ReadRange reads length bytes at offset from the file at path.
func (l *Local) ReadRange(_ context.Context, path string, offset int64, length int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read %s at %d: %w", path, offset, err)
	}
	return buf, nil
}
