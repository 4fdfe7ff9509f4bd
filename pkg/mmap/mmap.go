// Package mmap provides bounded random-access reads over a memory-mapped file.
package mmap

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a read-only view of a file mapped into the process address space.
//
// Thread Safety: Region is safe for concurrent read access from multiple
// goroutines once Open returns. All read methods can be called concurrently.
// Unmap should only be called once, after all read operations have completed.
type Region struct {
	path string
	data []byte
	size int64
}

// Open maps exactly size bytes of the file at path.
//
// It fails if the file does not exist, if size exceeds the file length, or
// if the mapping call fails. A size of zero yields an empty region on which
// every read is out of bounds.
func Open(path string, size int64) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if size < 0 {
		return nil, fmt.Errorf("map %s: negative size %d", path, size)
	}
	if size > info.Size() {
		return nil, fmt.Errorf("map %s: size %d exceeds file length %d", path, size, info.Size())
	}
	if size == 0 {
		return &Region{path: path, data: nil, size: 0}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Region{
		path: path,
		data: data,
		size: size,
	}, nil
}

// Unmap releases the mapping. It is idempotent; reads after Unmap return
// ErrOutOfBounds.
func (r *Region) Unmap() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	r.size = 0
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap %s: %w", r.path, err)
	}
	return nil
}

// Size returns the mapped length in bytes.
func (r *Region) Size() int64 {
	return r.size
}

// Path returns the path the region was mapped from.
func (r *Region) Path() string {
	return r.path
}

// GetInt reads a little-endian uint32 at the given offset.
func (r *Region) GetInt(off int64) (uint32, error) {
	if off < 0 || off+4 > r.size {
		return 0, ErrOutOfBounds
	}
	return binary.LittleEndian.Uint32(r.data[off:]), nil
}

// GetLong reads a uint64 at the given offset in native byte order.
//
// The index writer emits child entries in the byte order of the machine that
// built the file, so the reader must use the same order. Regions are not
// portable across machines of different endianness.
func (r *Region) GetLong(off int64) (uint64, error) {
	if off < 0 || off+8 > r.size {
		return 0, ErrOutOfBounds
	}
	return binary.NativeEndian.Uint64(r.data[off:]), nil
}

// GetBytes copies length bytes starting at off into dst[dstOff:].
func (r *Region) GetBytes(off int64, dst []byte, dstOff, length int) error {
	if length < 0 || off < 0 || off+int64(length) > r.size {
		return ErrOutOfBounds
	}
	if dstOff < 0 || dstOff+length > len(dst) {
		return ErrOutOfBounds
	}
	copy(dst[dstOff:dstOff+length], r.data[off:off+int64(length)])
	return nil
}

// UnsafeGetInt reads a little-endian uint32 without bounds checking.
//
// WARNING: This method performs NO bounds checking for performance.
// Passing an offset past Size()-4 will cause undefined behavior (likely a
// panic). Only use this in hot paths where the caller has already validated
// the offset. For safe access, use GetInt instead.
func (r *Region) UnsafeGetInt(off int64) uint32 {
	return binary.LittleEndian.Uint32(r.data[off:])
}

// UnsafeGetLong reads a native-order uint64 without bounds checking.
//
// WARNING: This method performs NO bounds checking for performance.
// Passing an offset past Size()-8 will cause undefined behavior (likely a
// panic). Only use this in hot paths where the caller has already validated
// the offset. For safe access, use GetLong instead.
func (r *Region) UnsafeGetLong(off int64) uint64 {
	return binary.NativeEndian.Uint64(r.data[off:])
}

// UnsafeGetBytes copies without bounds checking.
//
// WARNING: This method performs NO bounds checking for performance.
// Only use this in hot paths where the caller has already validated the
// range. For safe access, use GetBytes instead.
func (r *Region) UnsafeGetBytes(off int64, dst []byte, dstOff, length int) {
	copy(dst[dstOff:dstOff+length], r.data[off:off+int64(length)])
}
