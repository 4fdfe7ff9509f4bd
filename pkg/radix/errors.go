package radix

import "errors"

var (
	// ErrCorruptIndex indicates a structural inconsistency in the index
	// region: a bad header, a child offset outside the region, a child
	// count overflow, or a non-terminating descent.
	ErrCorruptIndex = errors.New("corrupt index region")
	// ErrMagicMismatch indicates the region header magic doesn't match.
	ErrMagicMismatch = errors.New("index magic number mismatch")
	// ErrVersionMismatch indicates an unsupported index region version.
	ErrVersionMismatch = errors.New("unsupported index region version")
)
