package mmap

import "errors"

// ErrOutOfBounds indicates a read past the mapped length.
var ErrOutOfBounds = errors.New("read out of mapped bounds")
