// Package cachekey encodes columnlet cache keys for the radix index.
//
// A key identifies one columnlet: the bytes of one column within one row
// group of one file. Its binary form is the search key of the index, byte by
// byte, MSB first.
package cachekey

import "encoding/binary"

// Size is the encoded key length in bytes.
const Size = 12

// Key identifies a columnlet.
type Key struct {
	BlockID    uint64
	RowGroupID uint16
	ColumnID   uint16
}

// Encode returns the 12-byte big-endian form of the key.
func Encode(blockID uint64, rowGroupID, columnID uint16) [Size]byte {
	var buf [Size]byte
	EncodeInto(buf[:], blockID, rowGroupID, columnID)
	return buf
}

// EncodeInto writes the 12-byte big-endian form into dst, which must be at
// least Size bytes long.
func EncodeInto(dst []byte, blockID uint64, rowGroupID, columnID uint16) {
	binary.BigEndian.PutUint64(dst[0:8], blockID)
	binary.BigEndian.PutUint16(dst[8:10], rowGroupID)
	binary.BigEndian.PutUint16(dst[10:12], columnID)
}

// Decode is the inverse of Encode. It is used only in diagnostics.
func Decode(buf []byte) (blockID uint64, rowGroupID, columnID uint16) {
	blockID = binary.BigEndian.Uint64(buf[0:8])
	rowGroupID = binary.BigEndian.Uint16(buf[8:10])
	columnID = binary.BigEndian.Uint16(buf[10:12])
	return blockID, rowGroupID, columnID
}

// Bytes returns the encoded form of k.
func (k Key) Bytes() [Size]byte {
	return Encode(k.BlockID, k.RowGroupID, k.ColumnID)
}
