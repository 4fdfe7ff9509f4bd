package cachekey

import (
	"bytes"
	"testing"
)

func TestEncodeLayout(t *testing.T) {
	got := Encode(0x0102030405060708, 0x0A0B, 0x0C0D)
	want := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, // blockId, MSB first
		0x0A, 0x0B, // rowGroupId
		0x0C, 0x0D, // columnId
	}
	if !bytes.Equal(got[:], want) {
		t.Fatalf("encode layout mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		blockID    uint64
		rowGroupID uint16
		columnID   uint16
	}{
		{0, 0, 0},
		{1, 2, 3},
		{0xFFFFFFFFFFFFFFFF, 0xFFFF, 0xFFFF},
		{0x8000000000000000, 0x8000, 0x0001},
		{42, 0, 65535},
	}
	for _, c := range cases {
		buf := Encode(c.blockID, c.rowGroupID, c.columnID)
		b, g, col := Decode(buf[:])
		if b != c.blockID || g != c.rowGroupID || col != c.columnID {
			t.Errorf("round trip (%d,%d,%d) = (%d,%d,%d)",
				c.blockID, c.rowGroupID, c.columnID, b, g, col)
		}
	}
}

func TestEncodeIntoMatchesEncode(t *testing.T) {
	want := Encode(7, 8, 9)
	got := make([]byte, Size)
	EncodeInto(got, 7, 8, 9)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("EncodeInto = %x, Encode = %x", got, want)
	}
}

func TestKeyBytes(t *testing.T) {
	k := Key{BlockID: 1, RowGroupID: 2, ColumnID: 3}
	if k.Bytes() != Encode(1, 2, 3) {
		t.Fatal("Key.Bytes disagrees with Encode")
	}
}
