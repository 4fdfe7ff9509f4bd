package radix

import (
	"encoding/binary"
	"fmt"

	"github.com/eunmann/columnlet-cache/pkg/mmap"
)

// maxNodeVisits caps a single descent. A well-formed tree over 12-byte keys
// is at most 13 nodes deep; anything past this bound is a cycle introduced
// by corruption.
const maxNodeVisits = 64

// Counters records per-lookup observability. It lives next to the lookup
// result, never on it, so accounting can't affect semantics. Callers that
// want counts pass their own instance; a nil Counters disables accounting.
type Counters struct {
	NodeVisits  int
	RadixLevel  int
	RegionReads int
}

// Index answers point lookups against a mapped index region.
//
// Thread Safety: Index is safe for concurrent use from multiple goroutines.
// All per-lookup scratch lives on the caller's stack. Close the underlying
// region only after all lookups have completed.
type Index struct {
	region     *mmap.Region
	generation uint64
}

// New interprets region as an index region. It validates the global header;
// the tree itself is trusted until a descent proves otherwise.
func New(region *mmap.Region) (*Index, error) {
	buf := make([]byte, RegionHeaderSize)
	if err := region.GetBytes(0, buf, 0, RegionHeaderSize); err != nil {
		return nil, fmt.Errorf("read region header: %w", err)
	}
	header, err := DecodeRegionHeader(buf)
	if err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, ErrMagicMismatch
	}
	if header.Version != Version {
		return nil, ErrVersionMismatch
	}
	return &Index{region: region, generation: header.Generation}, nil
}

// Generation returns the writer-assigned generation of the region.
func (idx *Index) Generation() uint64 {
	return idx.generation
}

// Search descends the tree for the given key. It returns the leaf payload
// and true on a full 12-byte match at a key node. A miss returns a zero
// Entry, false and a nil error; a structural inconsistency returns
// ErrCorruptIndex, which the caller must treat as a miss.
func (idx *Index) Search(key [KeySize]byte) (Entry, bool, error) {
	return idx.SearchCounted(key, nil)
}

// SearchCounted is Search with per-lookup accounting written into c.
func (idx *Index) SearchCounted(key [KeySize]byte, c *Counters) (Entry, bool, error) {
	var children [MaxChildren * 8]byte
	var edge [KeySize]byte

	current := int64(RadixOffset)
	header, err := idx.readHeader(current, c)
	if err != nil {
		return Entry{}, false, err
	}
	childCount := header.ChildCount()
	edgeLen := header.EdgeLen()

	if childCount == 0 && edgeLen == 0 {
		// Empty tree.
		return Entry{}, false, nil
	}
	if edgeLen != 0 {
		// The root's edge is empty by contract; a header advertising edge
		// bytes would otherwise be consumed from the children table.
		return Entry{}, false, fmt.Errorf("%w: root node advertises edge of %d bytes", ErrCorruptIndex, edgeLen)
	}
	if c != nil {
		c.RadixLevel++
	}

	matched := 0
	matchedInNode := 0
	visits := 0

	for matched < KeySize {
		visits++
		if visits > maxNodeVisits {
			return Entry{}, false, fmt.Errorf("%w: descent exceeded %d nodes", ErrCorruptIndex, maxNodeVisits)
		}
		if childCount > MaxChildren {
			return Entry{}, false, fmt.Errorf("%w: node at %d has %d children", ErrCorruptIndex, current, childCount)
		}

		// Bulk-read the child table, then scan for the leader byte. The
		// leader is redundant with the child's first edge byte, which lets
		// the scan skip non-matching children without dereferencing them.
		if err := idx.region.GetBytes(current+4, children[:], 0, childCount*8); err != nil {
			return Entry{}, false, fmt.Errorf("%w: child table at %d: %v", ErrCorruptIndex, current, err)
		}
		if c != nil {
			c.RegionReads++
		}
		var next int64
		for i := 0; i < childCount; i++ {
			child := binary.NativeEndian.Uint64(children[i*8:])
			if ChildLeader(child) == key[matched] {
				next = ChildOffset(child)
				break
			}
		}
		if next == 0 {
			// No child covers the next key byte.
			return Entry{}, false, nil
		}

		current = next
		header, err = idx.readHeader(current, c)
		if err != nil {
			return Entry{}, false, err
		}
		childCount = header.ChildCount()
		edgeLen = header.EdgeLen()
		matchedInNode = 0
		if c != nil {
			c.NodeVisits++
			c.RadixLevel++
		}

		// The full edge extent must lie inside the region even when only a
		// prefix of it is compared.
		edgeOff := current + 4 + int64(childCount)*8
		if edgeOff+int64(edgeLen) > idx.region.Size() {
			return Entry{}, false, fmt.Errorf("%w: edge at %d runs past region end", ErrCorruptIndex, current)
		}
		cmp := edgeLen
		if remaining := KeySize - matched; cmp > remaining {
			cmp = remaining
		}
		if cmp > 0 {
			if err := idx.region.GetBytes(edgeOff, edge[:], 0, cmp); err != nil {
				return Entry{}, false, fmt.Errorf("%w: edge at %d: %v", ErrCorruptIndex, current, err)
			}
			if c != nil {
				c.RegionReads++
			}
		}
		for i := 0; i < cmp; i++ {
			if edge[i] != key[matched] {
				// Divergence inside the edge.
				return Entry{}, false, nil
			}
			matched++
			matchedInNode++
		}
	}

	// Accept only a full key match that also consumed the final node's
	// entire edge at a node carrying a payload.
	if matched == KeySize && matchedInNode == edgeLen && header.IsKey() {
		payloadOff := current + 4 + int64(childCount)*8 + int64(edgeLen)
		var payload [EntrySize]byte
		if err := idx.region.GetBytes(payloadOff, payload[:], 0, EntrySize); err != nil {
			return Entry{}, false, fmt.Errorf("%w: leaf payload at %d: %v", ErrCorruptIndex, payloadOff, err)
		}
		if c != nil {
			c.RegionReads++
		}
		return DecodeEntry(payload[:]), true, nil
	}
	return Entry{}, false, nil
}

func (idx *Index) readHeader(off int64, c *Counters) (NodeHeader, error) {
	raw, err := idx.region.GetInt(off)
	if err != nil {
		return 0, fmt.Errorf("%w: node header at %d: %v", ErrCorruptIndex, off, err)
	}
	if c != nil {
		c.RegionReads++
	}
	return NodeHeader(raw), nil
}
