package radix

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/eunmann/columnlet-cache/pkg/fileutil"
)

// Serializer builds a radix tree in memory and lays it out as a flat index
// region image. It is the offline side of the cache: readers never construct
// one at query time.
type Serializer struct {
	root       *buildNode
	count      int
	Generation uint64
}

type buildNode struct {
	edge     []byte
	children []*buildNode
	isKey    bool
	entry    Entry

	// assigned during layout
	offset int64
}

// NewSerializer creates an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{root: &buildNode{}}
}

// Count returns the number of keys inserted.
func (s *Serializer) Count() int {
	return s.count
}

// Put inserts or overwrites the payload for a key.
func (s *Serializer) Put(key [KeySize]byte, e Entry) {
	if s.insert(s.root, key[:], e) {
		s.count++
	}
}

// insert returns true if the key was new.
func (s *Serializer) insert(n *buildNode, key []byte, e Entry) bool {
	if len(key) == 0 {
		fresh := !n.isKey
		n.isKey = true
		n.entry = e
		return fresh
	}

	child := n.findChild(key[0])
	if child == nil {
		n.addChild(&buildNode{edge: append([]byte(nil), key...), isKey: true, entry: e})
		return true
	}

	p := commonPrefix(child.edge, key)
	if p == len(child.edge) {
		return s.insert(child, key[p:], e)
	}

	// Split the child's edge at the divergence point.
	lower := &buildNode{
		edge:     child.edge[p:],
		children: child.children,
		isKey:    child.isKey,
		entry:    child.entry,
	}
	child.edge = child.edge[:p]
	child.children = nil
	child.isKey = false
	child.entry = Entry{}
	child.addChild(lower)
	return s.insert(child, key[p:], e)
}

func (n *buildNode) findChild(leader byte) *buildNode {
	for _, c := range n.children {
		if c.edge[0] == leader {
			return c
		}
	}
	return nil
}

func (n *buildNode) addChild(c *buildNode) {
	n.children = append(n.children, c)
	// Lookup scans linearly so order doesn't matter, but a deterministic
	// image makes rebuilds comparable byte for byte.
	sort.Slice(n.children, func(i, j int) bool {
		return n.children[i].edge[0] < n.children[j].edge[0]
	})
}

func commonPrefix(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (n *buildNode) size() int64 {
	sz := int64(4 + 8*len(n.children) + len(n.edge))
	if n.isKey {
		sz += EntrySize
	}
	return sz
}

// layout assigns preorder offsets starting at RadixOffset and returns the
// total image size including the global header.
func (s *Serializer) layout() int64 {
	next := int64(RadixOffset)
	var walk func(n *buildNode)
	walk = func(n *buildNode) {
		n.offset = next
		next += n.size()
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s.root)
	return next
}

// Bytes renders the full index region image, global header included.
func (s *Serializer) Bytes() ([]byte, error) {
	total := s.layout()
	var buf bytes.Buffer
	buf.Grow(int(total))
	if err := s.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func (s *Serializer) write(w byteWriter) error {
	if _, err := w.Write(EncodeRegionHeader(RegionHeader{
		Magic:      MagicNumber,
		Version:    Version,
		Generation: s.Generation,
	})); err != nil {
		return fmt.Errorf("write region header: %w", err)
	}

	var walk func(n *buildNode) error
	walk = func(n *buildNode) error {
		if err := writeNode(w, n); err != nil {
			return err
		}
		for _, c := range n.children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s.root)
}

func writeNode(w byteWriter, n *buildNode) error {
	if len(n.children) > MaxChildren {
		return fmt.Errorf("node has %d children, max %d", len(n.children), MaxChildren)
	}
	if len(n.edge) > MaxEdgeLen {
		return fmt.Errorf("edge of %d bytes exceeds max %d", len(n.edge), MaxEdgeLen)
	}

	var scratch [8]byte
	header := PackNodeHeader(n.isKey, len(n.edge), len(n.children))
	binary.LittleEndian.PutUint32(scratch[:4], uint32(header))
	if _, err := w.Write(scratch[:4]); err != nil {
		return fmt.Errorf("write node header: %w", err)
	}

	for _, c := range n.children {
		binary.NativeEndian.PutUint64(scratch[:], PackChild(c.edge[0], c.offset))
		if _, err := w.Write(scratch[:]); err != nil {
			return fmt.Errorf("write child entry: %w", err)
		}
	}

	if len(n.edge) > 0 {
		if _, err := w.Write(n.edge); err != nil {
			return fmt.Errorf("write edge: %w", err)
		}
	}

	if n.isKey {
		var payload [EntrySize]byte
		EncodeEntry(payload[:], n.entry)
		if _, err := w.Write(payload[:]); err != nil {
			return fmt.Errorf("write leaf payload: %w", err)
		}
	}
	return nil
}

// WriteFile publishes the index region image at outPath with tmp+rename
// semantics so readers never attach to a half-written region.
func (s *Serializer) WriteFile(tmpDir, outPath string) error {
	return fileutil.WriteTmpThenMove(tmpDir, outPath, func(tmpPath string) error {
		f, err := os.Create(tmpPath)
		if err != nil {
			return fmt.Errorf("create index region: %w", err)
		}
		w := bufio.NewWriter(f)
		s.layout()
		if err := s.write(w); err != nil {
			f.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("flush index region: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close index region: %w", err)
		}
		return nil
	})
}

// DataWriter appends columnlet bytes to a data region file and hands back
// the Entry that addresses each appended slice.
type DataWriter struct {
	file   *os.File
	writer *bufio.Writer
	offset uint64

	tmpPath string
	outPath string
}

// NewDataWriter creates a data region writer publishing to outPath.
func NewDataWriter(tmpDir, outPath string) (*DataWriter, error) {
	tmpPath, err := fileutil.TmpPath(tmpDir, outPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create data region: %w", err)
	}
	return &DataWriter{
		file:    f,
		writer:  bufio.NewWriter(f),
		tmpPath: tmpPath,
		outPath: outPath,
	}, nil
}

// Append writes the columnlet bytes and returns their address in the region.
func (w *DataWriter) Append(b []byte) (Entry, error) {
	n, err := w.writer.Write(b)
	if err != nil {
		return Entry{}, fmt.Errorf("append columnlet: %w", err)
	}
	e := Entry{Offset: w.offset, Length: uint32(n)}
	w.offset += uint64(n)
	return e, nil
}

// Size returns the number of bytes appended so far.
func (w *DataWriter) Size() int64 {
	return int64(w.offset)
}

// Close flushes, syncs, and moves the region to its final path.
func (w *DataWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		os.Remove(w.tmpPath)
		return fmt.Errorf("flush data region: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(w.tmpPath)
		return fmt.Errorf("sync data region: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close data region: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.outPath); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename data region: %w", err)
	}
	return nil
}

// Abort removes the temporary file without publishing.
func (w *DataWriter) Abort() {
	w.writer = nil
	w.file.Close()
	os.Remove(w.tmpPath)
}
