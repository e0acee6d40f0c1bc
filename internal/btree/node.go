package btree

import (
	"encoding/binary"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
)

// maxLeafEntries and maxInteriorChildren bound one page's fan-out. Spec
// section 4.F derives these from the page size and a node's exact on-disk
// record layout; this implementation uses a representative fixed capacity
// instead of reverse-engineering the real format's byte budget.
const (
	maxLeafEntries      = 64
	maxInteriorChildren = 32
)

// leafNode holds the entries on one INDEX_LEAF page.
type leafNode struct {
	entries []Entry
	next    int // right sibling page number, page.LastPageNumber if none
}

// interiorNode holds (separatorKey, childPage) pairs on one INDEX_NODE page.
// children has one more element than separators: children[i] holds keys <
// separators[i], and children[len(separators)] holds the rest.
type interiorNode struct {
	separators []Entry
	children   []int
}

func newLeafPage(buf *page.Buffer) {
	buf.PutByte(0, page.TypeIndexLeaf)
	buf.PutUint32(1, uint32(int32(page.LastPageNumber)))
	buf.PutUint16(5, 0)
}

func writeLeaf(buf *page.Buffer, n *leafNode) error {
	buf.PutByte(0, page.TypeIndexLeaf)
	buf.PutUint32(1, uint32(int32(n.next)))
	buf.PutUint16(5, uint16(len(n.entries)))
	off := 7
	for _, e := range n.entries {
		need := 2 + len(e.Key) + 8
		if off+need > buf.Len() {
			return errors.NewIllegalState("leaf page overflowed its backing buffer")
		}
		buf.PutUint16(off, uint16(len(e.Key)))
		off += 2
		buf.PutBytes(off, e.Key)
		off += len(e.Key)
		writeRowId(buf, off, e.Row)
		off += 8
	}
	return nil
}

func readLeaf(buf *page.Buffer) (*leafNode, error) {
	if buf.GetByte(0) != page.TypeIndexLeaf {
		return nil, errors.NewIllegalState("expected an index leaf page")
	}
	n := &leafNode{next: int(int32(buf.GetUint32(1)))}
	count := int(buf.GetUint16(5))
	off := 7
	for i := 0; i < count; i++ {
		keyLen := int(buf.GetUint16(off))
		off += 2
		key := buf.GetBytes(off, keyLen)
		off += keyLen
		row := readRowId(buf, off)
		off += 8
		n.entries = append(n.entries, Entry{Key: key, Row: row})
	}
	return n, nil
}

func writeInterior(buf *page.Buffer, n *interiorNode) error {
	buf.PutByte(0, page.TypeIndexNode)
	buf.PutUint16(5, uint16(len(n.separators)))
	off := 7
	for i, e := range n.separators {
		buf.PutUint32(off, uint32(int32(n.children[i])))
		off += 4
		need := 2 + len(e.Key) + 8
		if off+need > buf.Len() {
			return errors.NewIllegalState("interior page overflowed its backing buffer")
		}
		buf.PutUint16(off, uint16(len(e.Key)))
		off += 2
		buf.PutBytes(off, e.Key)
		off += len(e.Key)
		writeRowId(buf, off, e.Row)
		off += 8
	}
	buf.PutUint32(off, uint32(int32(n.children[len(n.separators)])))
	return nil
}

func readInterior(buf *page.Buffer) (*interiorNode, error) {
	if buf.GetByte(0) != page.TypeIndexNode {
		return nil, errors.NewIllegalState("expected an index interior page")
	}
	n := &interiorNode{}
	count := int(buf.GetUint16(5))
	off := 7
	for i := 0; i < count; i++ {
		child := int(int32(buf.GetUint32(off)))
		off += 4
		keyLen := int(buf.GetUint16(off))
		off += 2
		key := buf.GetBytes(off, keyLen)
		off += keyLen
		row := readRowId(buf, off)
		off += 8
		n.children = append(n.children, child)
		n.separators = append(n.separators, Entry{Key: key, Row: row})
	}
	n.children = append(n.children, int(int32(buf.GetUint32(off))))
	return n, nil
}

func writeRowId(buf *page.Buffer, off int, r model.RowId) {
	binary.LittleEndian.PutUint32(buf.Bytes()[off:], uint32(int32(r.PageNumber())))
	binary.LittleEndian.PutUint32(buf.Bytes()[off+4:], uint32(int32(r.RowNumber())))
}

func readRowId(buf *page.Buffer, off int) model.RowId {
	pn := int(int32(binary.LittleEndian.Uint32(buf.Bytes()[off:])))
	rn := int(int32(binary.LittleEndian.Uint32(buf.Bytes()[off+4:])))
	return model.NewRowId(pn, rn)
}
