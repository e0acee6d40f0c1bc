package cursor

import (
	"bytes"

	"github.com/brackendb/jetstore/internal/btree"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
)

// IndexSource is the narrow seam IndexCursor reads through.
type IndexSource interface {
	FirstLeaf() (int, error)
	LeafForEntry(key btree.Entry) (int, error)
	ReadLeaf(pageNum int) (entries []btree.Entry, next int, err error)
}

// IndexCursor walks a btree.IndexData's leaves in key order, spec section
// 4.G.
type IndexCursor struct {
	source  IndexSource
	state   State
	leafNum int
	idx     int
	entries []btree.Entry
}

// NewIndexCursor builds a cursor positioned BeforeFirst.
func NewIndexCursor(source IndexSource) *IndexCursor {
	return &IndexCursor{source: source, state: BeforeFirst}
}

func (c *IndexCursor) State() State { return c.state }

func (c *IndexCursor) BeforeFirst() {
	c.state = BeforeFirst
	c.entries = nil
	c.idx = -1
}

func (c *IndexCursor) AfterLast() {
	c.state = AfterLast
	c.entries = nil
	c.idx = -1
}

// FindFirstRowByEntry positions the cursor at the first stored entry whose
// key is >= target.Key (a "find first by entry" seek, spec section 4.G),
// returning false if no such entry exists.
func (c *IndexCursor) FindFirstRowByEntry(target btree.Entry) (bool, error) {
	leafNum, err := c.source.LeafForEntry(target)
	if err != nil {
		return false, err
	}
	for leafNum != page.LastPageNumber {
		entries, next, err := c.source.ReadLeaf(leafNum)
		if err != nil {
			return false, err
		}
		for i, e := range entries {
			if btree.Compare(e, target) >= 0 {
				c.leafNum = leafNum
				c.entries = entries
				c.idx = i
				c.state = OnRow
				return true, nil
			}
		}
		leafNum = next
	}
	c.AfterLast()
	return false, nil
}

// FindByPrefix seeks to the first entry whose key begins with prefix; Next
// should be called until HasPrefix(prefix) is false to enumerate the run.
func (c *IndexCursor) FindByPrefix(prefix []byte) (bool, error) {
	return c.FindFirstRowByEntry(btree.Entry{Key: prefix})
}

// HasPrefix reports whether the cursor's current entry's key begins with
// prefix.
func (c *IndexCursor) HasPrefix(prefix []byte) bool {
	if c.state != OnRow {
		return false
	}
	return bytes.HasPrefix(c.entries[c.idx].Key, prefix)
}

// Next advances to the next entry in key order.
func (c *IndexCursor) Next() (bool, error) {
	switch c.state {
	case BeforeFirst:
		leafNum, err := c.source.FirstLeaf()
		if err != nil {
			return false, err
		}
		return c.loadFrom(leafNum, 0)
	case AfterLast:
		return false, nil
	default:
		return c.loadFrom(c.leafNum, c.idx+1)
	}
}

func (c *IndexCursor) loadFrom(leafNum, idx int) (bool, error) {
	for leafNum != page.LastPageNumber {
		entries, next, err := c.source.ReadLeaf(leafNum)
		if err != nil {
			return false, err
		}
		if idx < len(entries) {
			c.leafNum = leafNum
			c.entries = entries
			c.idx = idx
			c.state = OnRow
			return true, nil
		}
		leafNum = next
		idx = 0
	}
	c.AfterLast()
	return false, nil
}

// Current returns the entry at the cursor's position. Valid only when
// State() == OnRow.
func (c *IndexCursor) Current() btree.Entry { return c.entries[c.idx] }

// CurrentRowId is a convenience accessor for Current().Row.
func (c *IndexCursor) CurrentRowId() model.RowId { return c.entries[c.idx].Row }
