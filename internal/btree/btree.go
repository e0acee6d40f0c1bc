package btree

import (
	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/page"
)

// IndexData is the physical backing store for one or more model.Index
// values that share a shape (see model.Index.SameShape), grounded on spec
// section 4.I's "IndexData reuse" design. It owns a chain of INDEX_NODE /
// INDEX_LEAF pages rooted at Root.
type IndexData struct {
	pager *page.Pager
	Root  int
}

// Create allocates a fresh, empty IndexData. Must be called inside a write
// region.
func Create(pager *page.Pager) (*IndexData, error) {
	root := pager.AllocateNewPage()
	buf := pager.CreatePageBuffer()
	newLeafPage(buf)
	if err := pager.WritePage(buf, root); err != nil {
		return nil, err
	}
	return &IndexData{pager: pager, Root: root}, nil
}

// Open reuses an existing IndexData rooted at root.
func Open(pager *page.Pager, root int) *IndexData {
	return &IndexData{pager: pager, Root: root}
}

type pathStep struct {
	pageNum  int
	node     *interiorNode
	childIdx int
}

// descendToLeaf walks from Root to the leaf page that would contain key,
// recording the interior path taken so callers can propagate a split back
// up without a second traversal.
func (ix *IndexData) descendToLeaf(key Entry) ([]pathStep, int, *leafNode, error) {
	pageNum := ix.Root
	var path []pathStep
	for {
		buf, err := ix.pager.ReadPage(pageNum)
		if err != nil {
			return nil, 0, nil, err
		}
		switch buf.GetByte(0) {
		case page.TypeIndexLeaf:
			leaf, err := readLeaf(buf)
			if err != nil {
				return nil, 0, nil, err
			}
			return path, pageNum, leaf, nil
		case page.TypeIndexNode:
			node, err := readInterior(buf)
			if err != nil {
				return nil, 0, nil, err
			}
			idx := len(node.separators)
			for i, sep := range node.separators {
				if Compare(key, sep) < 0 {
					idx = i
					break
				}
			}
			path = append(path, pathStep{pageNum: pageNum, node: node, childIdx: idx})
			pageNum = node.children[idx]
		default:
			return nil, 0, nil, errors.NewIllegalState("unexpected page type while descending index")
		}
	}
}

// Insert adds entry to the tree. Must be called inside a write region.
func (ix *IndexData) Insert(entry Entry) error {
	path, leafPageNum, leaf, err := ix.descendToLeaf(entry)
	if err != nil {
		return err
	}
	leaf.entries = insertSorted(leaf.entries, entry)

	if len(leaf.entries) <= maxLeafEntries {
		return ix.writeLeafPage(leafPageNum, leaf)
	}
	return ix.splitLeafAndPropagate(path, leafPageNum, leaf)
}

func insertSorted(entries []Entry, e Entry) []Entry {
	idx := len(entries)
	for i, cur := range entries {
		if Compare(e, cur) < 0 {
			idx = i
			break
		}
	}
	entries = append(entries, Entry{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

func (ix *IndexData) writeLeafPage(pageNum int, n *leafNode) error {
	buf := ix.pager.CreatePageBuffer()
	if err := writeLeaf(buf, n); err != nil {
		return err
	}
	return ix.pager.WritePage(buf, pageNum)
}

func (ix *IndexData) writeInteriorPage(pageNum int, n *interiorNode) error {
	buf := ix.pager.CreatePageBuffer()
	if err := writeInterior(buf, n); err != nil {
		return err
	}
	return ix.pager.WritePage(buf, pageNum)
}

func (ix *IndexData) splitLeafAndPropagate(path []pathStep, leafPageNum int, leaf *leafNode) error {
	mid := len(leaf.entries) / 2
	left := &leafNode{entries: leaf.entries[:mid], next: 0}
	right := &leafNode{entries: leaf.entries[mid:], next: leaf.next}

	rightPageNum := ix.pager.AllocateNewPage()
	left.next = rightPageNum

	if err := ix.writeLeafPage(leafPageNum, left); err != nil {
		return err
	}
	if err := ix.writeLeafPage(rightPageNum, right); err != nil {
		return err
	}

	separator := right.entries[0]
	return ix.propagate(path, leafPageNum, separator, rightPageNum)
}

// propagate inserts (separator, rightChild) into the parent named by the
// last element of path (or creates a new root if path is empty, i.e.
// leftChild was the root), splitting the parent in turn if it overflows.
func (ix *IndexData) propagate(path []pathStep, leftChild int, separator Entry, rightChild int) error {
	if len(path) == 0 {
		newRoot := &interiorNode{
			separators: []Entry{separator},
			children:   []int{leftChild, rightChild},
		}
		rootPageNum := ix.pager.AllocateNewPage()
		if err := ix.writeInteriorPage(rootPageNum, newRoot); err != nil {
			return err
		}
		ix.Root = rootPageNum
		return nil
	}

	last := path[len(path)-1]
	node := last.node
	idx := last.childIdx
	node.separators = append(node.separators, Entry{})
	copy(node.separators[idx+1:], node.separators[idx:])
	node.separators[idx] = separator
	node.children = append(node.children, 0)
	copy(node.children[idx+2:], node.children[idx+1:])
	node.children[idx+1] = rightChild

	if len(node.children) <= maxInteriorChildren {
		return ix.writeInteriorPage(last.pageNum, node)
	}

	mid := len(node.separators) / 2
	leftNode := &interiorNode{
		separators: node.separators[:mid],
		children:   node.children[:mid+1],
	}
	upSeparator := node.separators[mid]
	rightNode := &interiorNode{
		separators: node.separators[mid+1:],
		children:   node.children[mid+1:],
	}

	rightPageNum := ix.pager.AllocateNewPage()
	if err := ix.writeInteriorPage(last.pageNum, leftNode); err != nil {
		return err
	}
	if err := ix.writeInteriorPage(rightPageNum, rightNode); err != nil {
		return err
	}
	return ix.propagate(path[:len(path)-1], last.pageNum, upSeparator, rightPageNum)
}

// Delete removes the single entry matching key exactly (key and RowId both
// equal). Must be called inside a write region. It is a no-op, not an
// error, if no such entry exists.
//
// Removing the entry from its leaf is the common case. If the leaf empties
// and has a parent, the empty page is unlinked from its interior node and,
// when it has a left sibling under the same parent, from that sibling's
// leaf-chain pointer, collapsing ancestor nodes that are left with a single
// child, spec section 4.F's "split/merge propagates up the ancestor chain"
// for the delete direction. A parent's first child keeps any incoming
// chain link from a leaf under another parent; it is rewritten as an empty
// leaf, so a forward walk passes through it without yielding entries.
func (ix *IndexData) Delete(target Entry) error {
	path, leafPageNum, leaf, err := ix.descendToLeaf(target)
	if err != nil {
		return err
	}
	found := -1
	for i, e := range leaf.entries {
		if Compare(e, target) == 0 {
			found = i
			break
		}
	}
	if found < 0 {
		return nil
	}
	leaf.entries = append(leaf.entries[:found], leaf.entries[found+1:]...)

	if err := ix.writeLeafPage(leafPageNum, leaf); err != nil {
		return err
	}
	if len(leaf.entries) > 0 || len(path) == 0 {
		return nil
	}
	return ix.mergeEmptyLeaf(path, leaf.next)
}

// mergeEmptyLeaf unlinks an emptied leaf from its parent's separators and
// children, and from the leaf-chain sibling that pointed at it, then
// collapses the parent up the ancestor chain if that removal leaves it
// with only one child.
func (ix *IndexData) mergeEmptyLeaf(path []pathStep, emptyLeafNext int) error {
	last := path[len(path)-1]
	node := last.node
	idx := last.childIdx

	if idx > 0 {
		if err := ix.relinkLeafNext(node.children[idx-1], emptyLeafNext); err != nil {
			return err
		}
		node.children = append(node.children[:idx], node.children[idx+1:]...)
		node.separators = append(node.separators[:idx-1], node.separators[idx:]...)
	} else {
		node.children = append(node.children[:0], node.children[1:]...)
		node.separators = append(node.separators[:0], node.separators[1:]...)
	}

	return ix.collapseInterior(path[:len(path)-1], last.pageNum, node)
}

// collapseInterior writes node back in place, unless the removal that led
// here left it with a single child - in which case node is redundant and
// is replaced by that child directly in its own parent (or becomes the new
// Root, if node had none).
func (ix *IndexData) collapseInterior(path []pathStep, pageNum int, node *interiorNode) error {
	if len(node.children) > 1 {
		return ix.writeInteriorPage(pageNum, node)
	}
	onlyChild := node.children[0]
	if len(path) == 0 {
		ix.Root = onlyChild
		return nil
	}
	last := path[len(path)-1]
	last.node.children[last.childIdx] = onlyChild
	return ix.writeInteriorPage(last.pageNum, last.node)
}

// relinkLeafNext repoints pageNum's sibling link, so the forward leaf chain
// skips over a page that was just removed from the tree.
func (ix *IndexData) relinkLeafNext(pageNum int, next int) error {
	buf, err := ix.pager.ReadPage(pageNum)
	if err != nil {
		return err
	}
	leaf, err := readLeaf(buf)
	if err != nil {
		return err
	}
	leaf.next = next
	return ix.writeLeafPage(pageNum, leaf)
}

// FirstLeaf returns the leftmost leaf page number, for a cursor starting a
// forward scan from the beginning of the index.
func (ix *IndexData) FirstLeaf() (int, error) {
	pageNum := ix.Root
	for {
		buf, err := ix.pager.ReadPage(pageNum)
		if err != nil {
			return 0, err
		}
		if buf.GetByte(0) == page.TypeIndexLeaf {
			return pageNum, nil
		}
		node, err := readInterior(buf)
		if err != nil {
			return 0, err
		}
		pageNum = node.children[0]
	}
}

// LeafForEntry returns the leaf page number that would contain key.
func (ix *IndexData) LeafForEntry(key Entry) (int, error) {
	_, pageNum, _, err := ix.descendToLeaf(key)
	return pageNum, err
}

// ReadLeaf exposes a leaf page's decoded entries and sibling link, for the
// index cursor to walk without reaching into this package's internals.
func (ix *IndexData) ReadLeaf(pageNum int) (entries []Entry, next int, err error) {
	buf, err := ix.pager.ReadPage(pageNum)
	if err != nil {
		return nil, 0, err
	}
	leaf, err := readLeaf(buf)
	if err != nil {
		return nil, 0, err
	}
	return leaf.entries, leaf.next, nil
}
