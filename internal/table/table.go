// Package table implements the row heap this engine stores a table's data
// in: one row per page, tracked by a btree.UsageMap, addressed by RowId.
// This trades page density for a simple, easy-to-verify implementation -
// see DESIGN.md for why the real format's packed multi-row pages were not
// reproduced byte-for-byte.
package table

import (
	"github.com/brackendb/jetstore/internal/btree"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
	"github.com/brackendb/jetstore/internal/row"
)

// Heap is the row storage for one table.
type Heap struct {
	pager *page.Pager
	pages *btree.UsageMap
}

// CreateHeap allocates a fresh, empty heap. Must be called inside a write
// region.
func CreateHeap(pager *page.Pager) (*Heap, int, error) {
	um, err := btree.CreateUsageMap(pager)
	if err != nil {
		return nil, 0, err
	}
	return &Heap{pager: pager, pages: um}, um.Root, nil
}

// OpenHeap reopens a heap whose usage map is rooted at usageMapPage.
func OpenHeap(pager *page.Pager, usageMapPage int) (*Heap, error) {
	um, err := btree.OpenUsageMap(pager, usageMapPage)
	if err != nil {
		return nil, err
	}
	return &Heap{pager: pager, pages: um}, nil
}

// Insert writes r as a brand new row. Must be called inside a write region.
func (h *Heap) Insert(table *model.Table, r row.Row) (model.RowId, error) {
	pageNum := h.pager.AllocateNewPage()
	if err := h.writeRow(pageNum, table, r); err != nil {
		return model.RowId{}, err
	}
	if err := h.pages.Add(pageNum); err != nil {
		return model.RowId{}, err
	}
	return model.NewRowId(pageNum, 0), nil
}

// Put overwrites the row already stored at id. Must be called inside a
// write region.
func (h *Heap) Put(table *model.Table, id model.RowId, r row.Row) error {
	return h.writeRow(id.PageNumber(), table, r)
}

func (h *Heap) writeRow(pageNum int, table *model.Table, r row.Row) error {
	encoded, err := row.Encode(table, r)
	if err != nil {
		return err
	}
	buf := h.pager.CreatePageBuffer()
	buf.PutByte(0, page.TypeData)
	buf.PutUint16(1, uint16(len(encoded)))
	buf.PutBytes(3, encoded)
	return h.pager.WritePage(buf, pageNum)
}

// Get reads the row at id, returning ok=false if it has been deleted.
func (h *Heap) Get(table *model.Table, id model.RowId) (row.Row, bool, error) {
	buf, err := h.pager.ReadPage(id.PageNumber())
	if err != nil {
		return nil, false, err
	}
	if buf.GetByte(0) != page.TypeData {
		return nil, false, nil
	}
	length := int(buf.GetUint16(1))
	r, err := row.Decode(table, buf.GetBytes(3, length))
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// Delete tombstones the row at id by overwriting its page type. Must be
// called inside a write region.
func (h *Heap) Delete(id model.RowId) error {
	buf := h.pager.CreatePageBuffer()
	buf.PutByte(0, page.TypeInvalid)
	if err := h.pager.WritePage(buf, id.PageNumber()); err != nil {
		return err
	}
	return h.pages.Remove(id.PageNumber())
}

// Pages returns the page numbers backing this heap's rows, in allocation
// order, which doubles as physical row order for RowId comparisons.
func (h *Heap) Pages() []int { return h.pages.Pages() }

// First, Last, Next and Prev implement the physical row sequence that
// internal/cursor.RowSource needs.
func (h *Heap) First() (model.RowId, bool) {
	pages := h.Pages()
	if len(pages) == 0 {
		return model.RowId{}, false
	}
	return model.NewRowId(pages[0], 0), true
}

func (h *Heap) Last() (model.RowId, bool) {
	pages := h.Pages()
	if len(pages) == 0 {
		return model.RowId{}, false
	}
	return model.NewRowId(pages[len(pages)-1], 0), true
}

func (h *Heap) Next(id model.RowId) (model.RowId, bool) {
	pages := h.Pages()
	for i, p := range pages {
		if p == id.PageNumber() && i+1 < len(pages) {
			return model.NewRowId(pages[i+1], 0), true
		}
	}
	return model.RowId{}, false
}

func (h *Heap) Prev(id model.RowId) (model.RowId, bool) {
	pages := h.Pages()
	for i, p := range pages {
		if p == id.PageNumber() && i > 0 {
			return model.NewRowId(pages[i-1], 0), true
		}
	}
	return model.RowId{}, false
}
