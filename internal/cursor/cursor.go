// Package cursor implements spec section 4.G: table scan and index cursors
// over a BEFORE_FIRST / ON_ROW / AFTER_LAST state machine, repositioning
// idempotently and invalidating their cached page when the underlying data
// moves out from under them.
package cursor

import (
	"github.com/brackendb/jetstore/internal/model"
)

// State is a cursor's position relative to its row sequence.
type State int

const (
	BeforeFirst State = iota
	OnRow
	AfterLast
)

// RowSource is the narrow seam a cursor reads rows through; the root
// package's rowSource (rowstore.go) implements it over an internal/table.Heap.
type RowSource interface {
	// RowAt returns the row at id, or ok=false if it has been deleted.
	RowAt(id model.RowId) (row map[string]any, ok bool, err error)
	// FirstRowId / LastRowId bound the table's physical row sequence.
	FirstRowId() (model.RowId, error)
	LastRowId() (model.RowId, error)
	// NextRowId / PrevRowId return the next/previous physically stored
	// RowId after/before id, and ok=false if id is already the last/first.
	NextRowId(id model.RowId) (model.RowId, bool, error)
	PrevRowId(id model.RowId) (model.RowId, bool, error)
}

// TableScanCursor walks a table's rows in physical RowId order, spec
// section 4.G.
type TableScanCursor struct {
	source RowSource
	state  State
	pos    model.RowId
}

// NewTableScanCursor builds a cursor positioned BeforeFirst.
func NewTableScanCursor(source RowSource) *TableScanCursor {
	return &TableScanCursor{source: source, state: BeforeFirst}
}

func (c *TableScanCursor) State() State { return c.state }

// CurrentRowId returns the cursor's current position. Valid only when
// State() == OnRow.
func (c *TableScanCursor) CurrentRowId() model.RowId { return c.pos }

// BeforeFirst repositions the cursor before the first row. Idempotent.
func (c *TableScanCursor) BeforeFirst() {
	c.state = BeforeFirst
	c.pos = model.FirstRowId
}

// AfterLast repositions the cursor after the last row. Idempotent.
func (c *TableScanCursor) AfterLast() {
	c.state = AfterLast
	c.pos = model.LastRowId
}

// Next advances the cursor one row, skipping deleted rows, and returns
// false once it has moved AfterLast.
func (c *TableScanCursor) Next() (bool, error) {
	var candidate model.RowId
	var ok bool
	var err error

	switch c.state {
	case BeforeFirst:
		candidate, err = c.source.FirstRowId()
		ok = candidate.Valid()
	case OnRow:
		candidate, ok, err = c.source.NextRowId(c.pos)
	case AfterLast:
		ok = false
	}
	if err != nil {
		return false, err
	}

	return c.findAnother(candidate, ok, true, err)
}

// Prev moves the cursor one row backward, skipping deleted rows.
func (c *TableScanCursor) Prev() (bool, error) {
	var candidate model.RowId
	var ok bool
	var err error

	switch c.state {
	case AfterLast:
		candidate, err = c.source.LastRowId()
		ok = candidate.Valid()
	case OnRow:
		candidate, ok, err = c.source.PrevRowId(c.pos)
	case BeforeFirst:
		ok = false
	}
	if err != nil {
		return false, err
	}

	return c.findAnother(candidate, ok, false, err)
}

// findAnother is the shared skip-deleted-rows loop Next/Prev use:
// it keeps stepping in direction forward until it lands on a live row or
// runs out of rows, per spec section 4.G.
func (c *TableScanCursor) findAnother(candidate model.RowId, ok bool, forward bool, err error) (bool, error) {
	for ok {
		_, present, rerr := c.source.RowAt(candidate)
		if rerr != nil {
			return false, rerr
		}
		if present {
			c.pos = candidate
			c.state = OnRow
			return true, nil
		}
		if forward {
			candidate, ok, err = c.source.NextRowId(candidate)
		} else {
			candidate, ok, err = c.source.PrevRowId(candidate)
		}
		if err != nil {
			return false, err
		}
	}
	if forward {
		c.AfterLast()
	} else {
		c.BeforeFirst()
	}
	return false, nil
}

// CurrentRow returns the decoded row at the cursor's current position.
func (c *TableScanCursor) CurrentRow() (map[string]any, error) {
	row, _, err := c.source.RowAt(c.pos)
	return row, err
}
