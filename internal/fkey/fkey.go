// Package fkey implements the foreign key enforcer of spec section 4.H:
// checking that a child row's referencing columns name an existing parent
// row, and cascading (or rejecting) updates/deletes that would otherwise
// orphan children.
package fkey

import (
	"reflect"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/row"
)

// maxCascadeDepth bounds recursive cascades through a chain of foreign
// keys, guarding against a cyclic FK graph causing unbounded recursion.
const maxCascadeDepth = 32

// RowStore is the narrow seam the enforcer mutates rows and looks up index
// matches through.
type RowStore interface {
	FindByIndex(table *model.Table, ix *model.Index, values []any) ([]model.RowId, error)
	GetRow(table *model.Table, id model.RowId) (row.Row, error)
	PutRow(table *model.Table, id model.RowId, r row.Row) error
	DeleteRow(table *model.Table, id model.RowId) error
}

// Enforcer checks and cascades foreign key constraints across a fixed set
// of tables (the database's full schema, so it can find every child index
// that references a given parent).
type Enforcer struct {
	store  RowStore
	tables []*model.Table
	depth  int
}

// New builds an Enforcer over tables, which must include every table
// participating in a foreign key relationship the enforcer will be asked
// to check.
func New(store RowStore, tables []*model.Table) *Enforcer {
	return &Enforcer{store: store, tables: tables}
}

// childIndexes returns table's indexes that reference another table (this
// table plays the "many" side).
func childIndexes(table *model.Table) []*model.Index {
	var out []*model.Index
	for _, ix := range table.Indexes {
		if ix.ForeignKey != nil && !ix.ForeignKey.IsPrimary {
			out = append(out, ix)
		}
	}
	return out
}

// parentIndexes returns table's indexes that other tables reference (this
// table plays the "one" side).
func parentIndexes(table *model.Table) []*model.Index {
	var out []*model.Index
	for _, ix := range table.Indexes {
		if ix.ForeignKey != nil && ix.ForeignKey.IsPrimary {
			out = append(out, ix)
		}
	}
	return out
}

type reference struct {
	childTable *model.Table
	childIndex *model.Index
}

// referencingChildren finds every (table, index) pair across the schema
// whose ForeignKey points at parentTable via parentIndex's column count.
func (e *Enforcer) referencingChildren(parentTable *model.Table, parentIndex *model.Index) []reference {
	var out []reference
	for _, t := range e.tables {
		for _, ix := range childIndexes(t) {
			if ix.ForeignKey.PrimaryTable == parentTable.Name && len(ix.Columns) == len(parentIndex.Columns) {
				out = append(out, reference{childTable: t, childIndex: ix})
			}
		}
	}
	return out
}

func tableByName(tables []*model.Table, name string) *model.Table {
	for _, t := range tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func columnValues(r row.Row, cols []model.ColumnDescriptor) []any {
	values := make([]any, len(cols))
	for i, cd := range cols {
		values[i] = r[cd.Column.Name]
	}
	return values
}

func anyNull(values []any) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func valuesEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CheckAddRow validates that newRow's foreign keys on table all resolve to
// an existing parent row, raising a ConstraintViolation otherwise. A null
// foreign key column is permitted (and skipped) when the index carries
// IndexFlagIgnoreNulls.
func (e *Enforcer) CheckAddRow(table *model.Table, newRow row.Row) error {
	for _, ix := range childIndexes(table) {
		if err := e.checkChildIndex(table, ix, newRow); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) checkChildIndex(table *model.Table, ix *model.Index, r row.Row) error {
	values := columnValues(r, ix.Columns)
	if anyNull(values) && ix.Flags&model.IndexFlagIgnoreNulls != 0 {
		return nil
	}
	parent := tableByName(e.tables, ix.ForeignKey.PrimaryTable)
	if parent == nil {
		return errors.NewIllegalState("foreign key references unknown table " + ix.ForeignKey.PrimaryTable)
	}
	parentIndex := parent.IndexByName(parent.PrimaryKeyName)
	if parentIndex == nil {
		return errors.NewIllegalState("referenced table " + parent.Name + " has no primary key")
	}
	matches, err := e.store.FindByIndex(parent, parentIndex, values)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.NewConstraintViolation(table.Name, ix.Name, ix.ForeignKey.PrimaryTable,
			"no matching row in referenced table", rowLiteral(table, r))
	}
	return nil
}

func rowLiteral(table *model.Table, r row.Row) []any {
	out := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		out[i] = r[c.Name]
	}
	return out
}

// CheckUpdateRow validates an update, cascading or rejecting per index
// flags. oldRow and newRow are the row's state before and after the
// caller's in-memory edit; no write has happened yet.
func (e *Enforcer) CheckUpdateRow(table *model.Table, id model.RowId, oldRow, newRow row.Row) error {
	// Child-side keys are re-checked only at the top of a cascade; inside
	// one, the parent row carrying the new key has not been written yet.
	if e.depth == 0 {
		for _, ix := range childIndexes(table) {
			oldValues := columnValues(oldRow, ix.Columns)
			newValues := columnValues(newRow, ix.Columns)
			if valuesEqual(oldValues, newValues) {
				continue // unmonitored columns didn't change; nothing to check
			}
			if err := e.checkChildIndex(table, ix, newRow); err != nil {
				return err
			}
		}
	}

	for _, ix := range parentIndexes(table) {
		oldValues := columnValues(oldRow, ix.Columns)
		newValues := columnValues(newRow, ix.Columns)
		if valuesEqual(oldValues, newValues) {
			continue
		}
		if err := e.cascadeKeyChange(table, ix, oldValues, newValues); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) cascadeKeyChange(parent *model.Table, parentIndex *model.Index, oldValues, newValues []any) error {
	for _, ref := range e.referencingChildren(parent, parentIndex) {
		children, err := e.store.FindByIndex(ref.childTable, ref.childIndex, oldValues)
		if err != nil {
			return err
		}
		if len(children) == 0 {
			continue
		}
		if !ref.childIndex.ForeignKey.CascadeUpdates {
			return errors.NewConstraintViolation(parent.Name, parentIndex.Name, ref.childTable.Name,
				"referenced key is still in use and the relationship does not cascade updates", nil)
		}
		if err := e.pushDepth(); err != nil {
			return err
		}
		for _, childID := range children {
			if err := e.cascadeUpdateChild(ref.childTable, ref.childIndex, childID, newValues); err != nil {
				e.depth--
				return err
			}
		}
		e.depth--
	}
	return nil
}

func (e *Enforcer) cascadeUpdateChild(table *model.Table, ix *model.Index, id model.RowId, newValues []any) error {
	r, err := e.store.GetRow(table, id)
	if err != nil {
		return err
	}
	updated := make(row.Row, len(r))
	for k, v := range r {
		updated[k] = v
	}
	for i, cd := range ix.Columns {
		updated[cd.Column.Name] = newValues[i]
	}
	if err := e.CheckUpdateRow(table, id, r, updated); err != nil {
		return err
	}
	return e.store.PutRow(table, id, updated)
}

// CheckDeleteRow validates deleting id from table, cascading or rejecting
// per index flags on any table that references it.
func (e *Enforcer) CheckDeleteRow(table *model.Table, id model.RowId, oldRow row.Row) error {
	for _, ix := range parentIndexes(table) {
		values := columnValues(oldRow, ix.Columns)
		for _, ref := range e.referencingChildren(table, ix) {
			children, err := e.store.FindByIndex(ref.childTable, ref.childIndex, values)
			if err != nil {
				return err
			}
			if len(children) == 0 {
				continue
			}
			if !ref.childIndex.ForeignKey.CascadeDeletes {
				return errors.NewConstraintViolation(table.Name, ix.Name, ref.childTable.Name,
					"referenced key is still in use and the relationship does not cascade deletes", nil)
			}
			if err := e.pushDepth(); err != nil {
				return err
			}
			for _, childID := range children {
				childRow, err := e.store.GetRow(ref.childTable, childID)
				if err != nil {
					e.depth--
					return err
				}
				if err := e.CheckDeleteRow(ref.childTable, childID, childRow); err != nil {
					e.depth--
					return err
				}
				if err := e.store.DeleteRow(ref.childTable, childID); err != nil {
					e.depth--
					return err
				}
			}
			e.depth--
		}
	}
	return nil
}

func (e *Enforcer) pushDepth() error {
	e.depth++
	if e.depth > maxCascadeDepth {
		return errors.NewIllegalState("foreign key cascade exceeded maximum depth")
	}
	return nil
}
