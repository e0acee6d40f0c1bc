// Package mutate implements the Add Column and Add Index table mutators of
// spec section 4.I.
package mutate

import (
	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/btree"
	"github.com/brackendb/jetstore/internal/indexkey"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
	"github.com/brackendb/jetstore/internal/row"
)

// maxColumnsPerTable and maxIndexesPerTable mirror the format's own
// per-table limits.
const (
	maxColumnsPerTable = 255
	maxIndexesPerTable = 32
)

// Store is the narrow seam the mutators need from the open database.
type Store interface {
	Pager() *page.Pager
	SaveTableDef(t *model.Table) error
	// EachRow enumerates every live row currently in table, in any order,
	// for index population.
	EachRow(table *model.Table, fn func(id model.RowId, r row.Row) error) error
}

// AddColumn appends col to table after validating it. Must be called
// inside a write region.
func AddColumn(store Store, table *model.Table, col *model.Column) error {
	if !table.ColumnNameUnique(col.Name) {
		return errors.NewIllegalArgument("name", "duplicate column name "+col.Name)
	}
	if len(table.Columns) >= maxColumnsPerTable {
		return errors.NewIllegalArgument("columns", "table already has the maximum number of columns")
	}
	if col.Type == model.TypeUnsupported {
		return errors.NewIllegalArgument("type", "unsupported column type")
	}
	if col.IsAutoNumber() {
		for _, existing := range table.AutoNumberColumns() {
			if existing.Type == col.Type {
				return errors.NewIllegalArgument("flags", "table already has an auto-number column of this type")
			}
		}
	}

	col.ColumnNumber = len(table.Columns)
	table.Columns = append(table.Columns, col)
	return store.SaveTableDef(table)
}

// AddIndex appends idx to table after validating it, reusing an existing
// IndexData when an index of the same shape already exists (spec section
// 4.I), or creating and fully populating a new one by scanning every row
// currently in the table. Must be called inside a write region.
func AddIndex(store Store, table *model.Table, idx *model.Index) error {
	if !table.IndexNameUnique(idx.Name) {
		return errors.NewIllegalArgument("name", "duplicate index name "+idx.Name)
	}
	if len(table.Indexes) >= maxIndexesPerTable {
		return errors.NewIllegalArgument("indexes", "table already has the maximum number of indexes")
	}
	if len(idx.Columns) == 0 {
		return errors.NewIllegalArgument("columns", "index must reference at least one column")
	}
	for _, cd := range idx.Columns {
		if table.ColumnByName(cd.Column.Name) == nil {
			return errors.NewIllegalArgument("columns", "unknown column "+cd.Column.Name)
		}
	}
	if idx.Flags&model.IndexFlagPrimaryKey != 0 && table.PrimaryKeyName != "" {
		return errors.NewIllegalArgument("flags", "table already has a primary key")
	}

	if shared := findSharedData(table, idx); shared != nil {
		idx.SetDataHandle(shared)
		idx.RootPage = shared.Root
	} else {
		data, err := btree.Create(store.Pager())
		if err != nil {
			return err
		}
		if err := populate(store, table, idx, data); err != nil {
			return err
		}
		idx.SetDataHandle(data)
		idx.RootPage = data.Root
	}

	table.Indexes = append(table.Indexes, idx)
	if idx.Flags&model.IndexFlagPrimaryKey != 0 {
		table.PrimaryKeyName = idx.Name
	}
	return store.SaveTableDef(table)
}

// findSharedData looks for an existing index of the same shape that
// already has its physical storage assigned. Per spec section 4.I's
// resolved design question, reusing shared storage means the new logical
// index needs no population pass at all: the existing entries already
// cover every row, because they were built from the same columns in the
// same order.
func findSharedData(table *model.Table, idx *model.Index) *btree.IndexData {
	for _, existing := range table.Indexes {
		if existing.SameShape(idx) {
			if data, ok := existing.DataHandle().(*btree.IndexData); ok {
				return data
			}
		}
	}
	return nil
}

func populate(store Store, table *model.Table, idx *model.Index, data *btree.IndexData) error {
	return store.EachRow(table, func(id model.RowId, r row.Row) error {
		key, err := indexkey.Encode(idx, r)
		if err != nil {
			return err
		}
		return data.Insert(btree.Entry{Key: key, Row: id})
	})
}
