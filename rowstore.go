package jetstore

import (
	"bytes"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/btree"
	"github.com/brackendb/jetstore/internal/catalog"
	"github.com/brackendb/jetstore/internal/cursor"
	"github.com/brackendb/jetstore/internal/indexkey"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
	"github.com/brackendb/jetstore/internal/row"
	"github.com/brackendb/jetstore/internal/table"
)

func indexKey(ix *model.Index, r row.Row) ([]byte, error) {
	return indexkey.Encode(ix, r)
}

// rowSource adapts one table's heap to internal/cursor.RowSource.
type rowSource struct {
	heap  *table.Heap
	table *model.Table
}

func (s *rowSource) RowAt(id model.RowId) (map[string]any, bool, error) {
	r, ok, err := s.heap.Get(s.table, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return r, true, nil
}

func (s *rowSource) FirstRowId() (model.RowId, error) {
	id, ok := s.heap.First()
	if !ok {
		return model.RowId{}, nil
	}
	return id, nil
}

func (s *rowSource) LastRowId() (model.RowId, error) {
	id, ok := s.heap.Last()
	if !ok {
		return model.RowId{}, nil
	}
	return id, nil
}

func (s *rowSource) NextRowId(id model.RowId) (model.RowId, bool, error) {
	next, ok := s.heap.Next(id)
	return next, ok, nil
}

func (s *rowSource) PrevRowId(id model.RowId) (model.RowId, bool, error) {
	prev, ok := s.heap.Prev(id)
	return prev, ok, nil
}

// mutateStore adapts Database to internal/mutate.Store.
type mutateStore Database

func (s *mutateStore) db() *Database { return (*Database)(s) }

func (s *mutateStore) Pager() *page.Pager { return s.db().pager }

func (s *mutateStore) SaveTableDef(t *model.Table) error {
	return catalog.Save(s.db().pager, allTables(s.db().tables))
}

func (s *mutateStore) EachRow(t *model.Table, fn func(model.RowId, row.Row) error) error {
	db := s.db()
	heap, ok := db.heaps[t.Name]
	if !ok {
		return errors.NewIllegalState("no heap open for table " + t.Name)
	}
	for _, pageNum := range heap.Pages() {
		id := model.NewRowId(pageNum, 0)
		r, present, err := heap.Get(t, id)
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if err := fn(id, r); err != nil {
			return err
		}
	}
	return nil
}

// rowStore adapts Database to internal/fkey.RowStore. Cascaded writes keep
// the affected table's own indexes in sync, the same as a direct
// Database.UpdateRow/DeleteRow call would.
type rowStore Database

func (s *rowStore) db() *Database { return (*Database)(s) }

func (s *rowStore) FindByIndex(t *model.Table, ix *model.Index, values []any) ([]model.RowId, error) {
	synthetic := row.Row{}
	for i, cd := range ix.Columns {
		synthetic[cd.Column.Name] = values[i]
	}
	target, err := indexkey.Encode(ix, synthetic)
	if err != nil {
		return nil, err
	}
	data, ok := ix.DataHandle().(*btree.IndexData)
	if !ok {
		return nil, errors.NewIllegalState("index " + ix.Name + " has no physical data")
	}
	ic := cursor.NewIndexCursor(data)
	found, err := ic.FindFirstRowByEntry(btree.Entry{Key: target})
	if err != nil {
		return nil, err
	}
	var out []model.RowId
	for found && bytes.Equal(ic.Current().Key, target) {
		out = append(out, ic.CurrentRowId())
		found, err = ic.Next()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *rowStore) GetRow(t *model.Table, id model.RowId) (row.Row, error) {
	heap, ok := s.db().heaps[t.Name]
	if !ok {
		return nil, errors.NewIllegalState("no heap open for table " + t.Name)
	}
	r, present, err := heap.Get(t, id)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, errors.NewIllegalState("row not found")
	}
	return r, nil
}

func (s *rowStore) PutRow(t *model.Table, id model.RowId, newRow row.Row) error {
	db := s.db()
	oldRow, err := s.GetRow(t, id)
	if err != nil {
		return err
	}
	if err := db.removeIndexEntries(t, id, oldRow); err != nil {
		return err
	}
	if err := db.heaps[t.Name].Put(t, id, newRow); err != nil {
		return err
	}
	return db.insertIndexEntries(t, id, newRow)
}

func (s *rowStore) DeleteRow(t *model.Table, id model.RowId) error {
	db := s.db()
	oldRow, err := s.GetRow(t, id)
	if err != nil {
		return err
	}
	if err := db.removeIndexEntries(t, id, oldRow); err != nil {
		return err
	}
	return db.heaps[t.Name].Delete(id)
}
