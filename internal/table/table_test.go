package table

import (
	"testing"

	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
	"github.com/brackendb/jetstore/internal/row"
)

func openMemPager(t *testing.T) *page.Pager {
	t.Helper()
	p, err := page.OpenMemory(page.Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	return p
}

func withWrite(t *testing.T, p *page.Pager, fn func() error) {
	t.Helper()
	if err := p.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	if err := fn(); err != nil {
		p.Rollback()
		t.Fatalf("write region: %v", err)
	}
	if err := p.FinishWrite(); err != nil {
		t.Fatalf("FinishWrite: %v", err)
	}
}

func testTable() *model.Table {
	return &model.Table{
		Name: "Widgets",
		Columns: []*model.Column{
			{Name: "Id", Type: model.TypeLong, ColumnNumber: 0},
			{Name: "Name", Type: model.TypeText, ColumnNumber: 1},
		},
	}
}

func TestHeapInsertAndGet(t *testing.T) {
	p := openMemPager(t)
	tbl := testTable()
	var h *Heap

	withWrite(t, p, func() error {
		var err error
		h, _, err = CreateHeap(p)
		return err
	})

	var id model.RowId
	withWrite(t, p, func() error {
		var err error
		id, err = h.Insert(tbl, row.Row{"Id": int32(1), "Name": "bolt"})
		return err
	})

	got, ok, err := h.Get(tbl, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("row %s missing", id)
	}
	if got["Name"] != "bolt" {
		t.Fatalf("got Name=%v, want bolt", got["Name"])
	}
}

func TestHeapPutOverwritesInPlace(t *testing.T) {
	p := openMemPager(t)
	tbl := testTable()
	var h *Heap
	withWrite(t, p, func() error {
		var err error
		h, _, err = CreateHeap(p)
		return err
	})

	var id model.RowId
	withWrite(t, p, func() error {
		var err error
		id, err = h.Insert(tbl, row.Row{"Id": int32(1), "Name": "bolt"})
		return err
	})

	withWrite(t, p, func() error {
		return h.Put(tbl, id, row.Row{"Id": int32(1), "Name": "nut"})
	})

	got, ok, err := h.Get(tbl, id)
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if got["Name"] != "nut" {
		t.Fatalf("got Name=%v, want nut", got["Name"])
	}

	if pages := h.Pages(); len(pages) != 1 {
		t.Fatalf("Put should not allocate a new page, got %d pages", len(pages))
	}
}

func TestHeapDeleteTombstones(t *testing.T) {
	p := openMemPager(t)
	tbl := testTable()
	var h *Heap
	withWrite(t, p, func() error {
		var err error
		h, _, err = CreateHeap(p)
		return err
	})

	var id model.RowId
	withWrite(t, p, func() error {
		var err error
		id, err = h.Insert(tbl, row.Row{"Id": int32(1), "Name": "bolt"})
		return err
	})

	withWrite(t, p, func() error {
		return h.Delete(id)
	})

	if _, ok, err := h.Get(tbl, id); err != nil || ok {
		t.Fatalf("deleted row still readable: ok=%v err=%v", ok, err)
	}
	if pages := h.Pages(); len(pages) != 0 {
		t.Fatalf("deleted row's page should leave the usage map, got %v", pages)
	}
}

func TestHeapPhysicalOrderWalk(t *testing.T) {
	p := openMemPager(t)
	tbl := testTable()
	var h *Heap
	withWrite(t, p, func() error {
		var err error
		h, _, err = CreateHeap(p)
		return err
	})

	var ids []model.RowId
	withWrite(t, p, func() error {
		for i := 0; i < 5; i++ {
			id, err := h.Insert(tbl, row.Row{"Id": int32(i), "Name": "x"})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})

	first, ok := h.First()
	if !ok || !first.Equal(ids[0]) {
		t.Fatalf("First() = %s, want %s", first, ids[0])
	}
	last, ok := h.Last()
	if !ok || !last.Equal(ids[len(ids)-1]) {
		t.Fatalf("Last() = %s, want %s", last, ids[len(ids)-1])
	}

	for i := 0; i < len(ids)-1; i++ {
		next, ok := h.Next(ids[i])
		if !ok || !next.Equal(ids[i+1]) {
			t.Fatalf("Next(%s) = %s, want %s", ids[i], next, ids[i+1])
		}
	}
	if _, ok := h.Next(ids[len(ids)-1]); ok {
		t.Fatalf("Next(last) should report no successor")
	}

	for i := len(ids) - 1; i > 0; i-- {
		prev, ok := h.Prev(ids[i])
		if !ok || !prev.Equal(ids[i-1]) {
			t.Fatalf("Prev(%s) = %s, want %s", ids[i], prev, ids[i-1])
		}
	}
	if _, ok := h.Prev(ids[0]); ok {
		t.Fatalf("Prev(first) should report no predecessor")
	}
}

func TestOpenHeapReopensExistingUsageMap(t *testing.T) {
	p := openMemPager(t)
	tbl := testTable()
	var h *Heap
	var root int
	withWrite(t, p, func() error {
		var err error
		h, root, err = CreateHeap(p)
		return err
	})

	var id model.RowId
	withWrite(t, p, func() error {
		var err error
		id, err = h.Insert(tbl, row.Row{"Id": int32(1), "Name": "bolt"})
		return err
	})

	reopened, err := OpenHeap(p, root)
	if err != nil {
		t.Fatalf("OpenHeap: %v", err)
	}
	got, ok, err := reopened.Get(tbl, id)
	if err != nil || !ok {
		t.Fatalf("Get on reopened heap: ok=%v err=%v", ok, err)
	}
	if got["Name"] != "bolt" {
		t.Fatalf("got Name=%v, want bolt", got["Name"])
	}
}
