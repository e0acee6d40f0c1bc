package jetstore

import (
	"testing"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/row"
)

func mustOpenMemory(t *testing.T) *Database {
	t.Helper()
	db, err := OpenMemory(OpenOptions{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	return db
}

func mustCreateTable(t *testing.T, db *Database, name string, cols ...*model.Column) *model.Table {
	t.Helper()
	tbl, err := db.CreateTable(name, cols)
	if err != nil {
		t.Fatalf("CreateTable(%s): %v", name, err)
	}
	return tbl
}

func TestCreateTableAndInsertRoundTrip(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	mustCreateTable(t, db, "Widgets",
		&model.Column{Name: "Id", Type: model.TypeLong},
		&model.Column{Name: "Name", Type: model.TypeText},
	)

	id, err := db.InsertRow("Widgets", row.Row{"Id": int32(1), "Name": "bolt"})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	got, ok, err := db.GetRow("Widgets", id)
	if err != nil || !ok {
		t.Fatalf("GetRow: ok=%v err=%v", ok, err)
	}
	if got["Name"] != "bolt" {
		t.Fatalf("got Name=%v, want bolt", got["Name"])
	}
}

func TestAddColumnRejectsDuplicateName(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	mustCreateTable(t, db, "Widgets", &model.Column{Name: "Id", Type: model.TypeLong})

	err := db.AddColumn("Widgets", &model.Column{Name: "Id", Type: model.TypeText})
	if !errors.Is(err, errors.ErrIllegalArgument) {
		t.Fatalf("AddColumn duplicate name: got %v, want ErrIllegalArgument", err)
	}
}

func TestAddIndexAndScanOrdering(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	idCol := &model.Column{Name: "Id", Type: model.TypeLong}
	mustCreateTable(t, db, "Widgets", idCol, &model.Column{Name: "Name", Type: model.TypeText})

	idx := &model.Index{
		Name:    "ByName",
		Columns: []model.ColumnDescriptor{{Column: &model.Column{Name: "Name", Type: model.TypeText}, Ascending: true}},
	}
	// Index columns must reference the table's own *Column values.
	tbl, _ := db.Table("Widgets")
	idx.Columns[0].Column = tbl.ColumnByName("Name")
	if err := db.AddIndex("Widgets", idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	names := []string{"charlie", "alpha", "bravo"}
	for i, n := range names {
		if _, err := db.InsertRow("Widgets", row.Row{"Id": int32(i), "Name": n}); err != nil {
			t.Fatalf("InsertRow(%s): %v", n, err)
		}
	}

	cur, err := db.IndexScan("Widgets", "ByName")
	if err != nil {
		t.Fatalf("IndexScan: %v", err)
	}
	var seen []any
	for {
		ok, err := cur.Next()
		if err != nil {
			t.Fatalf("cur.Next: %v", err)
		}
		if !ok {
			break
		}
		r, present, err := db.GetRow("Widgets", cur.CurrentRowId())
		if err != nil || !present {
			t.Fatalf("GetRow(%s): present=%v err=%v", cur.CurrentRowId(), present, err)
		}
		seen = append(seen, r["Name"])
	}
	want := []any{"alpha", "bravo", "charlie"}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}

func TestAddIndexReusesSharedStorageForSameShape(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	mustCreateTable(t, db, "Widgets", &model.Column{Name: "Id", Type: model.TypeLong})
	tbl, _ := db.Table("Widgets")

	first := &model.Index{Name: "First", Columns: []model.ColumnDescriptor{{Column: tbl.ColumnByName("Id"), Ascending: true}}}
	if err := db.AddIndex("Widgets", first); err != nil {
		t.Fatalf("AddIndex first: %v", err)
	}
	second := &model.Index{Name: "Second", Columns: []model.ColumnDescriptor{{Column: tbl.ColumnByName("Id"), Ascending: true}}}
	if err := db.AddIndex("Widgets", second); err != nil {
		t.Fatalf("AddIndex second: %v", err)
	}

	tbl, _ = db.Table("Widgets")
	a := tbl.IndexByName("First")
	b := tbl.IndexByName("Second")
	if a.RootPage != b.RootPage {
		t.Fatalf("same-shape indexes should share one physical root page, got %d and %d", a.RootPage, b.RootPage)
	}
}

func TestUpdateRowMaintainsIndexEntries(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	mustCreateTable(t, db, "Widgets", &model.Column{Name: "Id", Type: model.TypeLong}, &model.Column{Name: "Name", Type: model.TypeText})
	tbl, _ := db.Table("Widgets")
	idx := &model.Index{Name: "ByName", Columns: []model.ColumnDescriptor{{Column: tbl.ColumnByName("Name"), Ascending: true}}}
	if err := db.AddIndex("Widgets", idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}

	old := row.Row{"Id": int32(1), "Name": "bolt"}
	id, err := db.InsertRow("Widgets", old)
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	updated := row.Row{"Id": int32(1), "Name": "screw"}
	if err := db.UpdateRow("Widgets", id, old, updated); err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}

	cur, err := db.IndexScan("Widgets", "ByName")
	if err != nil {
		t.Fatalf("IndexScan: %v", err)
	}
	ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("expected one index entry: ok=%v err=%v", ok, err)
	}
	r, present, err := db.GetRow("Widgets", cur.CurrentRowId())
	if err != nil || !present {
		t.Fatalf("GetRow: present=%v err=%v", present, err)
	}
	if r["Name"] != "screw" {
		t.Fatalf("index still points at stale value %v", r["Name"])
	}
	if ok, _ := cur.Next(); ok {
		t.Fatalf("stale index entry for the old value was not removed")
	}
}

func TestForeignKeyRejectsOrphanInsert(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	idCol := &model.Column{Name: "Id", Type: model.TypeLong}
	mustCreateTable(t, db, "Parents", idCol)
	tbl, _ := db.Table("Parents")
	pk := &model.Index{
		Name:       "PrimaryKey",
		Columns:    []model.ColumnDescriptor{{Column: tbl.ColumnByName("Id"), Ascending: true}},
		Flags:      model.IndexFlagUnique | model.IndexFlagPrimaryKey,
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", IsPrimary: true, CascadeDeletes: true},
	}
	if err := db.AddIndex("Parents", pk); err != nil {
		t.Fatalf("AddIndex parent pk: %v", err)
	}

	parentRefCol := &model.Column{Name: "ParentId", Type: model.TypeLong}
	mustCreateTable(t, db, "Children", &model.Column{Name: "Id", Type: model.TypeLong}, parentRefCol)
	childTbl, _ := db.Table("Children")
	fk := &model.Index{
		Name:       "FkParent",
		Columns:    []model.ColumnDescriptor{{Column: childTbl.ColumnByName("ParentId"), Ascending: true}},
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", CascadeDeletes: true},
	}
	if err := db.AddIndex("Children", fk); err != nil {
		t.Fatalf("AddIndex fk: %v", err)
	}

	_, err := db.InsertRow("Children", row.Row{"Id": int32(1), "ParentId": int32(99)})
	var cv *errors.ConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected a constraint violation inserting an orphan child, got %v", err)
	}
}

func TestForeignKeyCascadesDelete(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	idCol := &model.Column{Name: "Id", Type: model.TypeLong}
	mustCreateTable(t, db, "Parents", idCol)
	tbl, _ := db.Table("Parents")
	pk := &model.Index{
		Name:       "PrimaryKey",
		Columns:    []model.ColumnDescriptor{{Column: tbl.ColumnByName("Id"), Ascending: true}},
		Flags:      model.IndexFlagUnique | model.IndexFlagPrimaryKey,
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", IsPrimary: true, CascadeDeletes: true},
	}
	if err := db.AddIndex("Parents", pk); err != nil {
		t.Fatalf("AddIndex parent pk: %v", err)
	}

	parentRefCol := &model.Column{Name: "ParentId", Type: model.TypeLong}
	mustCreateTable(t, db, "Children", &model.Column{Name: "Id", Type: model.TypeLong}, parentRefCol)
	childTbl, _ := db.Table("Children")
	fk := &model.Index{
		Name:       "FkParent",
		Columns:    []model.ColumnDescriptor{{Column: childTbl.ColumnByName("ParentId"), Ascending: true}},
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", CascadeDeletes: true},
	}
	if err := db.AddIndex("Children", fk); err != nil {
		t.Fatalf("AddIndex fk: %v", err)
	}

	parentID, err := db.InsertRow("Parents", row.Row{"Id": int32(1)})
	if err != nil {
		t.Fatalf("InsertRow parent: %v", err)
	}
	childID, err := db.InsertRow("Children", row.Row{"Id": int32(1), "ParentId": int32(1)})
	if err != nil {
		t.Fatalf("InsertRow child: %v", err)
	}

	parentRow, _, err := db.GetRow("Parents", parentID)
	if err != nil {
		t.Fatalf("GetRow parent: %v", err)
	}
	if err := db.DeleteRow("Parents", parentID, parentRow); err != nil {
		t.Fatalf("DeleteRow parent: %v", err)
	}

	if _, present, err := db.GetRow("Children", childID); err != nil || present {
		t.Fatalf("child row should have been cascade-deleted: present=%v err=%v", present, err)
	}
}

func TestPreviewDeleteNeverMutates(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	mustCreateTable(t, db, "Widgets", &model.Column{Name: "Id", Type: model.TypeLong})
	r := row.Row{"Id": int32(1)}
	id, err := db.InsertRow("Widgets", r)
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}

	if err := db.PreviewDelete("Widgets", id, r); err != nil {
		t.Fatalf("PreviewDelete: %v", err)
	}

	if _, present, err := db.GetRow("Widgets", id); err != nil || !present {
		t.Fatalf("PreviewDelete should never actually delete: present=%v err=%v", present, err)
	}
}

func TestPreviewDeleteReportsCascadeRejection(t *testing.T) {
	db := mustOpenMemory(t)
	defer db.Close()

	idCol := &model.Column{Name: "Id", Type: model.TypeLong}
	mustCreateTable(t, db, "Parents", idCol)
	tbl, _ := db.Table("Parents")
	pk := &model.Index{
		Name:       "PrimaryKey",
		Columns:    []model.ColumnDescriptor{{Column: tbl.ColumnByName("Id"), Ascending: true}},
		Flags:      model.IndexFlagUnique | model.IndexFlagPrimaryKey,
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", IsPrimary: true},
	}
	if err := db.AddIndex("Parents", pk); err != nil {
		t.Fatalf("AddIndex parent pk: %v", err)
	}

	parentRefCol := &model.Column{Name: "ParentId", Type: model.TypeLong}
	mustCreateTable(t, db, "Children", &model.Column{Name: "Id", Type: model.TypeLong}, parentRefCol)
	childTbl, _ := db.Table("Children")
	fk := &model.Index{
		Name:       "FkParent",
		Columns:    []model.ColumnDescriptor{{Column: childTbl.ColumnByName("ParentId"), Ascending: true}},
		ForeignKey: &model.ForeignKeyRef{PrimaryTable: "Parents", CascadeDeletes: false},
	}
	if err := db.AddIndex("Children", fk); err != nil {
		t.Fatalf("AddIndex fk: %v", err)
	}

	parentID, err := db.InsertRow("Parents", row.Row{"Id": int32(1)})
	if err != nil {
		t.Fatalf("InsertRow parent: %v", err)
	}
	if _, err := db.InsertRow("Children", row.Row{"Id": int32(1), "ParentId": int32(1)}); err != nil {
		t.Fatalf("InsertRow child: %v", err)
	}

	parentRow, _, err := db.GetRow("Parents", parentID)
	if err != nil {
		t.Fatalf("GetRow parent: %v", err)
	}
	if err := db.PreviewDelete("Parents", parentID, parentRow); err == nil {
		t.Fatalf("expected PreviewDelete to report the non-cascading child as a rejection")
	}

	// Still present: PreviewDelete must not have deleted the parent either.
	if _, present, err := db.GetRow("Parents", parentID); err != nil || !present {
		t.Fatalf("PreviewDelete must not mutate even on rejection: present=%v err=%v", present, err)
	}
}

func TestReopenPersistsSchemaAndIndexWiring(t *testing.T) {
	path := t.TempDir() + "/widgets.accdb"

	db, err := Open(path, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustCreateTable(t, db, "Widgets", &model.Column{Name: "Id", Type: model.TypeLong}, &model.Column{Name: "Name", Type: model.TypeText})
	tbl, _ := db.Table("Widgets")
	idx := &model.Index{Name: "ByName", Columns: []model.ColumnDescriptor{{Column: tbl.ColumnByName("Name"), Ascending: true}}}
	if err := db.AddIndex("Widgets", idx); err != nil {
		t.Fatalf("AddIndex: %v", err)
	}
	id, err := db.InsertRow("Widgets", row.Row{"Id": int32(1), "Name": "bolt"})
	if err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, OpenOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, present, err := reopened.GetRow("Widgets", id)
	if err != nil || !present {
		t.Fatalf("GetRow after reopen: present=%v err=%v", present, err)
	}
	if got["Name"] != "bolt" {
		t.Fatalf("got Name=%v after reopen, want bolt", got["Name"])
	}

	cur, err := reopened.IndexScan("Widgets", "ByName")
	if err != nil {
		t.Fatalf("IndexScan after reopen: %v", err)
	}
	ok, err := cur.Next()
	if err != nil || !ok {
		t.Fatalf("expected the index to survive reopen: ok=%v err=%v", ok, err)
	}
	if !cur.CurrentRowId().Equal(id) {
		t.Fatalf("reopened index points at %s, want %s", cur.CurrentRowId(), id)
	}
}
