// Package jetstore is a Jet/ACE-style paged database engine: tables with
// typed columns, B-tree indexes, foreign-key enforcement, and cursors over
// either a table's physical row order or an index's key order.
package jetstore

import (
	"fmt"
	"log/slog"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/btree"
	"github.com/brackendb/jetstore/internal/catalog"
	"github.com/brackendb/jetstore/internal/codec"
	"github.com/brackendb/jetstore/internal/cursor"
	"github.com/brackendb/jetstore/internal/fkey"
	"github.com/brackendb/jetstore/internal/logging"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/mutate"
	"github.com/brackendb/jetstore/internal/page"
	"github.com/brackendb/jetstore/internal/row"
	"github.com/brackendb/jetstore/internal/table"
)

// OpenOptions configures Open and OpenMemory.
type OpenOptions struct {
	ReadOnly bool
	PageSize int
	Provider codec.Provider
	Logger   *slog.Logger
}

// Database is an open handle onto a Jet/ACE-style file: its pager, table
// catalog, and foreign-key enforcer.
type Database struct {
	pager     *page.Pager
	tables    map[string]*model.Table
	heaps     map[string]*table.Heap
	enforcer  *fkey.Enforcer
	logger    *slog.Logger
	sessionID string
}

// Open opens or creates the database file at path.
func Open(path string, opts OpenOptions) (*Database, error) {
	p, err := page.Open(path, page.Options{
		ReadOnly: opts.ReadOnly,
		PageSize: opts.PageSize,
		Provider: opts.Provider,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return newDatabase(p, opts)
}

// OpenMemory opens a scratch, non-persistent database, useful for tests and
// temporary working tables.
func OpenMemory(opts OpenOptions) (*Database, error) {
	p, err := page.OpenMemory(page.Options{
		PageSize: opts.PageSize,
		Provider: opts.Provider,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return newDatabase(p, opts)
}

func newDatabase(p *page.Pager, opts OpenOptions) (*Database, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	sessionID := logging.NewSessionID()
	logger = logger.With("session_id", sessionID)

	defs, err := catalog.Load(p)
	if err != nil {
		return nil, err
	}

	db := &Database{
		pager:     p,
		tables:    make(map[string]*model.Table, len(defs)),
		heaps:     make(map[string]*table.Heap, len(defs)),
		logger:    logger,
		sessionID: sessionID,
	}
	for _, t := range defs {
		for _, ix := range t.Indexes {
			ix.SetDataHandle(btree.Open(p, ix.RootPage))
		}
		heap, err := table.OpenHeap(p, t.UsageMapPage)
		if err != nil {
			return nil, err
		}
		db.tables[t.Name] = t
		db.heaps[t.Name] = heap
	}
	db.enforcer = fkey.New((*rowStore)(db), allTables(db.tables))
	logger.Debug("opened database", "tables", len(defs))
	return db, nil
}

func allTables(m map[string]*model.Table) []*model.Table {
	out := make([]*model.Table, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	return out
}

// Close releases the underlying file handle.
func (db *Database) Close() error {
	db.logger.Debug("closing database")
	return db.pager.Close()
}

// Pager exposes the underlying paged store, satisfying internal/mutate.Store.
func (db *Database) Pager() *page.Pager { return db.pager }

// Tables returns every table currently defined, in no particular order.
func (db *Database) Tables() []*model.Table { return allTables(db.tables) }

// Table looks up a table by name, case-insensitively.
func (db *Database) Table(name string) (*model.Table, bool) {
	for n, t := range db.tables {
		if equalFold(n, name) {
			return t, true
		}
	}
	return nil, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// CreateTable defines a new, empty table and persists the catalog.
func (db *Database) CreateTable(name string, columns []*model.Column) (*model.Table, error) {
	if _, exists := db.Table(name); exists {
		return nil, errors.NewIllegalArgument("name", "duplicate table name "+name)
	}
	for i, c := range columns {
		c.ColumnNumber = i
	}
	t := &model.Table{Name: name, Columns: columns}

	if err := db.pager.StartExclusiveWrite(); err != nil {
		return nil, err
	}
	heap, root, err := table.CreateHeap(db.pager)
	if err != nil {
		db.pager.Rollback()
		return nil, err
	}
	t.UsageMapPage = root
	t.RootPage = root
	db.tables[name] = t
	db.heaps[name] = heap
	if err := db.saveCatalog(); err != nil {
		db.pager.Rollback()
		delete(db.tables, name)
		delete(db.heaps, name)
		return nil, err
	}
	if err := db.pager.FinishWrite(); err != nil {
		return nil, err
	}
	db.enforcer = fkey.New((*rowStore)(db), allTables(db.tables))
	return t, nil
}

// AddColumn adds col to an existing table (spec section 4.I).
func (db *Database) AddColumn(tableName string, col *model.Column) error {
	t, ok := db.Table(tableName)
	if !ok {
		return errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.pager.StartWrite(); err != nil {
		return err
	}
	if err := mutate.AddColumn((*mutateStore)(db), t, col); err != nil {
		db.pager.Rollback()
		return err
	}
	return db.pager.FinishWrite()
}

// AddIndex adds idx to an existing table, reusing shared physical storage or
// populating a new index from every existing row (spec section 4.I).
func (db *Database) AddIndex(tableName string, idx *model.Index) error {
	t, ok := db.Table(tableName)
	if !ok {
		return errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.pager.StartWrite(); err != nil {
		return err
	}
	if err := mutate.AddIndex((*mutateStore)(db), t, idx); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.pager.FinishWrite(); err != nil {
		return err
	}
	db.enforcer = fkey.New((*rowStore)(db), allTables(db.tables))
	return nil
}

func (db *Database) saveCatalog() error {
	return catalog.Save(db.pager, allTables(db.tables))
}

// InsertRow inserts r into table, enforcing foreign keys and maintaining
// every index.
func (db *Database) InsertRow(tableName string, r row.Row) (model.RowId, error) {
	t, ok := db.Table(tableName)
	if !ok {
		return model.RowId{}, errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.enforcer.CheckAddRow(t, r); err != nil {
		return model.RowId{}, err
	}

	if err := db.pager.StartWrite(); err != nil {
		return model.RowId{}, err
	}
	id, err := db.heaps[t.Name].Insert(t, r)
	if err != nil {
		db.pager.Rollback()
		return model.RowId{}, err
	}
	if err := db.insertIndexEntries(t, id, r); err != nil {
		db.pager.Rollback()
		return model.RowId{}, err
	}
	if err := db.pager.FinishWrite(); err != nil {
		return model.RowId{}, err
	}
	db.logger.Debug("inserted row", "table", t.Name, "row", id.String())
	return id, nil
}

// UpdateRow replaces the row at id with newRow, cascading foreign keys and
// re-indexing the row's own entries. Must be supplied the row's current
// (pre-update) contents.
func (db *Database) UpdateRow(tableName string, id model.RowId, oldRow, newRow row.Row) error {
	t, ok := db.Table(tableName)
	if !ok {
		return errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.pager.StartWrite(); err != nil {
		return err
	}
	if err := db.enforcer.CheckUpdateRow(t, id, oldRow, newRow); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.removeIndexEntries(t, id, oldRow); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.heaps[t.Name].Put(t, id, newRow); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.insertIndexEntries(t, id, newRow); err != nil {
		db.pager.Rollback()
		return err
	}
	return db.pager.FinishWrite()
}

// DeleteRow removes the row at id, cascading or rejecting per its foreign
// keys. Must be supplied the row's current contents.
func (db *Database) DeleteRow(tableName string, id model.RowId, oldRow row.Row) error {
	t, ok := db.Table(tableName)
	if !ok {
		return errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.pager.StartWrite(); err != nil {
		return err
	}
	if err := db.enforcer.CheckDeleteRow(t, id, oldRow); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.removeIndexEntries(t, id, oldRow); err != nil {
		db.pager.Rollback()
		return err
	}
	if err := db.heaps[t.Name].Delete(id); err != nil {
		db.pager.Rollback()
		return err
	}
	return db.pager.FinishWrite()
}

// PreviewDelete reports whether deleting the row at id would succeed (and
// what it would cascade to reject as an error instead), without writing
// anything: it runs the same check DeleteRow does inside a write region,
// then always rolls back.
func (db *Database) PreviewDelete(tableName string, id model.RowId, oldRow row.Row) error {
	t, ok := db.Table(tableName)
	if !ok {
		return errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	if err := db.pager.StartWrite(); err != nil {
		return err
	}
	err := db.enforcer.CheckDeleteRow(t, id, oldRow)
	db.pager.Rollback()
	return err
}

func (db *Database) insertIndexEntries(t *model.Table, id model.RowId, r row.Row) error {
	for _, ix := range t.Indexes {
		key, err := indexKey(ix, r)
		if err != nil {
			return err
		}
		data := ix.DataHandle().(*btree.IndexData)
		if err := data.Insert(btree.Entry{Key: key, Row: id}); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) removeIndexEntries(t *model.Table, id model.RowId, r row.Row) error {
	for _, ix := range t.Indexes {
		key, err := indexKey(ix, r)
		if err != nil {
			return err
		}
		data := ix.DataHandle().(*btree.IndexData)
		if err := data.Delete(btree.Entry{Key: key, Row: id}); err != nil {
			return err
		}
	}
	return nil
}

// Scan opens a physical-order cursor over table's rows.
func (db *Database) Scan(tableName string) (*cursor.TableScanCursor, error) {
	t, ok := db.Table(tableName)
	if !ok {
		return nil, errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	return cursor.NewTableScanCursor(&rowSource{heap: db.heaps[t.Name], table: t}), nil
}

// IndexScan opens a key-order cursor over one of table's indexes.
func (db *Database) IndexScan(tableName, indexName string) (*cursor.IndexCursor, error) {
	t, ok := db.Table(tableName)
	if !ok {
		return nil, errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	ix := t.IndexByName(indexName)
	if ix == nil {
		return nil, errors.NewIllegalArgument("index", "unknown index "+indexName)
	}
	data := ix.DataHandle().(*btree.IndexData)
	return cursor.NewIndexCursor(data), nil
}

// GetRow reads the current contents of the row at id.
func (db *Database) GetRow(tableName string, id model.RowId) (row.Row, bool, error) {
	t, ok := db.Table(tableName)
	if !ok {
		return nil, false, errors.NewIllegalArgument("table", "unknown table "+tableName)
	}
	return db.heaps[t.Name].Get(t, id)
}

func (db *Database) String() string {
	return fmt.Sprintf("jetstore.Database{tables=%d, session=%s}", len(db.tables), db.sessionID)
}
