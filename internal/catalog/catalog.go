// Package catalog persists the database's table/column/index definitions
// (spec section 4.I's SaveTableDef target) as a gob-encoded record chained
// across pages rooted at a fixed page number. Real Jet/ACE TableDef pages
// pack this information into the same paged format as everything else;
// since no original_source bytes were available to reproduce that layout
// byte-for-byte, this engine gives the catalog its own representative
// on-disk record instead (see DESIGN.md).
package catalog

import (
	"bytes"
	"encoding/gob"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/page"
)

// RootPageNumber is the fixed page the catalog chain starts at. Page 0 is
// the format header (spec section 4.A), so the catalog starts at page 1.
const RootPageNumber = 1

// entry is the gob-serializable shape of one table definition. model.Column
// and model.Index are plain data, but model.Index.data (the physical
// IndexDataHandle) is rebuilt by the caller after Load, not persisted here.
type entry struct {
	Name           string
	Columns        []*model.Column
	RootPage       int
	UsageMapPage   int
	PrimaryKeyName string
	Indexes        []indexEntry
}

type indexEntry struct {
	Name       string
	ColumnName []string
	Ascending  []bool
	Flags      model.IndexFlags
	ForeignKey *model.ForeignKeyRef
	RootPage   int
}

func init() {
	gob.Register(&model.Column{})
}

// Save writes the full set of table definitions as one chained record
// starting at RootPageNumber. Must be called inside a write region.
func Save(pager *page.Pager, tables []*model.Table) error {
	entries := make([]entry, 0, len(tables))
	for _, t := range tables {
		e := entry{
			Name:           t.Name,
			Columns:        t.Columns,
			RootPage:       t.RootPage,
			UsageMapPage:   t.UsageMapPage,
			PrimaryKeyName: t.PrimaryKeyName,
		}
		for _, ix := range t.Indexes {
			ie := indexEntry{
				Name:       ix.Name,
				Flags:      ix.Flags,
				ForeignKey: ix.ForeignKey,
				RootPage:   ix.RootPage,
			}
			for _, cd := range ix.Columns {
				ie.ColumnName = append(ie.ColumnName, cd.Column.Name)
				ie.Ascending = append(ie.Ascending, cd.Ascending)
			}
			e.Indexes = append(e.Indexes, ie)
		}
		entries = append(entries, e)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entries); err != nil {
		return errors.NewIO("encode catalog", "", err)
	}
	return writeChain(pager, RootPageNumber, buf.Bytes())
}

// Load reads the table definitions persisted by Save, wiring each index's
// btree root page but leaving its physical IndexData handle for the caller
// to open (internal/btree.Open), since model cannot import btree.
func Load(pager *page.Pager) ([]*model.Table, error) {
	raw, err := readChain(pager, RootPageNumber)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []entry
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&entries); err != nil {
		return nil, errors.NewIO("decode catalog", "", err)
	}

	tables := make([]*model.Table, 0, len(entries))
	for _, e := range entries {
		t := &model.Table{
			Name:           e.Name,
			Columns:        e.Columns,
			RootPage:       e.RootPage,
			UsageMapPage:   e.UsageMapPage,
			PrimaryKeyName: e.PrimaryKeyName,
		}
		for _, ie := range e.Indexes {
			ix := &model.Index{
				Name:       ie.Name,
				Flags:      ie.Flags,
				ForeignKey: ie.ForeignKey,
				RootPage:   ie.RootPage,
			}
			for i, name := range ie.ColumnName {
				col := t.ColumnByName(name)
				if col == nil {
					return nil, errors.NewIllegalState("catalog refers to unknown column " + name)
				}
				ix.Columns = append(ix.Columns, model.ColumnDescriptor{Column: col, Ascending: ie.Ascending[i]})
			}
			t.Indexes = append(t.Indexes, ix)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
