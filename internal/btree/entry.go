// Package btree implements the index B-tree and usage maps of spec section
// 4.F: ordered storage of collated index keys over INDEX_NODE/INDEX_LEAF
// pages, with RowId as the key's secondary sort column so that duplicate
// keys remain individually addressable, and usage maps enumerating the
// pages a table or index owns.
package btree

import (
	"bytes"

	"github.com/brackendb/jetstore/internal/model"
)

// Entry is one (collated key, row) pair stored in a leaf page.
type Entry struct {
	Key []byte
	Row model.RowId
}

// Compare orders two entries: primarily by Key (already collation-encoded
// by internal/collate, so a plain byte comparison is the correct
// comparison here), with Row as the tiebreaker so duplicate keys sort in a
// stable, total order.
func Compare(a, b Entry) int {
	if c := bytes.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return a.Row.Compare(b.Row)
}
