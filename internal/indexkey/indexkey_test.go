package indexkey

import (
	"bytes"
	"testing"

	"github.com/brackendb/jetstore/internal/model"
	"github.com/brackendb/jetstore/internal/row"
)

func longIndex(ascending bool) *model.Index {
	col := &model.Column{Name: "Id", Type: model.TypeLong}
	return &model.Index{
		Name:    "ByIdLong",
		Columns: []model.ColumnDescriptor{{Column: col, Ascending: ascending}},
	}
}

func textIndex(ascending bool) *model.Index {
	col := &model.Column{Name: "Name", Type: model.TypeText}
	return &model.Index{
		Name:    "ByName",
		Columns: []model.ColumnDescriptor{{Column: col, Ascending: ascending}},
	}
}

func TestEncodeNullSortsBeforePresent(t *testing.T) {
	idx := longIndex(true)
	null, err := Encode(idx, map[string]any{})
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	present, err := Encode(idx, map[string]any{"Id": int64(0)})
	if err != nil {
		t.Fatalf("Encode(0): %v", err)
	}
	if bytes.Compare(null, present) >= 0 {
		t.Fatalf("expected null key to sort before a present key, got null=%x present=%x", null, present)
	}
}

func TestEncodeLongOrdersNumerically(t *testing.T) {
	idx := longIndex(true)
	values := []int64{-100, -1, 0, 1, 100}
	var keys [][]byte
	for _, v := range values {
		k, err := Encode(idx, map[string]any{"Id": v})
		if err != nil {
			t.Fatalf("Encode(%d): %v", v, err)
		}
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("keys for %d and %d are not in ascending byte order", values[i-1], values[i])
		}
	}
}

func TestEncodeDescendingInvertsOrder(t *testing.T) {
	asc := longIndex(true)
	desc := longIndex(false)

	kAsc1, _ := Encode(asc, map[string]any{"Id": int64(1)})
	kAsc2, _ := Encode(asc, map[string]any{"Id": int64(2)})
	kDesc1, _ := Encode(desc, map[string]any{"Id": int64(1)})
	kDesc2, _ := Encode(desc, map[string]any{"Id": int64(2)})

	if bytes.Compare(kAsc1, kAsc2) >= 0 {
		t.Fatalf("ascending keys out of order")
	}
	if bytes.Compare(kDesc1, kDesc2) <= 0 {
		t.Fatalf("descending keys should order 1 after 2, got kDesc1=%x kDesc2=%x", kDesc1, kDesc2)
	}
}

func TestEncodeTextDistinguishesCaseAndSharesPresenceMarker(t *testing.T) {
	idx := textIndex(true)
	lower, err := Encode(idx, map[string]any{"Name": "apple"})
	if err != nil {
		t.Fatalf("Encode(apple): %v", err)
	}
	upper, err := Encode(idx, map[string]any{"Name": "APPLE"})
	if err != nil {
		t.Fatalf("Encode(APPLE): %v", err)
	}
	if bytes.Equal(lower, upper) {
		t.Fatalf("expected case to still distinguish keys via the secondary weight stream")
	}
	// Both values are present, so both keys start with the same presence
	// marker byte; the case difference shows up only in the collated bytes
	// after it.
	if lower[0] != upper[0] {
		t.Fatalf("expected matching presence marker byte")
	}
}

func TestEncodeRejectsWrongGoTypeForColumn(t *testing.T) {
	idx := longIndex(true)
	if _, err := Encode(idx, map[string]any{"Id": "not a number"}); err == nil {
		t.Fatalf("expected Encode to reject a string value for a long column")
	}
}

func TestEncodeBigIntUsesDecimalDomainBytesFromRowDecode(t *testing.T) {
	col := &model.Column{Name: "Serial", Type: model.TypeBigInt, ColumnNumber: 0}
	idx := &model.Index{
		Name:    "BySerial",
		Columns: []model.ColumnDescriptor{{Column: col, Ascending: true}},
	}
	table := &model.Table{Columns: []*model.Column{col}}

	values := []int64{-100, -1, 0, 1, 100}
	var keys [][]byte
	for _, v := range values {
		encoded, err := row.Encode(table, row.Row{"Serial": v})
		if err != nil {
			t.Fatalf("row.Encode(%d): %v", v, err)
		}
		decoded, err := row.Decode(table, encoded)
		if err != nil {
			t.Fatalf("row.Decode(%d): %v", v, err)
		}
		k, err := Encode(idx, decoded)
		if err != nil {
			t.Fatalf("indexkey.Encode over a BigInt column: %v", err)
		}
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		if bytes.Compare(keys[i-1], keys[i]) >= 0 {
			t.Fatalf("keys for %d and %d are not in ascending byte order", values[i-1], values[i])
		}
	}
}

func TestEncodeCompositeKeyConcatenatesColumnsInOrder(t *testing.T) {
	idCol := &model.Column{Name: "Id", Type: model.TypeLong}
	nameCol := &model.Column{Name: "Name", Type: model.TypeText}
	idx := &model.Index{
		Name: "ByIdName",
		Columns: []model.ColumnDescriptor{
			{Column: idCol, Ascending: true},
			{Column: nameCol, Ascending: true},
		},
	}
	key, err := Encode(idx, map[string]any{"Id": int64(1), "Name": "x"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	idOnly, _ := Encode(longIndex(true), map[string]any{"Id": int64(1)})
	if len(key) <= len(idOnly) {
		t.Fatalf("expected composite key to be longer than its first column's key alone")
	}
	if !bytes.HasPrefix(key, idOnly) {
		t.Fatalf("expected composite key to start with the first column's encoding")
	}
}
