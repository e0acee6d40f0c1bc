// Package indexkey builds the B-tree key bytes for a row's indexed
// columns, bridging internal/model's Index/ColumnDescriptor shape, the text
// collation of internal/collate, and the fixed-width numeric encodings of
// internal/row.
package indexkey

import (
	"encoding/binary"
	"math"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/collate"
	"github.com/brackendb/jetstore/internal/model"
)

const (
	nullPrefix    byte = 0x00
	presentPrefix byte = 0x01
)

// Encode builds the composite key for idx over row r: each column
// contributes a null/present marker byte followed by its encoded value,
// concatenated in index-column order, with descending columns having their
// contribution (marker and value) bitwise inverted.
func Encode(idx *model.Index, r map[string]any) ([]byte, error) {
	var out []byte
	for _, cd := range idx.Columns {
		part, err := encodeColumn(cd.Column, r[cd.Column.Name])
		if err != nil {
			return nil, err
		}
		if !cd.Ascending {
			invertInPlace(part)
		}
		out = append(out, part...)
	}
	return out, nil
}

func invertInPlace(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}

func encodeColumn(c *model.Column, v any) ([]byte, error) {
	if v == nil {
		return []byte{nullPrefix}, nil
	}
	var value []byte
	switch c.Type.Domain() {
	case model.DomainString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.NewIllegalArgument(c.Name, "expected a string for a text index column")
		}
		tbl, _, err := collate.Resolve(c.SortOrder)
		if err != nil {
			return nil, err
		}
		value = collate.Encode(tbl, s, false)
	case model.DomainLong:
		iv, err := asInt64(v)
		if err != nil {
			return nil, errors.NewIllegalArgument(c.Name, err.Error())
		}
		value = sortableInt64(iv)
	case model.DomainDouble, model.DomainDateTime:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, errors.NewIllegalArgument(c.Name, err.Error())
		}
		value = sortableFloat64(fv)
	case model.DomainDecimal:
		bv, ok := v.([]byte)
		if !ok {
			return nil, errors.NewIllegalArgument(c.Name, "expected raw bytes for a decimal index column")
		}
		value = bv
	}
	out := make([]byte, 0, 1+len(value))
	out = append(out, presentPrefix)
	out = append(out, value...)
	return out, nil
}

// sortableInt64 encodes v as 8 big-endian bytes with the sign bit flipped,
// so that unsigned byte comparison matches signed numeric comparison.
func sortableInt64(v int64) []byte {
	u := uint64(v) ^ (1 << 63)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// sortableFloat64 encodes v as 8 big-endian bytes ordered so that unsigned
// byte comparison matches float comparison: for non-negative values, flip
// the sign bit; for negative values, flip every bit.
func sortableFloat64(v float64) []byte {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, bits)
	return b
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.ErrIllegalArgument
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, errors.ErrIllegalArgument
	}
}
