// Package bytesbuilder implements the deferred byte composition and null
// mask types of spec section 4.C: a Builder that lets a row encoder
// reserve space and back-patch it once later fields' lengths are known, and
// a NullMask bitmap recording each column's nullability (and, for boolean
// columns, its value).
package bytesbuilder

import (
	"encoding/binary"

	"github.com/brackendb/jetstore/errors"
)

// Builder accumulates bytes for a row or index entry, supporting
// reservations that are filled in after the fact once a later value's size
// is known (used for the var-length column offset table, which is written
// after the column bytes it points at).
type Builder struct {
	buf []byte
}

// New returns an empty Builder with capacity hinted by sizeHint.
func New(sizeHint int) *Builder {
	return &Builder{buf: make([]byte, 0, sizeHint)}
}

func (b *Builder) Len() int { return len(b.buf) }

func (b *Builder) PutByte(v byte) { b.buf = append(b.buf, v) }

func (b *Builder) PutUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) PutUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) PutBytes(v []byte) { b.buf = append(b.buf, v...) }

// Reserve appends n zero bytes and returns their starting offset, to be
// filled in later via PutByteAt/PutUint16At.
func (b *Builder) Reserve(n int) int {
	start := len(b.buf)
	b.buf = append(b.buf, make([]byte, n)...)
	return start
}

func (b *Builder) PutByteAt(off int, v byte) { b.buf[off] = v }

func (b *Builder) PutUint16At(off int, v uint16) {
	binary.LittleEndian.PutUint16(b.buf[off:], v)
}

func (b *Builder) PutUint32At(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[off:], v)
}

// ToBytes returns the accumulated bytes. The returned slice aliases the
// Builder's internal buffer and must not be mutated by the caller.
func (b *Builder) ToBytes() []byte { return b.buf }

// NullMask is a per-row bitmap recording which columns are null, occupying
// ceil(columnCount/8) bytes. A boolean column has no storage of its own:
// its bit in the mask doubles as its value (0 = false, 1 = true), and it
// never appears as "null" in this mask - see spec section 4.C.
type NullMask struct {
	bits         []byte
	columnCount  int
}

// NewNullMask allocates a mask sized for columnCount columns, all bits
// cleared (every column marked null until explicitly set).
func NewNullMask(columnCount int) *NullMask {
	return &NullMask{
		bits:        make([]byte, (columnCount+7)/8),
		columnCount: columnCount,
	}
}

// FromBytes wraps an on-disk mask already sized for columnCount columns.
func FromBytes(data []byte, columnCount int) (*NullMask, error) {
	want := (columnCount + 7) / 8
	if len(data) < want {
		return nil, errors.NewIllegalArgument("nullMask", "too short for column count")
	}
	bits := make([]byte, want)
	copy(bits, data[:want])
	return &NullMask{bits: bits, columnCount: columnCount}, nil
}

func (m *NullMask) Bytes() []byte { return m.bits }

func (m *NullMask) Size() int { return len(m.bits) }

// IsNull reports whether columnNumber's bit is clear (null).
func (m *NullMask) IsNull(columnNumber int) bool {
	return !m.bitSet(columnNumber)
}

// SetNull clears columnNumber's bit, marking it null.
func (m *NullMask) SetNull(columnNumber int) {
	m.bits[columnNumber/8] &^= 1 << uint(columnNumber%8)
}

// MarkPresent sets columnNumber's bit, marking it non-null (or, for a
// boolean column, marking its value true).
func (m *NullMask) MarkPresent(columnNumber int) {
	m.bits[columnNumber/8] |= 1 << uint(columnNumber%8)
}

// SetBoolean sets a boolean column's bit directly to its value.
func (m *NullMask) SetBoolean(columnNumber int, value bool) {
	if value {
		m.MarkPresent(columnNumber)
	} else {
		m.SetNull(columnNumber)
	}
}

// Bool returns a boolean column's value as stored in the mask.
func (m *NullMask) Bool(columnNumber int) bool {
	return m.bitSet(columnNumber)
}

func (m *NullMask) bitSet(columnNumber int) bool {
	return m.bits[columnNumber/8]&(1<<uint(columnNumber%8)) != 0
}
