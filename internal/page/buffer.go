package page

import "encoding/binary"

// Buffer is a little-endian, position/limit-tracking view over a byte
// slice, matching the "endian-aware buffer factory" spec section 4.A calls
// for. It intentionally mirrors java.nio.ByteBuffer's position/limit model
// since that is the vocabulary spec section 4.A and 4.B use ("position = 0,
// limit = pageSize after read").
type Buffer struct {
	data     []byte
	position int
	limit    int
}

// NewBuffer wraps an existing byte slice; Wrap in spec section 4.A.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data, position: 0, limit: len(data)}
}

// NewPageBuffer allocates a zeroed buffer of exactly pageSize bytes, the
// createPageBuffer() operation of spec section 4.A.
func NewPageBuffer(pageSize int) *Buffer {
	return NewBuffer(make([]byte, pageSize))
}

func (b *Buffer) Bytes() []byte { return b.data }
func (b *Buffer) Len() int      { return len(b.data) }
func (b *Buffer) Position() int { return b.position }
func (b *Buffer) Limit() int    { return b.limit }

func (b *Buffer) Rewind() { b.position = 0 }

func (b *Buffer) SetPosition(p int) { b.position = p }
func (b *Buffer) SetLimit(l int)    { b.limit = l }

func (b *Buffer) GetByte(off int) byte        { return b.data[off] }
func (b *Buffer) PutByte(off int, v byte)     { b.data[off] = v }
func (b *Buffer) GetUint16(off int) uint16    { return binary.LittleEndian.Uint16(b.data[off:]) }
func (b *Buffer) PutUint16(off int, v uint16) { binary.LittleEndian.PutUint16(b.data[off:], v) }
func (b *Buffer) GetUint32(off int) uint32    { return binary.LittleEndian.Uint32(b.data[off:]) }
func (b *Buffer) PutUint32(off int, v uint32) { binary.LittleEndian.PutUint32(b.data[off:], v) }
func (b *Buffer) GetUint64(off int) uint64    { return binary.LittleEndian.Uint64(b.data[off:]) }
func (b *Buffer) PutUint64(off int, v uint64) { binary.LittleEndian.PutUint64(b.data[off:], v) }

func (b *Buffer) GetInt16(off int) int16 { return int16(b.GetUint16(off)) }
func (b *Buffer) GetInt32(off int) int32 { return int32(b.GetUint32(off)) }
func (b *Buffer) GetInt64(off int) int64 { return int64(b.GetUint64(off)) }

func (b *Buffer) GetBytes(off, n int) []byte {
	out := make([]byte, n)
	copy(out, b.data[off:off+n])
	return out
}

func (b *Buffer) PutBytes(off int, v []byte) { copy(b.data[off:], v) }
