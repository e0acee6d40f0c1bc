// Package page implements the paged byte store (spec section 4.A): fixed
// size page I/O over a file, with a pluggable codec hook, a little-endian
// buffer factory, and page allocation. It also implements the buffer/page
// holder caching abstractions of spec section 4.B.
package page

// Page type byte values, spec section 6.
const (
	TypeInvalid   byte = 0x00
	TypeData      byte = 0x01
	TypeTableDef  byte = 0x02
	TypeIndexNode byte = 0x03
	TypeIndexLeaf byte = 0x04
	TypeUsageMap  byte = 0x05
)

// Page sizes the format supports. Jet3 uses 2 KiB pages; Jet4/ACE use 4 KiB.
const (
	PageSizeJet3 = 2048
	PageSizeJet4 = 4096
)

// Header page 0 layout (offsets into the first page of the file).
const (
	OffsetPageType        = 0
	OffsetFormatVersion   = 0x14
	OffsetDefaultSortOrder = 0x3A
	OffsetEncodingKey     = 0x3E
)

// Reserved page numbers, mirroring internal/model's RowId sentinels for the
// page-only case (an index root before first allocation, etc).
const (
	FirstPageNumber = -1
	LastPageNumber  = -2
)
