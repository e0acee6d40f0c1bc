package model

import "strings"

// DataType tags the on-disk column type. Names follow the format's own
// vocabulary (spec section 6 / the product's column type byte).
type DataType int

const (
	TypeBoolean DataType = iota
	TypeByte
	TypeInt
	TypeLong
	TypeMoney
	TypeFloat
	TypeDouble
	TypeShortDateTime
	TypeText
	TypeOLE
	TypeMemo
	TypeGUID
	TypeNumeric
	TypeBigInt
	TypeComplex
	TypeUnsupported
)

// ValueDomain is the in-memory Go type family a DataType reads/writes as,
// per the row codec mapping table in spec section 4.D.
type ValueDomain int

const (
	DomainLong ValueDomain = iota
	DomainDouble
	DomainDateTime
	DomainDecimal
	DomainString
)

// Domain returns the value-domain family for a column type.
func (t DataType) Domain() ValueDomain {
	switch t {
	case TypeBoolean, TypeByte, TypeInt, TypeLong:
		return DomainLong
	case TypeMoney, TypeFloat, TypeDouble:
		return DomainDouble
	case TypeShortDateTime:
		return DomainDateTime
	case TypeNumeric, TypeBigInt:
		return DomainDecimal
	default:
		return DomainString
	}
}

// FixedWidth returns the on-disk byte width for fixed-size column types, and
// false for variable-width types (text, memo, OLE, complex).
func (t DataType) FixedWidth() (width int, fixed bool) {
	switch t {
	case TypeBoolean:
		return 0, true // the null-mask bit doubles as the value; no payload bytes
	case TypeByte:
		return 1, true
	case TypeInt:
		return 2, true
	case TypeLong:
		return 4, true
	case TypeMoney:
		return 8, true
	case TypeFloat:
		return 4, true
	case TypeDouble:
		return 8, true
	case TypeShortDateTime:
		return 8, true
	case TypeGUID:
		return 16, true
	case TypeNumeric:
		return 17, true
	case TypeBigInt:
		return 8, true
	default:
		return 0, false
	}
}

// ColumnFlags are per-column bit flags.
type ColumnFlags uint16

const (
	ColFlagAutoNumber ColumnFlags = 1 << iota
	ColFlagHyperlink
	ColFlagCompressedUnicode
)

// Column describes one column of a Table.
type Column struct {
	Name              string
	Type              DataType
	ColumnNumber      int
	FixedOffset       int // offset within the fixed-width region, -1 if variable
	VarLenIndex       int // index into the variable-length trailer, -1 if fixed
	SortOrder         TextSortOrder
	Precision         int
	Scale             int
	Flags             ColumnFlags
	DefaultExpression string // unparsed; the expression evaluator is an excluded collaborator
}

func (c *Column) IsVariableLength() bool {
	_, fixed := c.Type.FixedWidth()
	return !fixed
}

func (c *Column) IsAutoNumber() bool { return c.Flags&ColFlagAutoNumber != 0 }

// TextSortOrder names a locale-dependent collation family, resolved further
// by internal/collate.
type TextSortOrder struct {
	Name  string // e.g. "GENERAL", "GENERAL_LEGACY", "GENERAL_97"
	Locale string // BCP-47-ish locale tag, e.g. "en-US"
}

// ColumnDescriptor references a column within an Index, with its direction
// and per-column flags.
type ColumnDescriptor struct {
	Column     *Column
	Ascending  bool
	ColumnOnly bool // per-column flags placeholder (ignored-bit mask lives in IndexFlags)
}

// IndexFlags are bit flags on an Index.
type IndexFlags uint8

const (
	IndexFlagUnique IndexFlags = 1 << iota
	IndexFlagIgnoreNulls
	IndexFlagPrimaryKey
	// IndexFlagReserved marks bits the format defines but this engine treats
	// as don't-care when matching IndexData for reuse (spec 4.I "modulo
	// ignored bits").
	IndexFlagReserved
)

// SignificantFlags masks out bits this engine ignores when comparing two
// Indexes for physical IndexData reuse.
const SignificantFlags = IndexFlagUnique | IndexFlagIgnoreNulls | IndexFlagPrimaryKey

// ForeignKeyRef describes one side of a foreign-key relationship.
type ForeignKeyRef struct {
	PrimaryTable    string // empty if this index is not FK-bearing
	CascadeUpdates  bool
	CascadeDeletes  bool
	IsPrimary       bool // true if THIS table is the "one" side
}

// Index is a logical named index over a Table. Multiple Indexes may share
// one physical IndexData (internal/btree.IndexData) when their columns and
// SignificantFlags match.
type Index struct {
	Name       string
	Columns    []ColumnDescriptor
	Flags      IndexFlags
	ForeignKey *ForeignKeyRef
	RootPage   int
	data       IndexDataHandle
}

// IndexDataHandle is an opaque handle to the physical backing store for an
// Index (a *btree.IndexData), set when the index is opened (jetstore) or
// created (internal/mutate). Kept as an interface{} here to avoid an import
// cycle between model and btree.
type IndexDataHandle = any

func (ix *Index) SetDataHandle(h IndexDataHandle) { ix.data = h }
func (ix *Index) DataHandle() IndexDataHandle     { return ix.data }

func (ix *Index) IsUnique() bool     { return ix.Flags&IndexFlagUnique != 0 }
func (ix *Index) IsPrimaryKey() bool { return ix.Flags&IndexFlagPrimaryKey != 0 }

// SameShape reports whether two indexes can share one physical IndexData:
// same significant flags and the same ordered columns (by name, case
// insensitive) with matching ascending flags.
func (ix *Index) SameShape(other *Index) bool {
	if ix.Flags&SignificantFlags != other.Flags&SignificantFlags {
		return false
	}
	if len(ix.Columns) != len(other.Columns) {
		return false
	}
	for i, cd := range ix.Columns {
		od := other.Columns[i]
		if !strings.EqualFold(cd.Column.Name, od.Column.Name) {
			return false
		}
		if cd.Ascending != od.Ascending {
			return false
		}
	}
	return true
}

// Table is an ordered sequence of Columns plus its Indexes and owned pages.
type Table struct {
	Name           string
	Columns        []*Column
	Indexes        []*Index
	RootPage       int
	UsageMapPage   int
	PrimaryKeyName string // name of the at-most-one primary-key index, "" if none
}

// ColumnByName performs a case-insensitive lookup.
func (t *Table) ColumnByName(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// IndexByName performs a case-insensitive lookup.
func (t *Table) IndexByName(name string) *Index {
	for _, ix := range t.Indexes {
		if strings.EqualFold(ix.Name, name) {
			return ix
		}
	}
	return nil
}

// ColumnNameUnique reports whether name does not collide case-insensitively with
// any existing column name.
func (t *Table) ColumnNameUnique(name string) bool {
	return t.ColumnByName(name) == nil
}

func (t *Table) IndexNameUnique(name string) bool {
	return t.IndexByName(name) == nil
}

// AutoNumberColumns returns the columns flagged as auto-number, for the
// "at most one per type family" invariant check in internal/mutate.
func (t *Table) AutoNumberColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.IsAutoNumber() {
			out = append(out, c)
		}
	}
	return out
}

// RowBinding is the narrow seam the (excluded) expression evaluator
// implements to resolve identifiers against the row currently being
// validated or defaulted. Kept here only as an interface so Column default
// value / validation hooks have somewhere to attach without this module
// depending on an expression package.
type RowBinding interface {
	// Value returns the value bound to an identifier, such as a column name.
	Value(identifier string) (any, bool)
}
