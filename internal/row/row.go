// Package row implements the row codec of spec section 4.D: translating
// between a Table's Columns and the packed on-disk byte layout (null mask +
// fixed region + variable region + variable offset trailer), including the
// numeric and text value-domain conversions the codec depends on.
package row

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/bytesbuilder"
	"github.com/brackendb/jetstore/internal/model"
)

// Significant-digit budgets for FormatDouble, spec section 4.D: float,
// double (and money, which shares the double domain), and decimal values
// each carry a different precision before scientific notation kicks in.
const (
	SigDigitsFloat   = 7
	SigDigitsDouble  = 15
	SigDigitsDecimal = 28
)

// Row is a decoded record, keyed by column name. It implements
// model.RowBinding so the (excluded) expression evaluator's seam can resolve
// identifiers against it.
type Row map[string]any

func (r Row) Value(identifier string) (any, bool) {
	v, ok := r[identifier]
	return v, ok
}

type fixedSlot struct {
	col    *model.Column
	offset int
	width  int
}

type varSlot struct {
	col *model.Column
}

// layout is the pure function of a Table's Columns that the codec needs:
// where each fixed column lives, and the order of variable columns. It is
// recomputed from table.Columns on every call rather than cached on the
// Column itself, so two Tables sharing column definitions never alias
// layout state.
type layout struct {
	fixed    []fixedSlot
	vars     []varSlot
	fixedLen int
}

func computeLayout(table *model.Table) layout {
	cols := make([]*model.Column, len(table.Columns))
	copy(cols, table.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].ColumnNumber < cols[j].ColumnNumber })

	var l layout
	offset := 0
	for _, c := range cols {
		if width, fixed := c.Type.FixedWidth(); fixed {
			if width == 0 {
				continue // boolean: lives entirely in the null mask
			}
			l.fixed = append(l.fixed, fixedSlot{col: c, offset: offset, width: width})
			offset += width
		} else {
			l.vars = append(l.vars, varSlot{col: c})
		}
	}
	l.fixedLen = offset
	return l
}

// Encode packs row into the on-disk byte form for table.
func Encode(table *model.Table, r Row) ([]byte, error) {
	l := computeLayout(table)
	mask := bytesbuilder.NewNullMask(len(table.Columns))

	fixedBuf := make([]byte, l.fixedLen)
	var varBytes [][]byte
	var varOffsets []uint16
	cursor := uint16(0)

	for _, c := range table.Columns {
		v, present := r[c.Name]
		if !present || v == nil {
			if c.Type != model.TypeBoolean {
				mask.SetNull(c.ColumnNumber)
			} else {
				mask.SetBoolean(c.ColumnNumber, false)
			}
			continue
		}
		if c.Type == model.TypeBoolean {
			b, ok := v.(bool)
			if !ok {
				return nil, errors.NewIllegalArgument(c.Name, "expected bool")
			}
			mask.SetBoolean(c.ColumnNumber, b)
			continue
		}
		mask.MarkPresent(c.ColumnNumber)
	}

	for _, fs := range l.fixed {
		v, present := r[fs.col.Name]
		if !present || v == nil {
			continue
		}
		enc, err := encodeFixed(fs.col, v)
		if err != nil {
			return nil, err
		}
		if len(enc) != fs.width {
			return nil, errors.NewIllegalState(fmt.Sprintf("column %s encoded to %d bytes, want %d", fs.col.Name, len(enc), fs.width))
		}
		copy(fixedBuf[fs.offset:], enc)
	}

	for _, vs := range l.vars {
		v, present := r[vs.col.Name]
		var enc []byte
		if present && v != nil {
			var err error
			enc, err = encodeVariable(vs.col, v)
			if err != nil {
				return nil, err
			}
		}
		varBytes = append(varBytes, enc)
		cursor += uint16(len(enc))
		varOffsets = append(varOffsets, cursor)
	}

	b := bytesbuilder.New(len(fixedBuf) + int(cursor) + 2*len(l.vars) + mask.Size() + 4)
	b.PutUint16(uint16(len(table.Columns)))
	b.PutBytes(mask.Bytes())
	b.PutBytes(fixedBuf)
	for _, vb := range varBytes {
		b.PutBytes(vb)
	}
	b.PutUint16(uint16(len(l.vars)))
	for _, off := range varOffsets {
		b.PutUint16(off)
	}
	return b.ToBytes(), nil
}

// Decode unpacks data, previously produced by Encode for the same table
// shape, back into a Row.
func Decode(table *model.Table, data []byte) (Row, error) {
	l := computeLayout(table)
	if len(data) < 2 {
		return nil, errors.NewIllegalArgument("data", "too short for row header")
	}
	colCount := int(uint16(data[0]) | uint16(data[1])<<8)
	pos := 2

	maskLen := (colCount + 7) / 8
	if pos+maskLen > len(data) {
		return nil, errors.NewIllegalArgument("data", "too short for null mask")
	}
	mask, err := bytesbuilder.FromBytes(data[pos:pos+maskLen], colCount)
	if err != nil {
		return nil, err
	}
	pos += maskLen

	if pos+l.fixedLen > len(data) {
		return nil, errors.NewIllegalArgument("data", "too short for fixed region")
	}
	fixedBuf := data[pos : pos+l.fixedLen]
	pos += l.fixedLen

	if len(data) < 2 {
		return nil, errors.NewIllegalArgument("data", "missing variable trailer")
	}
	varCountOff := len(data) - 2 - 2*len(l.vars)
	if varCountOff < pos {
		return nil, errors.NewIllegalArgument("data", "variable trailer overlaps body")
	}
	varDataEnd := varCountOff
	varBody := data[pos:varDataEnd]

	trailer := data[varDataEnd:]
	if len(trailer) < 2 {
		return nil, errors.NewIllegalArgument("data", "missing variable column count")
	}
	declaredVarCount := int(uint16(trailer[0]) | uint16(trailer[1])<<8)
	if declaredVarCount != len(l.vars) {
		return nil, errors.NewIllegalState("variable column count mismatch against table schema")
	}
	offsets := trailer[2:]
	if len(offsets) != 2*len(l.vars) {
		return nil, errors.NewIllegalArgument("data", "variable offset trailer malformed")
	}

	out := make(Row, len(table.Columns))

	for _, fs := range l.fixed {
		if mask.IsNull(fs.col.ColumnNumber) {
			continue
		}
		v, err := decodeFixed(fs.col, fixedBuf[fs.offset:fs.offset+fs.width])
		if err != nil {
			return nil, err
		}
		out[fs.col.Name] = v
	}

	start := 0
	for i, vs := range l.vars {
		end := int(uint16(offsets[2*i]) | uint16(offsets[2*i+1])<<8)
		if end < start || end > len(varBody) {
			return nil, errors.NewIllegalArgument("data", "variable offset out of range")
		}
		if !mask.IsNull(vs.col.ColumnNumber) && end > start {
			v, err := decodeVariable(vs.col, varBody[start:end])
			if err != nil {
				return nil, err
			}
			out[vs.col.Name] = v
		}
		start = end
	}

	for _, c := range table.Columns {
		if c.Type == model.TypeBoolean {
			out[c.Name] = mask.Bool(c.ColumnNumber)
		}
	}

	return out, nil
}

// RoundHalfEven rounds v to scale decimal places using round-half-to-even
// (banker's rounding), matching the format's numeric display convention.
func RoundHalfEven(v float64, scale int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow(10, float64(scale))
	scaled := v * pow
	floor := math.Floor(scaled)
	diff := scaled - floor
	var rounded float64
	switch {
	case diff < 0.5:
		rounded = floor
	case diff > 0.5:
		rounded = floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			rounded = floor
		} else {
			rounded = floor + 1
		}
	}
	return rounded / pow
}

// FormatDouble renders v the way the format's expression layer does when a
// numeric value is coerced to text: NaN and the infinities print as the
// product's observed literal strings, finite values print to sigDigits
// significant digits, falling back to D.DDDE±N scientific notation (the
// exponent without zero padding, e.g. 1.234E-7) once the decimal form would
// need more digits than that budget allows.
func FormatDouble(v float64, sigDigits int) string {
	switch {
	case math.IsNaN(v):
		return "1.#QNAN"
	case math.IsInf(v, 1):
		return "1.#INF"
	case math.IsInf(v, -1):
		return "-1.#INF"
	}
	if v == 0 {
		return "0"
	}

	neg := math.Signbit(v)
	formatted := strconv.FormatFloat(math.Abs(v), 'e', sigDigits-1, 64)
	mantissa, expPart, _ := strings.Cut(formatted, "e")
	exp, _ := strconv.Atoi(expPart)

	digits := strings.Replace(mantissa, ".", "", 1)
	digits = strings.TrimRight(digits, "0")
	if digits == "" {
		digits = "0"
	}

	if exp < -4 || exp >= sigDigits {
		return formatScientific(neg, digits, exp)
	}
	return formatDecimal(neg, digits, exp)
}

// formatScientific renders D.DDDE±N: one leading digit, a decimal point,
// the remaining significant digits, then the signed base-10 exponent
// without zero padding.
func formatScientific(neg bool, digits string, exp int) string {
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte(digits[0])
	b.WriteByte('.')
	if len(digits) > 1 {
		b.WriteString(digits[1:])
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('E')
	if exp >= 0 {
		b.WriteByte('+')
	}
	b.WriteString(strconv.Itoa(exp))
	return b.String()
}

// formatDecimal renders digits (with implied decimal point after the first
// exp+1 of them) in plain decimal notation, padding with zeros as needed.
func formatDecimal(neg bool, digits string, exp int) string {
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if exp >= 0 {
		intLen := exp + 1
		if intLen >= len(digits) {
			b.WriteString(digits)
			b.WriteString(strings.Repeat("0", intLen-len(digits)))
		} else {
			b.WriteString(digits[:intLen])
			b.WriteByte('.')
			b.WriteString(digits[intLen:])
		}
	} else {
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -exp-1))
		b.WriteString(digits)
	}
	return b.String()
}
