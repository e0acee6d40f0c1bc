package row

import (
	"encoding/binary"
	"math"
	"strconv"

	"golang.org/x/text/encoding/unicode"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/model"
)

// utf16LE is the text codec for TypeText/TypeMemo columns, grounded in
// SPEC_FULL.md section 4.D's ambient addition: decode/encode through
// golang.org/x/text/encoding/unicode rather than a hand-rolled UTF-16
// reader. Compressed-unicode columns (ColFlagCompressedUnicode) still pass
// through this codec; this implementation does not reproduce the format's
// byte-level run-length compression scheme, only its logical value.
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// moneyScale is the fixed-point scale the format stores MONEY columns at:
// an 8-byte integer representing the value times 10000, converted to and
// from the IEEE-754 double domain spec section 4.D assigns MONEY to.
const moneyScale = 10000

// sortableBigInt presents a decoded BIG_INT value in the arbitrary-
// precision decimal domain spec section 4.D assigns it: 8 big-endian
// bytes with the sign bit flipped, so unsigned byte comparison matches
// signed numeric order - the same convention internal/indexkey uses for
// its own sortable integer encoding, which is what lets indexkey consume
// this value directly as raw decimal-domain bytes.
func sortableBigInt(iv int64) []byte {
	u := uint64(iv) ^ (1 << 63)
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// bigIntValue accepts either the sortableBigInt byte form (round-tripped
// from a prior Decode) or a plain Go integer (for callers constructing a
// Row programmatically) and returns the underlying int64.
func bigIntValue(v any) (int64, error) {
	if bv, ok := v.([]byte); ok {
		if len(bv) != 8 {
			return 0, errors.NewIllegalArgument("value", "expected 8-byte decimal-domain bytes for a BIG_INT column")
		}
		u := binary.BigEndian.Uint64(bv) ^ (1 << 63)
		return int64(u), nil
	}
	return asInt64(v)
}

func encodeFixed(c *model.Column, v any) ([]byte, error) {
	switch c.Type {
	case model.TypeByte:
		iv, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return []byte{byte(iv)}, nil
	case model.TypeInt:
		iv, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(int16(iv)))
		return b, nil
	case model.TypeLong:
		iv, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(iv)))
		return b, nil
	case model.TypeBigInt:
		iv, err := bigIntValue(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(iv))
		return b, nil
	case model.TypeFloat:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(fv)))
		return b, nil
	case model.TypeDouble:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(fv))
		return b, nil
	case model.TypeMoney:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		scaled := int64(RoundHalfEven(fv*moneyScale, 0))
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(scaled))
		return b, nil
	case model.TypeShortDateTime:
		fv, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(fv))
		return b, nil
	case model.TypeGUID:
		bv, ok := v.([]byte)
		if !ok || len(bv) != 16 {
			return nil, errors.NewIllegalArgument(c.Name, "expected 16-byte GUID")
		}
		out := make([]byte, 16)
		copy(out, bv)
		return out, nil
	case model.TypeNumeric:
		bv, ok := v.([]byte)
		if !ok || len(bv) != 17 {
			return nil, errors.NewIllegalArgument(c.Name, "expected 17-byte numeric")
		}
		out := make([]byte, 17)
		copy(out, bv)
		return out, nil
	default:
		return nil, errors.NewIllegalArgument(c.Name, "not a fixed-width column type")
	}
}

func decodeFixed(c *model.Column, data []byte) (any, error) {
	switch c.Type {
	case model.TypeByte:
		return int64(data[0]), nil
	case model.TypeInt:
		return int64(int16(binary.LittleEndian.Uint16(data))), nil
	case model.TypeLong:
		return int64(int32(binary.LittleEndian.Uint32(data))), nil
	case model.TypeBigInt:
		iv := int64(binary.LittleEndian.Uint64(data))
		return sortableBigInt(iv), nil
	case model.TypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), nil
	case model.TypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	case model.TypeMoney:
		scaled := int64(binary.LittleEndian.Uint64(data))
		return float64(scaled) / moneyScale, nil
	case model.TypeShortDateTime:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
	case model.TypeGUID:
		out := make([]byte, 16)
		copy(out, data)
		return out, nil
	case model.TypeNumeric:
		out := make([]byte, 17)
		copy(out, data)
		return out, nil
	default:
		return nil, errors.NewIllegalArgument(c.Name, "not a fixed-width column type")
	}
}

func encodeVariable(c *model.Column, v any) ([]byte, error) {
	switch c.Type {
	case model.TypeText, model.TypeMemo:
		s, ok := coerceToText(v)
		if !ok {
			return nil, errors.NewIllegalArgument(c.Name, "expected string")
		}
		enc, err := utf16LE.NewEncoder().String(s)
		if err != nil {
			return nil, errors.NewEval("encode text column "+c.Name, err.Error())
		}
		return []byte(enc), nil
	case model.TypeOLE, model.TypeComplex:
		bv, ok := v.([]byte)
		if !ok {
			return nil, errors.NewIllegalArgument(c.Name, "expected []byte")
		}
		return bv, nil
	default:
		return nil, errors.NewIllegalArgument(c.Name, "not a variable-width column type")
	}
}

func decodeVariable(c *model.Column, data []byte) (any, error) {
	switch c.Type {
	case model.TypeText, model.TypeMemo:
		s, err := utf16LE.NewDecoder().String(string(data))
		if err != nil {
			return nil, errors.NewEval("decode text column "+c.Name, err.Error())
		}
		return s, nil
	case model.TypeOLE, model.TypeComplex:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	default:
		return nil, errors.NewIllegalArgument(c.Name, "not a variable-width column type")
	}
}

// coerceToText implements the format's loose typing for text columns:
// assigning a number or boolean to a TEXT/MEMO column stores its printed
// form rather than failing.
func coerceToText(v any) (string, bool) {
	switch n := v.(type) {
	case string:
		return n, true
	case float64:
		return FormatDouble(n, SigDigitsDouble), true
	case float32:
		return FormatDouble(float64(n), SigDigitsFloat), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case int:
		return strconv.FormatInt(int64(n), 10), true
	case bool:
		if n {
			return "True", true
		}
		return "False", true
	default:
		return "", false
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errors.NewIllegalArgument("value", "expected an integer")
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, errors.NewIllegalArgument("value", "expected a number")
	}
}
