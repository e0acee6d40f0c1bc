package collate

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/brackendb/jetstore/errors"
)

//go:embed data/*.txt
var builtinTables embed.FS

// Table maps a code point to its CharHandler. Unmapped code points fall
// back to Lookup's default (Unprintable, keyed by the raw code point, or
// Surrogate above the BMP), which keeps the encoder total over all of
// Unicode.
type Table struct {
	handlers map[rune]CharHandler
	name     string
	locale   string
}

// Name returns the sort order name this table was loaded for (e.g.
// "GENERAL", "GENERAL_LEGACY", "GENERAL_97").
func (t *Table) Name() string { return t.name }

// Lookup resolves r's CharHandler, falling back to an Unprintable handler
// keyed by the code point itself for anything neither table names.
func (t *Table) Lookup(r rune) CharHandler {
	if h, ok := t.handlers[r]; ok {
		return h
	}
	if r > 0xFFFF {
		return CharHandler{Kind: Surrogate, Primary: uint16(r - 0x10000)}
	}
	return CharHandler{Kind: Unprintable, Primary: 0x0002, Unprintable: uint16(r)}
}

// LoadBuiltin loads one of the sort orders shipped with this package:
// "GENERAL", "GENERAL_LEGACY", or "GENERAL_97". Per spec section 6, each
// sort order's resource is split across two side files: a dense table of
// 256 entries for the BMP low range and a sparse mapping for the extended
// range.
func LoadBuiltin(name string) (*Table, error) {
	base := strings.ToLower(name)
	dense, err := builtinTables.ReadFile("data/" + base + "_dense.txt")
	if err != nil {
		return nil, errors.NewIllegalArgument("sortOrder", fmt.Sprintf("unknown builtin sort order %q", name))
	}
	sparse, err := builtinTables.ReadFile("data/" + base + "_sparse.txt")
	if err != nil {
		return nil, errors.NewIllegalArgument("sortOrder", fmt.Sprintf("unknown builtin sort order %q", name))
	}
	return Parse(name, bytes.NewReader(dense), bytes.NewReader(sparse))
}

// Parse reads a sort order's dense and sparse resource tables in the
// format of spec section 6: each line is <prefix><hex-codes>[,<hex-codes>...].
//
// In the dense table a line's 0-based position among non-comment,
// non-blank lines IS the code point it describes (the 256 entries for
// U+0000-U+00FF, in order); in the sparse table each line is instead
// prefixed with its code point in hex, since position carries no meaning
// once entries are no longer contiguous.
//
// Blank lines and lines beginning with '#' are comments. Any other
// malformed line raises an IOError rather than being skipped, per the
// resolved "mapping-file loader strictness" question.
func Parse(name string, dense, sparse *bytes.Reader) (*Table, error) {
	t := &Table{handlers: make(map[rune]CharHandler), name: name}
	if err := t.parseDense(name, dense); err != nil {
		return nil, err
	}
	if err := t.parseSparse(name, sparse); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) parseDense(name string, r *bytes.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	cp := rune(0)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		h, err := parseCode(line)
		if err != nil {
			return errors.NewIO("parse", fmt.Sprintf("%s dense:%d", name, lineNo), err)
		}
		if h.Kind == Unprintable || h.Kind == UnprintableExt {
			h.Unprintable = uint16(cp)
		}
		t.handlers[cp] = h
		cp++
	}
	if err := sc.Err(); err != nil {
		return errors.NewIO("scan", name+" dense", err)
	}
	if cp != 256 {
		return errors.NewIO("parse", name+" dense", fmt.Errorf("expected 256 entries, got %d", cp))
	}
	return nil
}

func (t *Table) parseSparse(name string, r *bytes.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return errors.NewIO("parse", fmt.Sprintf("%s sparse:%d", name, lineNo), fmt.Errorf("expected %q, got %q", "<codepoint-hex> <prefix><hex-codes>", line))
		}
		cp, err := strconv.ParseUint(fields[0], 16, 32)
		if err != nil {
			return errors.NewIO("parse", fmt.Sprintf("%s sparse:%d", name, lineNo), fmt.Errorf("bad code point %q: %w", fields[0], err))
		}
		h, err := parseCode(fields[1])
		if err != nil {
			return errors.NewIO("parse", fmt.Sprintf("%s sparse:%d", name, lineNo), err)
		}
		if h.Kind == Unprintable || h.Kind == UnprintableExt {
			h.Unprintable = uint16(cp)
		}
		t.handlers[rune(cp)] = h
	}
	if err := sc.Err(); err != nil {
		return errors.NewIO("scan", name+" sparse", err)
	}
	return nil
}

// parseCode parses one <prefix><hex-codes>[,<hex-codes>...] token into a
// CharHandler. The prefix selects both the Kind and how many hex fields
// follow:
//
//	S<hex>             Simple, one-byte primary weight
//	G<hex>             Significant, one-byte primary weight
//	I<hex>,<hex>       International, primary weight + extra (case) weight
//	E<hex>,<hex>,<hex> InternationalExt, two-byte primary + extra + crazy flag
//	U                  Unprintable (code point implied by table position)
//	V<hex>             UnprintableExt, additive extra-byte delta
//	Z                  Ignored
func parseCode(token string) (CharHandler, error) {
	if token == "" {
		return CharHandler{}, fmt.Errorf("empty handler code")
	}
	prefix, rest := token[0], token[1:]
	var fields []string
	if rest != "" {
		fields = strings.Split(rest, ",")
	}
	switch prefix {
	case 'S', 'G':
		v, err := parseHex16(fields, 0, "primary weight")
		if err != nil {
			return CharHandler{}, err
		}
		kind := Simple
		if prefix == 'G' {
			kind = Significant
		}
		return CharHandler{Kind: kind, Primary: v}, nil
	case 'I':
		primary, err := parseHex16(fields, 0, "primary weight")
		if err != nil {
			return CharHandler{}, err
		}
		extra, err := parseHex8(fields, 1, "extra weight")
		if err != nil {
			return CharHandler{}, err
		}
		return CharHandler{Kind: International, Primary: primary, Extra: extra}, nil
	case 'E':
		primary, err := parseHex16(fields, 0, "primary weight")
		if err != nil {
			return CharHandler{}, err
		}
		extra, err := parseHex8(fields, 1, "extra weight")
		if err != nil {
			return CharHandler{}, err
		}
		crazy, err := parseHex8(fields, 2, "crazy flag")
		if err != nil {
			return CharHandler{}, err
		}
		return CharHandler{Kind: InternationalExt, Primary: primary, Extra: extra, Crazy: crazy}, nil
	case 'U':
		return CharHandler{Kind: Unprintable, Primary: 0x0002}, nil
	case 'V':
		extra, err := parseHex8(fields, 0, "extra delta")
		if err != nil {
			return CharHandler{}, err
		}
		return CharHandler{Kind: UnprintableExt, Primary: 0x0002, Extra: extra}, nil
	case 'Z':
		return CharHandler{Kind: Ignored}, nil
	default:
		return CharHandler{}, fmt.Errorf("unknown handler prefix %q", string(prefix))
	}
}

func parseHex16(fields []string, i int, label string) (uint16, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing %s field", label)
	}
	v, err := strconv.ParseUint(fields[i], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", label, fields[i], err)
	}
	return uint16(v), nil
}

func parseHex8(fields []string, i int, label string) (byte, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing %s field", label)
	}
	v, err := strconv.ParseUint(fields[i], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", label, fields[i], err)
	}
	return byte(v), nil
}
