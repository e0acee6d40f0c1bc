// Command jetutil is a diagnostic CLI for jetstore databases: list tables,
// dump schema, scan rows, and dry-run a foreign-key cascade.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/brackendb/jetstore"
	"github.com/brackendb/jetstore/internal/model"
)

const version = "0.1.0"

// CLI defines jetutil's command-line interface.
var CLI struct {
	Info           InfoCmd           `cmd:"" help:"Print file size and table count"`
	Tables         TablesCmd         `cmd:"" help:"List tables and their columns/indexes"`
	Scan           ScanCmd           `cmd:"" help:"Scan a table's rows in physical order"`
	CascadeDryRun  CascadeDryRunCmd  `cmd:"cascade-dry-run" help:"Report what a delete would cascade to, without writing anything"`
	Version        VersionCmd        `cmd:"" help:"Print version information"`
}

// InfoCmd prints the file's size and table count.
type InfoCmd struct {
	Path string `arg:"" help:"Path to the database file" type:"existingfile"`
}

func (c *InfoCmd) Run() error {
	db, err := jetstore.Open(c.Path, jetstore.OpenOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer db.Close()

	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.Path, err)
	}

	tables := db.Tables()
	fmt.Printf("%s\n", c.Path)
	fmt.Printf("  size:   %s\n", humanize.Bytes(uint64(info.Size())))
	fmt.Printf("  tables: %d\n", len(tables))
	return nil
}

// TablesCmd lists tables and their columns/indexes.
type TablesCmd struct {
	Path string `arg:"" help:"Path to the database file" type:"existingfile"`
}

func (c *TablesCmd) Run() error {
	db, err := jetstore.Open(c.Path, jetstore.OpenOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer db.Close()

	color := isatty.IsTerminal(os.Stdout.Fd())
	for _, t := range db.Tables() {
		printTableHeader(t.Name, color)
		for _, col := range t.Columns {
			fmt.Printf("    %-20s %s\n", col.Name, columnTypeName(col.Type))
		}
		for _, ix := range t.Indexes {
			marker := ""
			if ix.IsPrimaryKey() {
				marker = " [primary key]"
			}
			fmt.Printf("    index %s%s\n", ix.Name, marker)
		}
	}
	return nil
}

func printTableHeader(name string, color bool) {
	if color {
		fmt.Printf("\033[1m%s\033[0m\n", name)
		return
	}
	fmt.Println(name)
}

func columnTypeName(t model.DataType) string {
	switch t {
	case model.TypeBoolean:
		return "BOOLEAN"
	case model.TypeByte:
		return "BYTE"
	case model.TypeInt:
		return "INTEGER"
	case model.TypeLong:
		return "LONG"
	case model.TypeMoney:
		return "CURRENCY"
	case model.TypeFloat:
		return "SINGLE"
	case model.TypeDouble:
		return "DOUBLE"
	case model.TypeShortDateTime:
		return "DATETIME"
	case model.TypeText:
		return "TEXT"
	case model.TypeOLE:
		return "OLE"
	case model.TypeMemo:
		return "MEMO"
	case model.TypeGUID:
		return "GUID"
	case model.TypeNumeric:
		return "NUMERIC"
	case model.TypeBigInt:
		return "BIGINT"
	case model.TypeComplex:
		return "COMPLEX"
	default:
		return "UNKNOWN"
	}
}

// ScanCmd scans a table's rows in physical order.
type ScanCmd struct {
	Path  string `arg:"" help:"Path to the database file" type:"existingfile"`
	Table string `arg:"" help:"Table name"`
	Limit int    `default:"100" help:"Maximum rows to print"`
}

func (c *ScanCmd) Run() error {
	db, err := jetstore.Open(c.Path, jetstore.OpenOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer db.Close()

	cur, err := db.Scan(c.Table)
	if err != nil {
		return fmt.Errorf("scan %s: %w", c.Table, err)
	}

	printed := 0
	for printed < c.Limit {
		ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row, err := cur.CurrentRow()
		if err != nil {
			return err
		}
		fmt.Printf("%s %v\n", cur.CurrentRowId(), row)
		printed++
	}
	fmt.Printf("\n%d row(s) printed\n", printed)
	return nil
}

// CascadeDryRunCmd reports what deleting a row would cascade to, without
// writing anything: it runs the same foreign-key check the real delete
// path uses, then discards the write region.
type CascadeDryRunCmd struct {
	Path  string `arg:"" help:"Path to the database file" type:"existingfile"`
	Table string `arg:"" help:"Table name"`
	Page  int    `arg:"" help:"Row's page number (row number is always 0 in this engine's heap)"`
}

func (c *CascadeDryRunCmd) Run() error {
	db, err := jetstore.Open(c.Path, jetstore.OpenOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer db.Close()

	id := model.NewRowId(c.Page, 0)
	oldRow, present, err := db.GetRow(c.Table, id)
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("row %s not found in %s", id, c.Table)
	}

	if err := db.PreviewDelete(c.Table, id, oldRow); err != nil {
		fmt.Printf("would reject: %v\n", err)
		return nil
	}
	fmt.Printf("would delete %s from %s (and cascade to any dependent rows)\n", id, c.Table)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("jetutil %s\n", version)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("jetutil"),
		kong.Description("Diagnostic CLI for jetstore databases"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
