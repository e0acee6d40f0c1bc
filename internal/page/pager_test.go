package page

import (
	"path/filepath"
	"testing"
)

func TestWritePageOutsideWriteRegionFails(t *testing.T) {
	p, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	buf := p.CreatePageBuffer()
	if err := p.WritePage(buf, 1); err == nil {
		t.Fatalf("expected WritePage outside a write region to fail")
	}
}

func TestWritePageThenReadPageSeesBufferedValue(t *testing.T) {
	p, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	n := p.AllocateNewPage()

	if err := p.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	buf := p.CreatePageBuffer()
	buf.PutByte(0, 0x42)
	if err := p.WritePage(buf, n); err != nil {
		t.Fatalf("WritePage: %v", err)
	}

	got, err := p.ReadPage(n)
	if err != nil {
		t.Fatalf("ReadPage mid-write: %v", err)
	}
	if got.GetByte(0) != 0x42 {
		t.Fatalf("got byte 0 = %x, want 0x42", got.GetByte(0))
	}

	if err := p.FinishWrite(); err != nil {
		t.Fatalf("FinishWrite: %v", err)
	}

	got, err = p.ReadPage(n)
	if err != nil {
		t.Fatalf("ReadPage after flush: %v", err)
	}
	if got.GetByte(0) != 0x42 {
		t.Fatalf("got byte 0 = %x after flush, want 0x42", got.GetByte(0))
	}
}

func TestRollbackDiscardsUnflushedWrites(t *testing.T) {
	p, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	n := p.AllocateNewPage()

	if err := p.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	buf := p.CreatePageBuffer()
	buf.PutByte(0, 0x99)
	if err := p.WritePage(buf, n); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	p.Rollback()

	got, err := p.ReadPage(n)
	if err != nil {
		t.Fatalf("ReadPage after rollback: %v", err)
	}
	if got.GetByte(0) != 0 {
		t.Fatalf("got byte 0 = %x after rollback, want 0 (page never flushed)", got.GetByte(0))
	}
}

func TestNestedWriteRegionsOnlyFlushAtDepthZero(t *testing.T) {
	p, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	n := p.AllocateNewPage()

	if err := p.StartWrite(); err != nil {
		t.Fatalf("outer StartWrite: %v", err)
	}
	if err := p.StartWrite(); err != nil {
		t.Fatalf("inner StartWrite: %v", err)
	}
	buf := p.CreatePageBuffer()
	buf.PutByte(0, 7)
	if err := p.WritePage(buf, n); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := p.FinishWrite(); err != nil {
		t.Fatalf("inner FinishWrite: %v", err)
	}

	// Still inside the outer region: the write is buffered and has not
	// reached the underlying store.
	raw, err := p.ReadPageRaw(n)
	if err != nil {
		t.Fatalf("ReadPageRaw: %v", err)
	}
	if raw[0] != 0 {
		t.Fatalf("page reached the store at depth 1: byte 0 = %x, want 0", raw[0])
	}
	if err := p.FinishWrite(); err != nil {
		t.Fatalf("outer FinishWrite: %v", err)
	}

	got, err := p.ReadPage(n)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if got.GetByte(0) != 7 {
		t.Fatalf("got byte 0 = %x, want 7", got.GetByte(0))
	}
}

func TestStartExclusiveWriteRejectsNesting(t *testing.T) {
	p, err := OpenMemory(Options{})
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := p.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	defer p.Rollback()

	if err := p.StartExclusiveWrite(); err == nil {
		t.Fatalf("expected StartExclusiveWrite to reject nesting inside an open write region")
	}
}

func TestReadOnlyPagerRejectsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ro.db")

	rw, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open (rw): %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := Open(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open (ro): %v", err)
	}
	defer ro.Close()

	// WritePage only buffers in memory; a read-only open is enforced when
	// FinishWrite tries to flush to the underlying (O_RDONLY) file
	// descriptor, not before.
	if err := ro.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	buf := ro.CreatePageBuffer()
	if err := ro.WritePage(buf, 0); err != nil {
		ro.Rollback()
		t.Fatalf("WritePage (buffered, not yet flushed): %v", err)
	}
	if err := ro.FinishWrite(); err == nil {
		t.Fatalf("expected FinishWrite to fail flushing to a read-only file")
	}
}

func TestReopenedPagerPreservesPageCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grown.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n := p.AllocateNewPage()
	if err := p.StartWrite(); err != nil {
		t.Fatalf("StartWrite: %v", err)
	}
	if err := p.WritePage(p.CreatePageBuffer(), n); err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if err := p.FinishWrite(); err != nil {
		t.Fatalf("FinishWrite: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	next := reopened.AllocateNewPage()
	if next <= n {
		t.Fatalf("AllocateNewPage after reopen = %d, want > %d", next, n)
	}
}
