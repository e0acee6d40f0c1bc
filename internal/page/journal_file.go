package page

import (
	"encoding/binary"
	"os"
	"sort"

	"github.com/brackendb/jetstore/errors"
)

// journalPath returns the crash-recovery journal file's path for a
// file-backed Pager. In-memory pagers (p.path == "") never create one.
func (p *Pager) journalPath() string {
	return p.path + "-journal"
}

// writeJournalFile persists the pre-images recorded for the pages about to
// be overwritten, so recoverJournal can restore them if the process dies
// partway through flush. Format: a sequence of (int32 pageNumber, pageSize
// bytes) records.
func (p *Pager) writeJournalFile() error {
	if len(p.jrnl.preimages) == 0 {
		return nil
	}
	f, err := os.OpenFile(p.journalPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewIO("open", p.journalPath(), err)
	}
	defer f.Close()

	pages := make([]int, 0, len(p.jrnl.preimages))
	for n := range p.jrnl.preimages {
		pages = append(pages, n)
	}
	sort.Ints(pages)

	var hdr [4]byte
	for _, n := range pages {
		binary.LittleEndian.PutUint32(hdr[:], uint32(int32(n)))
		if _, err := f.Write(hdr[:]); err != nil {
			return errors.NewIO("write", p.journalPath(), err)
		}
		if _, err := f.Write(p.jrnl.preimages[n]); err != nil {
			return errors.NewIO("write", p.journalPath(), err)
		}
	}
	return f.Sync()
}

func (p *Pager) deleteJournalFile() error {
	if err := os.Remove(p.journalPath()); err != nil && !os.IsNotExist(err) {
		return errors.NewIO("remove", p.journalPath(), err)
	}
	return nil
}

// recoverJournal restores a leftover journal file from a previous crash (a
// process that died between writeJournalFile and deleteJournalFile) before
// the Pager is used for anything else.
func (p *Pager) recoverJournal() error {
	if p.path == "" {
		return nil
	}
	data, err := os.ReadFile(p.journalPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIO("read", p.journalPath(), err)
	}

	record := 4 + p.pageSize
	for off := 0; off+record <= len(data); off += record {
		n := int(int32(binary.LittleEndian.Uint32(data[off : off+4])))
		page := data[off+4 : off+record]
		if _, err := p.store.WriteAt(page, p.offset(n)); err != nil {
			return err
		}
	}
	if err := p.store.Sync(); err != nil {
		return errors.NewIO("sync", p.path, err)
	}
	return p.deleteJournalFile()
}
