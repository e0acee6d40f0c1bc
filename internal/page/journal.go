package page

// journal records the pre-image of every page a write region dirties, so a
// failure partway through FinishWrite can be undone. Grounded on the
// teacher's internal/pager/journal.go, simplified to the one property spec
// section 1's Non-goals promises this engine keeps: "transactional ACID
// semantics beyond page-level atomicity as offered by the underlying file"
// (SPEC_FULL.md section 11, "Journal-based page atomicity").
type journal struct {
	preimages map[int][]byte
}

func newJournal() *journal {
	return &journal{preimages: make(map[int][]byte)}
}

// record captures pageNumber's current on-disk bytes the first time it is
// touched in this write region. Later touches are no-ops: the journal only
// ever needs the image from before the region began.
func (j *journal) record(pageNumber int, current []byte) {
	if _, ok := j.preimages[pageNumber]; ok {
		return
	}
	img := make([]byte, len(current))
	copy(img, current)
	j.preimages[pageNumber] = img
}

func (j *journal) reset() {
	j.preimages = make(map[int][]byte)
}
