package page

// CacheMode selects how aggressively a TempBufferHolder hangs on to its
// backing buffer across calls, spec section 4.B.
type CacheMode int

const (
	// CacheNone never retains a buffer between getBuffer calls.
	CacheNone CacheMode = iota
	// CacheSoft retains the buffer but is free to drop it under memory
	// pressure; Go has no weak-reference primitive, so this is implemented
	// identically to CacheHard here, matching the teacher's own fallback
	// on runtimes without soft references.
	CacheSoft
	// CacheHard always retains and reuses the buffer.
	CacheHard
)

// TempBufferHolder hands out a scratch Buffer of a requested size, reusing
// its backing array across calls when the cache mode allows it. modCount
// increments every time the backing array is reallocated, which lets a
// TempPageHolder built on top detect that any buffer it cached has gone
// stale.
type TempBufferHolder struct {
	mode     CacheMode
	buf      *Buffer
	modCount int
}

// NewTempBufferHolder builds a holder in the given cache mode.
func NewTempBufferHolder(mode CacheMode) *TempBufferHolder {
	return &TempBufferHolder{mode: mode}
}

// GetBuffer returns a buffer of at least size bytes, rewound to position 0
// with its limit set to size. A CacheNone holder always allocates fresh; a
// CacheSoft/CacheHard holder reuses its backing array when it is already
// large enough.
func (h *TempBufferHolder) GetBuffer(size int) *Buffer {
	if h.mode == CacheNone || h.buf == nil || h.buf.Len() < size {
		h.buf = NewPageBuffer(size)
		h.modCount++
		return h.buf
	}
	h.buf.Rewind()
	h.buf.SetLimit(size)
	return h.buf
}

// ModCount returns the current reallocation generation, for TempPageHolder
// to detect a stale cached page.
func (h *TempBufferHolder) ModCount() int { return h.modCount }

// TempPageHolder memoizes the most recently read page so a cursor that
// stays on one page does not re-read it on every access, spec section 4.B.
type TempPageHolder struct {
	bufHolder *TempBufferHolder
	pager     *Pager
	pageNum   int
	modAtRead int
	buf       *Buffer
	valid     bool
}

// NewTempPageHolder builds a page holder backed by pager, using mode for its
// underlying buffer cache.
func NewTempPageHolder(pager *Pager, mode CacheMode) *TempPageHolder {
	return &TempPageHolder{
		bufHolder: NewTempBufferHolder(mode),
		pager:     pager,
		pageNum:   LastPageNumber,
	}
}

// SetPage returns the buffer for pageNumber, re-reading it from the pager
// only if it is not already the currently cached page (or the cache's
// backing buffer was reallocated out from under it since the last read).
func (h *TempPageHolder) SetPage(pageNumber int) (*Buffer, error) {
	if h.valid && h.pageNum == pageNumber && h.modAtRead == h.bufHolder.ModCount() {
		return h.buf, nil
	}
	buf, err := h.pager.ReadPage(pageNumber)
	if err != nil {
		return nil, err
	}
	h.pageNum = pageNumber
	h.buf = buf
	h.modAtRead = h.bufHolder.ModCount()
	h.valid = true
	return h.buf, nil
}

// CurrentPage reports the page number currently cached, if any.
func (h *TempPageHolder) CurrentPage() (int, bool) {
	return h.pageNum, h.valid
}

// PossiblyInvalidate drops the cached page if it is pageNumber and
// modifiedBuffer is not the exact buffer this holder is caching (i.e. the
// page was rewritten by someone else since we last read it).
func (h *TempPageHolder) PossiblyInvalidate(pageNumber int, modifiedBuffer *Buffer) {
	if !h.valid || h.pageNum != pageNumber {
		return
	}
	if modifiedBuffer != h.buf {
		h.valid = false
	}
}

// Invalidate unconditionally drops the cached page.
func (h *TempPageHolder) Invalidate() { h.valid = false }
