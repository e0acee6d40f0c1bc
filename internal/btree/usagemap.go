package btree

import (
	"sort"

	"github.com/brackendb/jetstore/errors"
	"github.com/brackendb/jetstore/internal/page"
)

// usageMapCapacity bounds how many page numbers fit in one USAGE_MAP page
// under this representative (not byte-exact) layout.
const usageMapCapacity = 500

// UsageMap enumerates the pages a table or index owns, spec section 4.F.
type UsageMap struct {
	pager *page.Pager
	Root  int
	pages map[int]struct{}
}

// CreateUsageMap allocates a fresh, empty usage map page. Must be called
// inside a write region.
func CreateUsageMap(pager *page.Pager) (*UsageMap, error) {
	root := pager.AllocateNewPage()
	um := &UsageMap{pager: pager, Root: root, pages: make(map[int]struct{})}
	if err := um.flush(); err != nil {
		return nil, err
	}
	return um, nil
}

// OpenUsageMap reads an existing usage map rooted at root.
func OpenUsageMap(pager *page.Pager, root int) (*UsageMap, error) {
	buf, err := pager.ReadPage(root)
	if err != nil {
		return nil, err
	}
	if buf.GetByte(0) != page.TypeUsageMap {
		return nil, errors.NewIllegalState("expected a usage map page")
	}
	count := int(buf.GetUint16(1))
	pages := make(map[int]struct{}, count)
	off := 3
	for i := 0; i < count; i++ {
		pages[int(int32(buf.GetUint32(off)))] = struct{}{}
		off += 4
	}
	return &UsageMap{pager: pager, Root: root, pages: pages}, nil
}

// Add records pageNumber as owned. Must be called inside a write region.
func (um *UsageMap) Add(pageNumber int) error {
	if _, ok := um.pages[pageNumber]; ok {
		return nil
	}
	if len(um.pages) >= usageMapCapacity {
		return errors.NewIllegalState("usage map exceeded its representative capacity")
	}
	um.pages[pageNumber] = struct{}{}
	return um.flush()
}

// Remove stops tracking pageNumber as owned. Must be called inside a write
// region.
func (um *UsageMap) Remove(pageNumber int) error {
	if _, ok := um.pages[pageNumber]; !ok {
		return nil
	}
	delete(um.pages, pageNumber)
	return um.flush()
}

// Pages returns the owned page numbers in ascending order.
func (um *UsageMap) Pages() []int {
	out := make([]int, 0, len(um.pages))
	for n := range um.pages {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func (um *UsageMap) flush() error {
	buf := um.pager.CreatePageBuffer()
	buf.PutByte(0, page.TypeUsageMap)
	pages := um.Pages()
	buf.PutUint16(1, uint16(len(pages)))
	off := 3
	for _, n := range pages {
		buf.PutUint32(off, uint32(int32(n)))
		off += 4
	}
	return um.pager.WritePage(buf, um.Root)
}
