package catalog

import (
	"github.com/brackendb/jetstore/internal/page"
)

// chainHeaderSize is [next page number int32][payload length uint16] at the
// front of every chain page; the remainder of the page holds payload bytes.
const chainHeaderSize = 6

// writeChain splits data across as many pages as needed starting at root,
// allocating new continuation pages as required. Must be called inside a
// write region.
func writeChain(pager *page.Pager, root int, data []byte) error {
	pageSize := pager.PageSize()
	capacity := pageSize - chainHeaderSize

	pageNum := root
	for {
		n := len(data)
		if n > capacity {
			n = capacity
		}
		chunk := data[:n]
		data = data[n:]

		buf := pager.CreatePageBuffer()
		buf.PutByte(0, page.TypeTableDef)
		buf.PutUint16(4, uint16(len(chunk)))
		buf.PutBytes(chainHeaderSize, chunk)

		if len(data) == 0 {
			buf.PutUint32(0, uint32(int32(-1)))
			if err := pager.WritePage(buf, pageNum); err != nil {
				return err
			}
			return nil
		}

		next := pager.AllocateNewPage()
		buf.PutUint32(0, uint32(int32(next)))
		if err := pager.WritePage(buf, pageNum); err != nil {
			return err
		}
		pageNum = next
	}
}

// readChain reassembles the bytes written by writeChain, returning nil if
// root has never been written (a brand new database).
func readChain(pager *page.Pager, root int) ([]byte, error) {
	var out []byte
	pageNum := root
	for pageNum >= 0 {
		buf, err := pager.ReadPage(pageNum)
		if err != nil {
			return nil, nil // page never allocated: empty catalog
		}
		if buf.GetByte(0) != page.TypeTableDef {
			return nil, nil
		}
		length := int(buf.GetUint16(4))
		out = append(out, buf.GetBytes(chainHeaderSize, length)...)
		pageNum = int(buf.GetInt32(0))
	}
	return out, nil
}
