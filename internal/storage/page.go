package storage

const (
	// PageSize is the capacity of one cached page buffer.
	PageSize = 4096
	// TableMaxPages is the number of page slots a table can address.
	TableMaxPages = 100
	// RowsPerPage is the number of whole rows that fit in one page.
	RowsPerPage = PageSize / RowSize
	// TableMaxRows is the hard row capacity of a table.
	TableMaxRows = RowsPerPage * TableMaxPages

	// pageStride はページのうち行データが入る部分のバイト数。
	// ページ idx はファイル上の idx*pageStride から始まるので、
	// ファイルは行レコードを隙間なく並べたものになる。
	pageStride = RowsPerPage * RowSize
)

// PageID is the index of a page slot.
type PageID uint32

// offset returns the file offset at which the page starts.
func (id PageID) offset() int64 {
	return int64(id) * pageStride
}
