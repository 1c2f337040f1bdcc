package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/logging"
)

// pageSlot は1ページ分のキャッシュ。
// resident が false の間は未ロード（data は nil）。
type pageSlot struct {
	data     []byte
	resident bool
}

// Pager owns the backing file and a fixed array of page slots. Pages are
// read lazily on first access and written back only by Flush.
type Pager struct {
	file *os.File
	// fileLength is captured once at open; the cache is authoritative after that.
	fileLength int64
	pages      [TableMaxPages]pageSlot
	logger     *slog.Logger
}

// NewPager opens or creates filename for reading and writing.
func NewPager(filename string, logger *slog.Logger) (*Pager, error) {
	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, &FatalError{Op: "open", Page: noPage, Err: err}
	}

	fileLength, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		file.Close()
		return nil, &FatalError{Op: "seek", Page: noPage, Err: err}
	}

	if logger == nil {
		logger = logging.Discard()
	}

	return &Pager{
		file:       file,
		fileLength: fileLength,
		logger:     logger,
	}, nil
}

// FileLength returns the file length observed when the pager was opened.
func (p *Pager) FileLength() int64 {
	return p.fileLength
}

// persistedPages はオープン時点でファイルに存在するページ数（末尾の部分ページを含む）
func (p *Pager) persistedPages() int64 {
	n := p.fileLength / pageStride
	if p.fileLength%pageStride > 0 {
		n++
	}
	return n
}

func checkPageID(op string, id PageID) error {
	if id >= TableMaxPages {
		return &FatalError{
			Op:   op,
			Page: int(id),
			Err:  fmt.Errorf("%w: %d >= %d", ErrPageOutOfBounds, id, TableMaxPages),
		}
	}
	return nil
}

// GetPage makes page id resident if it exists on disk and returns its
// current content. A page that was never persisted stays unloaded and
// GetPage returns nil content; the caller fills it with AppendToPage.
func (p *Pager) GetPage(id PageID) ([]byte, error) {
	if err := checkPageID("get page", id); err != nil {
		return nil, err
	}

	slot := &p.pages[id]
	if slot.resident {
		return slot.data, nil
	}

	// キャッシュミス: ファイルに存在するページならロードする
	if int64(id) >= p.persistedPages() {
		return nil, nil
	}

	offset := id.offset()
	size := min(int64(pageStride), p.fileLength-offset)
	buf := make([]byte, size, PageSize)
	if _, err := p.file.ReadAt(buf, offset); err != nil {
		return nil, &FatalError{Op: "read", Page: int(id), Err: err}
	}

	slot.data = buf
	slot.resident = true
	p.logger.Debug("page loaded", "page", id, "bytes", size)
	return slot.data, nil
}

// AppendToPage appends data to the in-memory content of page id and marks
// the page resident.
func (p *Pager) AppendToPage(id PageID, data []byte) error {
	if err := checkPageID("append", id); err != nil {
		return err
	}

	slot := &p.pages[id]
	if len(slot.data)+len(data) > PageSize {
		return &FatalError{
			Op:   "append",
			Page: int(id),
			Err:  fmt.Errorf("%w: %d + %d > %d", ErrPageOverflow, len(slot.data), len(data), PageSize),
		}
	}
	if slot.data == nil {
		slot.data = make([]byte, 0, PageSize)
	}
	slot.data = append(slot.data, data...)
	slot.resident = true
	return nil
}

// IsResident reports whether page id is currently held in memory.
func (p *Pager) IsResident(id PageID) bool {
	if id >= TableMaxPages {
		return false
	}
	return p.pages[id].resident
}

// ResidentPages returns the number of pages currently held in memory.
func (p *Pager) ResidentPages() int {
	n := 0
	for i := range p.pages {
		if p.pages[i].resident {
			n++
		}
	}
	return n
}

// Flush writes page id verbatim at its file offset and drops it from
// memory. Flushing a page that is not resident is a fatal error.
func (p *Pager) Flush(id PageID) error {
	if err := checkPageID("flush", id); err != nil {
		return err
	}

	slot := &p.pages[id]
	if !slot.resident {
		return &FatalError{Op: "flush", Page: int(id), Err: ErrFlushUnloaded}
	}

	if _, err := p.file.WriteAt(slot.data, id.offset()); err != nil {
		return &FatalError{Op: "write", Page: int(id), Err: err}
	}
	p.logger.Debug("page flushed", "page", id, "bytes", len(slot.data))

	*slot = pageSlot{}
	return nil
}

// Sync commits the file contents to stable storage.
func (p *Pager) Sync() error {
	if err := p.file.Sync(); err != nil {
		return &FatalError{Op: "sync", Page: noPage, Err: err}
	}
	return nil
}

// Close closes the underlying file without flushing.
func (p *Pager) Close() error {
	if err := p.file.Close(); err != nil {
		return &FatalError{Op: "close", Page: noPage, Err: err}
	}
	return nil
}
