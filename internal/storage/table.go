package storage

import (
	"fmt"
	"iter"
	"log/slog"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/logging"
)

// Slot is the address of a row: a page index and a byte offset inside it.
type Slot struct {
	Page   PageID
	Offset int
}

// RowSlot maps a row number to its slot. Rows are packed densely in
// insertion order, RowsPerPage to a page.
func RowSlot(rowNum uint32) Slot {
	return Slot{
		Page:   PageID(rowNum / RowsPerPage),
		Offset: int(rowNum%RowsPerPage) * RowSize,
	}
}

// Table は1ファイルに追記される固定長レコードのテーブル
type Table struct {
	path    string
	pager   *Pager
	numRows uint32
	logger  *slog.Logger
	closed  bool
}

type options struct {
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used for page and lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open opens or creates the table file at path. The row count is derived
// from the file length.
func Open(path string, opts ...Option) (*Table, error) {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	pager, err := NewPager(path, o.logger)
	if err != nil {
		return nil, err
	}

	t := &Table{
		path:    path,
		pager:   pager,
		numRows: uint32(pager.FileLength() / RowSize),
		logger:  o.logger,
	}
	t.logger.Info("table opened", "path", path, "rows", t.numRows, "file_length", pager.FileLength())
	return t, nil
}

// Path returns the backing file path.
func (t *Table) Path() string {
	return t.path
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() uint32 {
	return t.numRows
}

// Stats is a snapshot of the table's counters.
type Stats struct {
	Rows          uint32
	ResidentPages int
	FileLength    int64
}

func (t *Table) Stats() Stats {
	return Stats{
		Rows:          t.numRows,
		ResidentPages: t.pager.ResidentPages(),
		FileLength:    t.pager.FileLength(),
	}
}

// Insert appends row to the table. It returns ErrTableFull, leaving the
// table untouched, once TableMaxRows rows are stored.
func (t *Table) Insert(row Row) error {
	if t.closed {
		return ErrClosed
	}
	if t.numRows >= TableMaxRows {
		t.logger.Warn("insert rejected", "rows", t.numRows, "err", ErrTableFull)
		return ErrTableFull
	}

	slot := RowSlot(t.numRows)
	page, err := t.pager.GetPage(slot.Page)
	if err != nil {
		return err
	}
	// ページは行順に組み立てるので、末尾がちょうど次の行の位置のはず
	if len(page) != slot.Offset {
		return &FatalError{
			Op:   "insert",
			Page: int(slot.Page),
			Err:  fmt.Errorf("%w: page holds %d bytes, row %d starts at %d", ErrPageDesync, len(page), t.numRows, slot.Offset),
		}
	}

	if err := t.pager.AppendToPage(slot.Page, row.Encode()); err != nil {
		return err
	}
	t.numRows++
	return nil
}

// Scan returns a sequence over every row in insertion order. Each call
// starts again from row 0. The sequence stops after yielding an error.
func (t *Table) Scan() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if t.closed {
			yield(Row{}, ErrClosed)
			return
		}
		for i := uint32(0); i < t.numRows; i++ {
			slot := RowSlot(i)
			page, err := t.pager.GetPage(slot.Page)
			if err != nil {
				yield(Row{}, err)
				return
			}
			if len(page) < slot.Offset+RowSize {
				yield(Row{}, &FatalError{
					Op:   "scan",
					Page: int(slot.Page),
					Err:  fmt.Errorf("%w: row %d needs %d bytes, page holds %d", ErrShortPage, i, slot.Offset+RowSize, len(page)),
				})
				return
			}
			if !yield(DecodeRow(page, slot.Offset), nil) {
				return
			}
		}
	}
}

// Rows collects a full scan.
func (t *Table) Rows() ([]Row, error) {
	rows := make([]Row, 0, t.numRows)
	for row, err := range t.Scan() {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close flushes every resident page that holds rows, syncs and closes the
// file. Any failure is fatal; the table is unusable afterwards either way.
func (t *Table) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true

	if err := t.flushAll(); err != nil {
		t.pager.Close()
		t.logger.Error("table close failed", "path", t.path, "err", err)
		return err
	}
	if err := t.pager.Close(); err != nil {
		return err
	}

	t.logger.Info("table closed", "path", t.path, "rows", t.numRows)
	return nil
}

func (t *Table) flushAll() error {
	numFullPages := t.numRows / RowsPerPage
	for i := uint32(0); i < numFullPages; i++ {
		if err := t.flushIfResident(PageID(i)); err != nil {
			return err
		}
	}

	// 末尾の部分ページ
	if t.numRows%RowsPerPage > 0 {
		if err := t.flushIfResident(PageID(numFullPages)); err != nil {
			return err
		}
	}

	return t.pager.Sync()
}

func (t *Table) flushIfResident(id PageID) error {
	if !t.pager.IsResident(id) {
		return nil
	}
	return t.pager.Flush(id)
}
