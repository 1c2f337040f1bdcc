package storage

import (
	"errors"
	"fmt"
)

var (
	ErrTableFull = errors.New("table full")
	ErrClosed    = errors.New("table is closed")

	ErrPageOutOfBounds = errors.New("page number out of bounds")
	ErrFlushUnloaded   = errors.New("tried to flush an unloaded page")
	ErrPageOverflow    = errors.New("page capacity exceeded")
	ErrPageDesync      = errors.New("page content out of step with row count")
	ErrShortPage       = errors.New("page shorter than row slot")
)

// noPage marks a FatalError that is not tied to a page.
const noPage = -1

// FatalError reports a failure the table cannot recover from: host I/O
// errors and broken addressing invariants. The table must not be used
// after one is returned, except to Close it.
type FatalError struct {
	Op   string // open, read, write, sync, close, get page, flush, insert, scan
	Page int    // page index, or -1
	Err  error
}

func (e *FatalError) Error() string {
	if e.Page != noPage {
		return fmt.Sprintf("fatal: %s page %d: %v", e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
