package executor

import (
	"iter"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

type Iterator interface {
	Next() (bool, error)
	GetRow() storage.Row
	Close() error
}

// tableIterator は Table.Scan を pull 型に変換する
type tableIterator struct {
	next    func() (storage.Row, error, bool)
	stop    func()
	current storage.Row
}

func NewTableIterator(table *storage.Table) Iterator {
	next, stop := iter.Pull2(table.Scan())
	return &tableIterator{next: next, stop: stop}
}

func (i *tableIterator) Next() (bool, error) {
	row, err, ok := i.next()
	if !ok {
		return false, nil
	}
	if err != nil {
		i.stop()
		return false, err
	}
	i.current = row
	return true, nil
}

func (i *tableIterator) GetRow() storage.Row {
	return i.current
}

// Close は走査を打ち切る。テーブル自体は閉じない。
func (i *tableIterator) Close() error {
	i.stop()
	return nil
}
