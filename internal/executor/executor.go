package executor

import (
	"fmt"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/parser"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

type Executor interface {
	Execute(stmt parser.Statement) (ResultSet, error)
}

type executor struct {
	table *storage.Table
}

func NewExecutor(table *storage.Table) Executor {
	return &executor{table: table}
}

// Execute は Statement をテーブルに対して実行して結果を返す。
// storage.ErrTableFull や致命的エラーはそのまま呼び出し元へ返す。
func (e *executor) Execute(stmt parser.Statement) (ResultSet, error) {
	switch s := stmt.(type) {
	case *parser.InsertStatement:
		return e.executeInsert(s)
	case *parser.SelectStatement:
		return e.executeSelect()
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (e *executor) executeInsert(stmt *parser.InsertStatement) (ResultSet, error) {
	if err := e.table.Insert(stmt.Row); err != nil {
		return nil, err
	}
	return NewResultSet(), nil
}

func (e *executor) executeSelect() (ResultSet, error) {
	it := NewTableIterator(e.table)
	defer it.Close()

	rs := NewResultSet()
	for {
		hasNext, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !hasNext {
			break
		}
		rs.AddRow(it.GetRow())
	}
	return rs, nil
}
