package executor

import (
	"strings"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

// MessageExecuted is the completion message of every successful statement.
const MessageExecuted = "Executed."

type ResultSet interface {
	// AddRow は行を追加する
	AddRow(row storage.Row)
	// GetRows は行を取得する
	GetRows() []storage.Row
	// GetRowCount は行数を取得する
	GetRowCount() int
	// GetMessage はメッセージを取得する
	GetMessage() string
	// String は文字列を返す
	String() string
}

type resultSet struct {
	rows    []storage.Row
	message string
}

func NewResultSet() ResultSet {
	return &resultSet{message: MessageExecuted}
}

func (r *resultSet) AddRow(row storage.Row) {
	r.rows = append(r.rows, row)
}

func (r *resultSet) GetRows() []storage.Row {
	return r.rows
}

func (r *resultSet) GetMessage() string {
	return r.message
}

// GetRowCount は結果セットの行数を返す
func (r *resultSet) GetRowCount() int {
	return len(r.rows)
}

// String は REPL での表示用の文字列を返す。
// 1 行ずつ (id, username, email) を並べ、最後にメッセージを置く。
func (r *resultSet) String() string {
	var b strings.Builder
	for _, row := range r.GetRows() {
		b.WriteString(row.String())
		b.WriteByte('\n')
	}
	b.WriteString(r.GetMessage())
	return b.String()
}
