package parser

import (
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

// Statement は実行可能な文を表す
type Statement interface {
	statementNode()
}

// InsertStatement は1行の追加を表す。Row は検証済み。
type InsertStatement struct {
	Row storage.Row
}

// SelectStatement は全行の走査を表す
type SelectStatement struct{}

func (*InsertStatement) statementNode() {}
func (*SelectStatement) statementNode() {}

// statementGrammar is the participle grammar for one input line.
//
//nolint:govet // participle grammar tags are not standard struct tags
type statementGrammar struct {
	Insert *insertGrammar `  @@`
	Select *selectGrammar `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type insertGrammar struct {
	Keyword string   `@"insert"`
	Args    []string `@Word*`
}

// select の後ろの単語は無視する
//
//nolint:govet // participle grammar tags are not standard struct tags
type selectGrammar struct {
	Keyword string   `@"select"`
	Rest    []string `@Word*`
}
