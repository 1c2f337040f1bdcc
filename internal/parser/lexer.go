package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// statementLexer は空白区切りの単語だけを切り出す。
// id やメールアドレスも 1 つの Word として扱い、値の検証は parser 側で行う。
var statementLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Word", Pattern: `\S+`},
	{Name: "Whitespace", Pattern: `\s+`},
})
