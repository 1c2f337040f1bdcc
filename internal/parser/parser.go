package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

var (
	// ErrSyntax is returned for a recognized statement with missing or
	// malformed arguments.
	ErrSyntax = errors.New("syntax error")
	// ErrNegativeID is returned when the id argument starts with '-'.
	ErrNegativeID = errors.New("id must be positive")
)

// UnrecognizedStatementError reports a line whose first word is not a
// known statement keyword.
type UnrecognizedStatementError struct {
	Input string
}

func (e *UnrecognizedStatementError) Error() string {
	return fmt.Sprintf("unrecognized keyword at the start of %q", e.Input)
}

var statementParser = participle.MustBuild[statementGrammar](
	participle.Lexer(statementLexer),
	participle.Elide("Whitespace"),
)

// Parse turns one input line into a Statement. Username and email length
// errors are returned as storage.ErrStringTooLong.
func Parse(input string) (Statement, error) {
	ast, err := statementParser.ParseString("", input)
	if err != nil {
		return nil, &UnrecognizedStatementError{Input: input}
	}

	switch {
	case ast.Insert != nil:
		return parseInsert(ast.Insert.Args)
	case ast.Select != nil:
		return &SelectStatement{}, nil
	default:
		return nil, &UnrecognizedStatementError{Input: input}
	}
}

// parseInsert は insert <id> <username> <email> の引数を検証する。
// 4 つ目以降の単語は無視する。
func parseInsert(args []string) (*InsertStatement, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("%w: insert needs id, username and email, got %d arguments", ErrSyntax, len(args))
	}

	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}

	row, err := storage.NewRow(id, args[1], args[2])
	if err != nil {
		return nil, err
	}
	return &InsertStatement{Row: row}, nil
}

func parseID(s string) (uint32, error) {
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %s", ErrNegativeID, s)
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrSyntax, s)
	}
	return uint32(id), nil
}
