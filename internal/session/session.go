package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/executor"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/logging"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/parser"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

type Session interface {
	Execute(line string) (executor.ResultSet, error)
	// ID は session_id としてログに付くセッション識別子を返す
	ID() string
	Stats() storage.Stats
	Close() error
}

type session struct {
	id       string
	table    *storage.Table
	executor executor.Executor
	logger   *slog.Logger
}

// NewSession binds a table and its executor to a new session. The table is
// owned by the session from here on and is closed by Close.
func NewSession(table *storage.Table, exec executor.Executor, logger *slog.Logger) Session {
	if logger == nil {
		logger = logging.Discard()
	}
	id := uuid.New().String()
	return &session{
		id:       id,
		table:    table,
		executor: exec,
		logger:   logger.With("session_id", id),
	}
}

func (s *session) ID() string {
	return s.id
}

// Execute parses one statement line and runs it against the table.
func (s *session) Execute(line string) (executor.ResultSet, error) {
	// 1. 文字列を Statement に変換
	stmt, err := parser.Parse(line)
	if err != nil {
		s.logger.Debug("statement rejected", "input", line, "err", err)
		return nil, err
	}
	// 2. Statement を実行して結果を返す
	result, err := s.executor.Execute(stmt)
	if err != nil {
		if storage.IsFatal(err) {
			s.logger.Error("statement failed", "input", line, "err", err)
		}
		return nil, err
	}
	s.logger.Debug("statement executed", "input", line, "rows", result.GetRowCount())
	return result, nil
}

func (s *session) Stats() storage.Stats {
	return s.table.Stats()
}

// Close flushes and closes the table.
func (s *session) Close() error {
	if err := s.table.Close(); err != nil {
		return err
	}
	s.logger.Info("session closed", "rows", s.table.NumRows())
	return nil
}
