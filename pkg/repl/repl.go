package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/parser"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/session"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

const (
	PROMPT  = "db > "
	VERSION = "0.1.0"
)

type Repl struct {
	input   io.Reader
	output  io.Writer
	session session.Session
	banner  bool
}

// Option configures a Repl.
type Option func(*Repl)

// WithBanner enables the welcome banner. It is still only shown when the
// input is a terminal.
func WithBanner(enabled bool) Option {
	return func(r *Repl) {
		r.banner = enabled
	}
}

func NewRepl(input io.Reader, output io.Writer, session session.Session, opts ...Option) *Repl {
	r := &Repl{input: input, output: output, session: session}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reads statements until .exit, end of input or ctx cancellation, then
// closes the session. Errors that leave the table unusable end the loop and
// are returned; statement-level errors are printed and the loop continues.
func (r *Repl) Run(ctx context.Context) error {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.input) // 入力をスキャンする
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	if r.banner && isTerminal(r.input) {
		r.printWelcome()
	}

	for {
		r.printPrompt()

		var line string
		select {
		case <-ctx.Done():
			// シグナルで中断された場合もテーブルは閉じる
			fmt.Fprintln(r.output)
			r.printGoodBye()
			return r.exit()
		case l, ok := <-lines:
			if !ok {
				// EOF は .exit と同じ扱い
				select {
				case err := <-scanErr:
					if err != nil {
						return errors.Join(fmt.Errorf("read input: %w", err), r.exit())
					}
				default:
				}
				return r.exit()
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			done, err := r.handleCommand(line)
			if done || err != nil {
				return err
			}
			continue
		}

		if err := r.eval(line); err != nil {
			return err
		}
	}
}

func isTerminal(input io.Reader) bool {
	f, ok := input.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *Repl) printWelcome() {
	fmt.Fprintf(r.output, "Welcome to godb v%s\n", VERSION)
	fmt.Fprintln(r.output, "Type \".help\" for usage hints, \".exit\" to quit.")
	fmt.Fprintln(r.output)
}

func (r *Repl) printPrompt() {
	fmt.Fprint(r.output, PROMPT)
}

// handleCommand はメタコマンドを処理する。done が true ならループを終える。
func (r *Repl) handleCommand(line string) (done bool, err error) {
	switch line {
	case ".exit":
		return true, r.exit()
	case ".help":
		r.printHelp()
	case ".stats":
		r.printStats()
	default:
		r.print("Unrecognized command '%s'.", line)
	}
	return false, nil
}

func (r *Repl) exit() error {
	return r.session.Close()
}

func (r *Repl) printHelp() {
	r.print("Commands:")
	r.print("  .help         Show this help")
	r.print("  .stats        Show table statistics")
	r.print("  .exit         Save and exit the REPL")
	r.print("  Ctrl+C        Save and exit the REPL")
	r.print("  Ctrl+D        Save and exit the REPL (EOF)")
	r.print("Statements:")
	r.print("  insert <id> <username> <email>")
	r.print("  select")
}

func (r *Repl) printStats() {
	stats := r.session.Stats()
	r.print("rows: %d/%d", stats.Rows, storage.TableMaxRows)
	r.print("resident pages: %d/%d", stats.ResidentPages, storage.TableMaxPages)
	r.print("file size: %s", humanize.IBytes(uint64(stats.FileLength)))
}

func (r *Repl) print(s string, args ...any) {
	fmt.Fprintf(r.output, s+"\n", args...)
}

// eval は1文を実行して結果を表示する。
// 致命的なエラーとクローズ済みテーブルへの操作だけを返す。
func (r *Repl) eval(input string) error {
	result, err := r.session.Execute(input)
	if err == nil {
		fmt.Fprintln(r.output, result.String())
		return nil
	}

	var unrecognized *parser.UnrecognizedStatementError
	switch {
	case storage.IsFatal(err), errors.Is(err, storage.ErrClosed):
		return err
	case errors.Is(err, storage.ErrTableFull):
		r.print("Error: Table full.")
	case errors.Is(err, storage.ErrStringTooLong):
		r.print("String is too long.")
	case errors.Is(err, parser.ErrNegativeID):
		r.print("ID must be positive.")
	case errors.Is(err, parser.ErrSyntax):
		r.print("Syntax error. Could not parse statement.")
	case errors.As(err, &unrecognized):
		r.print("Unrecognized keyword at the start of '%s'.", unrecognized.Input)
	default:
		fmt.Fprintln(r.output, "Error:", err)
	}
	return nil
}

var goodbyeMessages = []string{
	"See you later! 👋",
	"Goodbye! Thanks for using godb.",
	"Bye! Happy coding!",
}

func (r *Repl) printGoodBye() {
	// NOTE:
	// Go 1.20+ では math/rand の rand.Seed は非推奨。
	// ここではローカルな RNG を作って、終了メッセージの選択だけに利用する。
	randomGenerator := rand.New(rand.NewSource(time.Now().UnixNano()))
	fmt.Fprintln(r.output, goodbyeMessages[randomGenerator.Intn(len(goodbyeMessages))])
}
