// Command godb is a single-file record store with an interactive shell and
// a few maintenance commands.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/takeuchi-shogo/go-example-rowstore/internal/config"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/logging"
	"github.com/takeuchi-shogo/go-example-rowstore/internal/storage"
)

const version = "0.1.0"

// CLI defines the command-line interface using Kong
var CLI struct {
	Config    string `name:"config" short:"c" help:"Config file (YAML)" type:"path" env:"GODB_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error" env:"GODB_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format: text, json" env:"GODB_LOG_FORMAT"`

	// Subcommands
	Repl     ReplCmd     `cmd:"" default:"withargs" help:"Interactive shell (default)"`
	Stats    StatsCmd    `cmd:"" help:"Show row count, pages and file size"`
	Dump     DumpCmd     `cmd:"" help:"Print every row"`
	Checksum ChecksumCmd `cmd:"" help:"Print the BLAKE3-256 digest of a table file"`
	Backup   BackupCmd   `cmd:"" help:"Write an xz-compressed backup with a manifest"`
	Restore  RestoreCmd  `cmd:"" help:"Restore a table file from an xz backup"`
	Export   ExportCmd   `cmd:"" help:"Copy rows into a SQLite database"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// app is bound into every command's Run method.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("godb"),
		kong.Description("Single-file fixed-schema record store"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(CLI.Config)
	ctx.FatalIfErrorf(err)

	// フラグと環境変数は設定ファイルより優先
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if CLI.LogFormat != "" {
		cfg.Log.Format = CLI.LogFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	ctx.FatalIfErrorf(err)
	format, err := logging.ParseFormat(cfg.Log.Format)
	ctx.FatalIfErrorf(err)

	// 標準出力は REPL が使うのでログは標準エラーへ
	logger := logging.Init(os.Stderr, level, format)

	err = ctx.Run(&app{cfg: cfg, logger: logger})
	if err != nil {
		logger.Error("command failed", "command", ctx.Command(), "fatal", storage.IsFatal(err), "err", err)
	}
	ctx.FatalIfErrorf(err)
}
